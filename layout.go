package bootmem

// Layout describes the size and minimum alignment of a requested byte allocation.
// It is the unit of request passed across the ByteAllocator capability boundary.
type Layout struct {
	// Size is the requested allocation size in bytes
	Size int
	// Align is the minimum alignment of the allocation in bytes. It must be a
	// nonzero power of two.
	Align uint
}

// PadToAlign returns a copy of this Layout with Size rounded up to a multiple of
// Align. An allocator that satisfies every request with its padded size keeps a
// bump cursor aligned for the next allocation without ever adjusting the cursor
// itself.
func (l Layout) PadToAlign() Layout {
	return Layout{
		Size:  int(AlignUp(uintptr(l.Size), uintptr(l.Align))),
		Align: l.Align,
	}
}
