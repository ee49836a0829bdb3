package bootmem

// BaseAllocator is the capability shared by every allocator in the boot memory
// system: it can be handed a backing region exactly once and may (or may not)
// accept additional regions afterward.
type BaseAllocator interface {
	// Init hands the allocator its backing memory region [start, start+size).
	// Implementations may shrink the region to satisfy internal alignment
	// requirements. Calling Init a second time re-initializes the allocator
	// from scratch; no state accumulates across calls.
	Init(start uintptr, size int)
	// AddMemory offers an additional free region to the allocator. Implementations
	// that manage exactly one contiguous region return ErrUnsupported.
	AddMemory(start uintptr, size int) error
}

// ByteAllocator is the capability for small variable-sized allocations, used for
// early heap structures before the primary heap allocator is available.
type ByteAllocator interface {
	BaseAllocator

	// Alloc allocates memory satisfying the provided Layout and returns its
	// address. It returns ErrInvalidParam if the Layout's alignment is not a
	// nonzero power of two or its size is negative, and ErrNoMemory if the
	// request does not fit in the allocator's remaining space.
	Alloc(layout Layout) (uintptr, error)
	// Dealloc releases a previously allocated region. Implementations are
	// permitted to treat this as a no-op and reclaim nothing.
	Dealloc(pos uintptr, layout Layout)

	// TotalBytes returns the number of bytes currently under management for
	// byte allocations, used or not.
	TotalBytes() int
	// UsedBytes returns the number of bytes granted to byte allocations so far.
	UsedBytes() int
	// AvailableBytes returns the number of bytes still available for byte
	// allocations.
	AvailableBytes() int
}

// PageAllocator is the capability for fixed-granularity page allocations, used
// for page tables, stacks, and other page-aligned early structures.
type PageAllocator interface {
	BaseAllocator

	// PageSize returns the allocator's page granularity in bytes. It is fixed
	// at construction and is always a power of two.
	PageSize() int

	// AllocPages allocates numPages contiguous pages aligned to alignPow2 bytes
	// and returns the address of the first page. alignPow2 must be a positive
	// multiple of PageSize and alignPow2/PageSize must be a power of two, or
	// ErrInvalidParam is returned. ErrNoMemory is returned when the request
	// does not fit.
	AllocPages(numPages int, alignPow2 int) (uintptr, error)
	// DeallocPages releases previously allocated pages. Implementations that
	// never return page memory panic instead of failing softly, because calling
	// this against such an allocator is a logic error in the caller.
	DeallocPages(pos uintptr, numPages int)

	// TotalPages returns the maximum number of pages that could still ever be
	// carved out of the allocator given its current usage.
	TotalPages() int
	// UsedPages returns the number of pages granted so far.
	UsedPages() int
	// AvailablePages returns the number of pages still available.
	AvailablePages() int
}
