package bootmem

// Statistics is an aggregatable snapshot of allocator usage. The consuming
// memory subsystem sums snapshots from every allocator it drives; each value is
// derived from allocator cursors at collection time rather than maintained as a
// separate counter.
type Statistics struct {
	// ArenaCount is the number of allocators summed into this snapshot
	ArenaCount int
	// ArenaBytes is the total size in bytes of the managed regions
	ArenaBytes int
	// ByteAllocationBytes is the number of bytes granted to byte allocations
	ByteAllocationBytes int
	// PageAllocationBytes is the number of bytes granted to page allocations
	PageAllocationBytes int
}

func (s *Statistics) Clear() {
	s.ArenaCount = 0
	s.ArenaBytes = 0
	s.ByteAllocationBytes = 0
	s.PageAllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.ArenaCount += other.ArenaCount
	s.ArenaBytes += other.ArenaBytes
	s.ByteAllocationBytes += other.ByteAllocationBytes
	s.PageAllocationBytes += other.PageAllocationBytes
}
