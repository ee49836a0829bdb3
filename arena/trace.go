package arena

import (
	"sort"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"

	"github.com/kernelkit/bootmem"
)

// allocationTrace records live byte allocations for diagnostics. It is pure
// bookkeeping about the arena, not a free list: retiring a pointer never makes
// its space reusable, and the arena's cursors and accounting are computed without
// consulting it.
type allocationTrace struct {
	logger *slog.Logger
	live   *swiss.Map[uintptr, bootmem.Layout]
}

func newAllocationTrace(logger *slog.Logger) *allocationTrace {
	return &allocationTrace{
		logger: logger,
		live:   swiss.NewMap[uintptr, bootmem.Layout](42),
	}
}

func (t *allocationTrace) clear() {
	t.live = swiss.NewMap[uintptr, bootmem.Layout](42)
}

func (t *allocationTrace) recordAlloc(pos uintptr, layout bootmem.Layout) {
	t.live.Put(pos, layout)
}

func (t *allocationTrace) recordDealloc(pos uintptr) {
	if !t.live.Has(pos) {
		t.logger.Warn("EarlyAllocator::Dealloc called with a pointer this allocator never returned",
			slog.Uint64("Pos", uint64(pos)))
		return
	}

	t.live.Delete(pos)
}

func (t *allocationTrace) liveCount() int {
	return t.live.Count()
}

// visitSorted calls visit once per live allocation in ascending address order, so
// diagnostic output is deterministic.
func (t *allocationTrace) visitSorted(visit func(pos uintptr, layout bootmem.Layout)) {
	positions := make([]uintptr, 0, t.live.Count())
	t.live.Iter(func(pos uintptr, layout bootmem.Layout) bool {
		positions = append(positions, pos)
		return false
	})

	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })

	for _, pos := range positions {
		layout, _ := t.live.Get(pos)
		visit(pos, layout)
	}
}
