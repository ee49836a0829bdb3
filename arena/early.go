package arena

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/pkg/errors"
	"golang.org/x/exp/slog"

	"github.com/kernelkit/bootmem"
)

// CreateOptions indicate optional behaviors to activate on a new EarlyAllocator
type CreateOptions struct {
	// TraceAllocations causes the allocator to maintain a diagnostic map of live
	// byte allocations, queryable via AllocationCount, DebugLogAllAllocations, and
	// the BuildStatsString dump. Tracing never changes cursor movement, accounting,
	// or failure behavior.
	TraceAllocations bool
}

// EarlyAllocator is a bootstrap allocator for the window between kernel entry and
// the bring-up of the primary heap and page allocators. It manages a single
// contiguous region and serves byte allocations and page allocations from opposite
// ends of it, so that one reserved range can cover both needs:
//
//	[ byte allocations | free | page allocations ]
//	start             bPos   pPos               end
//
// Byte allocations bump bPos forward and page allocations bump pPos backward; the
// two cursors must never cross. Nothing is ever reclaimed: byte deallocation is a
// no-op and page deallocation panics. When the early phase ends the whole region
// is handed to the primary allocators by surrounding code and this allocator is
// abandoned.
//
// EarlyAllocator performs no internal synchronization. It is built for the
// single-context, interrupt-free environment of early boot; a consumer that
// shares it across contexts must supply its own mutual exclusion.
type EarlyAllocator struct {
	pageSize int
	logger   *slog.Logger

	start uintptr
	end   uintptr
	bPos  uintptr
	pPos  uintptr

	trace *allocationTrace
}

var _ bootmem.ByteAllocator = &EarlyAllocator{}
var _ bootmem.PageAllocator = &EarlyAllocator{}

// New creates an EarlyAllocator with the provided page granularity. The allocator
// is unusable until Init hands it a backing region.
//
// pageSize - The page granularity in bytes. It must be a power of two, which is
// verified during Init.
//
// logger - Destination for per-operation debug logging. A nil logger falls back
// to slog.Default()
//
// options - Optional behaviors: it is valid to leave all the fields blank
func New(pageSize int, logger *slog.Logger, options CreateOptions) *EarlyAllocator {
	if logger == nil {
		logger = slog.Default()
	}

	allocator := &EarlyAllocator{
		pageSize: pageSize,
		logger:   logger,
	}

	if options.TraceAllocations {
		allocator.trace = newAllocationTrace(logger)
	}

	return allocator
}

// Init hands the allocator its backing region [start, start+size). The bounds are
// aligned to the page size, start rounding down and the end rounding up, and both
// cursors reset to their respective bounds. Init panics if the allocator's page
// size is not a power of two, since that is a boot-time configuration error
// rather than a recoverable condition.
//
// Calling Init again re-initializes the allocator from scratch; regions do not
// accumulate across calls.
func (a *EarlyAllocator) Init(start uintptr, size int) {
	err := bootmem.CheckPow2(uintptr(a.pageSize), "page size")
	if err != nil {
		panic(err)
	}

	a.start = bootmem.AlignDown(start, uintptr(a.pageSize))
	a.end = bootmem.AlignUp(start+uintptr(size), uintptr(a.pageSize))
	a.bPos = a.start
	a.pPos = a.end

	if a.trace != nil {
		a.trace.clear()
	}

	bootmem.DebugValidate(a)
	a.logger.Debug("EarlyAllocator::Init",
		slog.Uint64("Start", uint64(a.start)),
		slog.Uint64("End", uint64(a.end)),
		slog.Int("PageSize", a.pageSize))
}

// AddMemory always returns ErrUnsupported: this allocator intentionally manages
// exactly one contiguous region.
func (a *EarlyAllocator) AddMemory(start uintptr, size int) error {
	return cerrors.Wrap(bootmem.ErrUnsupported, "this allocator manages a single contiguous region")
}

// Alloc allocates memory satisfying the provided Layout, bumping the forward
// cursor, and returns the address of the allocation. The request is padded to its
// own alignment so the cursor remains suitably positioned for the next
// allocation; the cursor itself is never adjusted.
//
// Alloc returns ErrInvalidParam if the Layout's alignment is not a nonzero power
// of two or its size is negative, and ErrNoMemory if the padded request would
// collide with the page arena. No state changes on failure.
func (a *EarlyAllocator) Alloc(layout bootmem.Layout) (uintptr, error) {
	if layout.Size < 0 {
		return 0, cerrors.Wrapf(bootmem.ErrInvalidParam, "allocation size is %d", layout.Size)
	}
	if bootmem.CheckPow2(layout.Align, "allocation alignment") != nil {
		return 0, cerrors.Wrapf(bootmem.ErrInvalidParam, "allocation alignment %d is not a nonzero power of two", layout.Align)
	}

	layout = layout.PadToAlign()
	newBPos := a.bPos + uintptr(layout.Size)
	if newBPos > a.pPos {
		return 0, cerrors.Wrapf(bootmem.ErrNoMemory, "%d bytes requested, %d bytes available", layout.Size, a.AvailableBytes())
	}

	pos := a.bPos
	a.bPos = newBPos

	if a.trace != nil {
		a.trace.recordAlloc(pos, layout)
	}

	bootmem.DebugValidate(a)
	a.logger.Debug("EarlyAllocator::Alloc",
		slog.Uint64("Pos", uint64(pos)),
		slog.Int("Size", layout.Size))
	return pos, nil
}

// Dealloc is a no-op on arena state: the early arena never reclaims
// byte-allocation space. Fragmentation from short-lived early allocations is
// tolerated because the whole region is handed off when the early phase ends.
// When tracing is enabled the pointer is retired from the diagnostic map, and a
// pointer this allocator never returned is logged as a warning.
func (a *EarlyAllocator) Dealloc(pos uintptr, layout bootmem.Layout) {
	if a.trace != nil {
		a.trace.recordDealloc(pos)
	}
}

// TotalBytes returns the number of bytes currently available to the byte arena,
// used or not. It shrinks as pages are carved off the far end of the region.
func (a *EarlyAllocator) TotalBytes() int {
	return int(a.pPos - a.start)
}

// UsedBytes returns the cumulative number of bytes granted to byte allocations.
// It never decreases; deallocation reclaims nothing.
func (a *EarlyAllocator) UsedBytes() int {
	return int(a.bPos - a.start)
}

// AvailableBytes returns the number of bytes still available for byte allocations.
func (a *EarlyAllocator) AvailableBytes() int {
	return a.TotalBytes() - a.UsedBytes()
}

// PageSize returns the page granularity in bytes that this allocator was created with.
func (a *EarlyAllocator) PageSize() int {
	return a.pageSize
}

// AllocPages allocates numPages contiguous pages aligned to alignPow2 bytes,
// bumping the backward cursor, and returns the low address of the carved block.
//
// alignPow2 must be a positive multiple of the page size and alignPow2 divided by
// the page size must be a power of two, or ErrInvalidParam is returned; the page
// count is then rounded up to a multiple of that alignment unit. ErrNoMemory is
// returned when the rounded request would collide with the byte arena. No state
// changes on failure.
func (a *EarlyAllocator) AllocPages(numPages int, alignPow2 int) (uintptr, error) {
	if numPages <= 0 {
		return 0, cerrors.Wrapf(bootmem.ErrInvalidParam, "page count is %d", numPages)
	}
	if alignPow2 <= 0 || alignPow2%a.pageSize != 0 {
		return 0, cerrors.Wrapf(bootmem.ErrInvalidParam, "alignment %d is not a positive multiple of the page size %d", alignPow2, a.pageSize)
	}
	alignInPages := alignPow2 / a.pageSize
	if bootmem.CheckPow2(uint(alignInPages), "alignment in pages") != nil {
		return 0, cerrors.Wrapf(bootmem.ErrInvalidParam, "alignment %d is %d pages, which is not a power of two", alignPow2, alignInPages)
	}

	// compare page counts rather than byte sizes so an absurd request cannot
	// wrap the multiplication past the collision check
	adjustedPages := bootmem.AlignUp(uintptr(numPages), uintptr(alignInPages))
	if adjustedPages > (a.pPos-a.bPos)/uintptr(a.pageSize) {
		return 0, cerrors.Wrapf(bootmem.ErrNoMemory, "%d pages requested, %d pages available", adjustedPages, a.AvailablePages())
	}

	a.pPos -= adjustedPages * uintptr(a.pageSize)

	bootmem.DebugValidate(a)
	a.logger.Debug("EarlyAllocator::AllocPages",
		slog.Uint64("Pos", uint64(a.pPos)),
		slog.Int("NumPages", int(adjustedPages)))
	return a.pPos, nil
}

// DeallocPages always panics: page memory handed out by this allocator is never
// returned during the early phase, so reaching this method indicates a logic
// error in the caller rather than a transient condition.
func (a *EarlyAllocator) DeallocPages(pos uintptr, numPages int) {
	panic("EarlyAllocator: page deallocation is not supported")
}

// TotalPages returns the maximum number of pages that could still ever be carved
// out of the region given current byte usage.
func (a *EarlyAllocator) TotalPages() int {
	return int(a.end-a.bPos) / a.pageSize
}

// UsedPages returns the cumulative number of pages granted to page allocations.
func (a *EarlyAllocator) UsedPages() int {
	return int(a.end-a.pPos) / a.pageSize
}

// AvailablePages returns the number of pages still available.
func (a *EarlyAllocator) AvailablePages() int {
	return a.TotalPages() - a.UsedPages()
}

// AllocationCount returns the number of live traced byte allocations. It always
// returns 0 when the allocator was created without TraceAllocations.
func (a *EarlyAllocator) AllocationCount() int {
	if a.trace == nil {
		return 0
	}

	return a.trace.liveCount()
}

// DebugLogAllAllocations calls the provided logFunc once per live traced byte
// allocation, in ascending offset order. It does nothing when the allocator was
// created without TraceAllocations.
func (a *EarlyAllocator) DebugLogAllAllocations(logger *slog.Logger, logFunc func(log *slog.Logger, offset int, size int)) {
	if a.trace == nil {
		return
	}

	a.trace.visitSorted(func(pos uintptr, layout bootmem.Layout) {
		logFunc(logger, int(pos-a.start), layout.Size)
	})
}

// Validate performs internal consistency checks on the allocator's cursors and
// accounting. When the implementation is functioning correctly, it should not be
// possible for this method to return an error, but this may assist in diagnosing
// issues with the implementation.
func (a *EarlyAllocator) Validate() error {
	if a.start > a.bPos {
		return errors.Errorf("the byte cursor %d lies before the region start %d", a.bPos, a.start)
	}
	if a.bPos > a.pPos {
		return errors.Errorf("the byte cursor %d has crossed the page cursor %d", a.bPos, a.pPos)
	}
	if a.pPos > a.end {
		return errors.Errorf("the page cursor %d lies beyond the region end %d", a.pPos, a.end)
	}

	if a.start != bootmem.AlignDown(a.start, uintptr(a.pageSize)) {
		return errors.Errorf("the region start %d is not aligned to the page size %d", a.start, a.pageSize)
	}
	if a.end != bootmem.AlignDown(a.end, uintptr(a.pageSize)) {
		return errors.Errorf("the region end %d is not aligned to the page size %d", a.end, a.pageSize)
	}

	if int(a.end-a.pPos)%a.pageSize != 0 {
		return errors.Errorf("the page cursor %d is not a whole number of pages from the region end %d", a.pPos, a.end)
	}

	if a.UsedBytes()+a.AvailableBytes() != a.TotalBytes() {
		return errors.Errorf("byte accounting does not add up: %d used + %d available != %d total", a.UsedBytes(), a.AvailableBytes(), a.TotalBytes())
	}
	if a.UsedPages()+a.AvailablePages() != a.TotalPages() {
		return errors.Errorf("page accounting does not add up: %d used + %d available != %d total", a.UsedPages(), a.AvailablePages(), a.TotalPages())
	}

	if a.trace != nil {
		var tracedBytes int
		var traceErr error
		a.trace.visitSorted(func(pos uintptr, layout bootmem.Layout) {
			if traceErr != nil {
				return
			}
			if pos < a.start || pos+uintptr(layout.Size) > a.bPos {
				traceErr = errors.Errorf("traced allocation at %d with size %d lies outside the byte arena [%d, %d)", pos, layout.Size, a.start, a.bPos)
			}
			tracedBytes += layout.Size
		})
		if traceErr != nil {
			return traceErr
		}

		if tracedBytes > a.UsedBytes() {
			return errors.Errorf("traced allocations cover %d bytes, but only %d bytes were ever granted", tracedBytes, a.UsedBytes())
		}
	}

	return nil
}

// AddStatistics sums this allocator's usage into the statistics currently present
// in the provided bootmem.Statistics object.
func (a *EarlyAllocator) AddStatistics(stats *bootmem.Statistics) {
	stats.ArenaCount++
	stats.ArenaBytes += int(a.end - a.start)
	stats.ByteAllocationBytes += a.UsedBytes()
	stats.PageAllocationBytes += a.UsedPages() * a.pageSize
}
