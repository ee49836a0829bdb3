package arena

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/kernelkit/bootmem"
)

// BuildStatsString writes a JSON snapshot of the allocator to the provided
// writer: the region bounds, both cursors, the derived byte and page accounting,
// and (when tracing is enabled) the live byte allocations. Boot diagnostics can
// embed the snapshot directly in their output.
func (a *EarlyAllocator) BuildStatsString(writer *jwriter.Writer) {
	objState := writer.Object()
	defer objState.End()

	a.statsJsonData(objState)
}

func (a *EarlyAllocator) statsJsonData(json jwriter.ObjectState) {
	json.Name("PageSize").Int(a.pageSize)
	json.Name("Start").Int(int(a.start))
	json.Name("End").Int(int(a.end))
	json.Name("BytesCursor").Int(int(a.bPos))
	json.Name("PagesCursor").Int(int(a.pPos))

	json.Name("TotalBytes").Int(a.TotalBytes())
	json.Name("UsedBytes").Int(a.UsedBytes())
	json.Name("AvailableBytes").Int(a.AvailableBytes())

	json.Name("TotalPages").Int(a.TotalPages())
	json.Name("UsedPages").Int(a.UsedPages())
	json.Name("AvailablePages").Int(a.AvailablePages())

	if a.trace != nil {
		arrayState := json.Name("Suballocations").Array()
		defer arrayState.End()

		a.trace.visitSorted(func(pos uintptr, layout bootmem.Layout) {
			obj := arrayState.Object()
			obj.Name("Offset").Int(int(pos - a.start))
			obj.Name("Size").Int(layout.Size)
			obj.End()
		})
	}
}
