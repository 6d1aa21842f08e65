// Package tracing turns allocator hook invocations into rows in the
// operation log.
package tracing

import (
	"github.com/rs/xid"

	"github.com/sarchlab/bestfitsim/alloc"
	"github.com/sarchlab/bestfitsim/datarecording"
	"github.com/sarchlab/bestfitsim/hooking"
)

// OpTableName is the table that stores the operation log.
const OpTableName = "operations"

// An OpRecord is one allocator operation as stored in the operation log.
type OpRecord struct {
	ID    string
	Seq   int
	Kind  string
	Size  int
	Index int
}

//go:generate mockgen -destination "mock_datarecording_test.go" -package tracing_test github.com/sarchlab/bestfitsim/datarecording DataRecorder

// OpTracer observes allocator hooks and writes one row per operation through
// a DataRecorder.
type OpTracer struct {
	recorder datarecording.DataRecorder
	seq      int
}

// NewOpTracer creates an OpTracer and prepares the operation table in the
// recorder.
func NewOpTracer(recorder datarecording.DataRecorder) *OpTracer {
	recorder.CreateTable(OpTableName, OpRecord{})

	return &OpTracer{recorder: recorder}
}

// Func records one operation. It implements hooking.Hook.
func (t *OpTracer) Func(ctx hooking.HookCtx) {
	var kind string
	switch ctx.Pos {
	case alloc.HookPosAlloc:
		kind = "alloc"
	case alloc.HookPosDealloc:
		kind = "dealloc"
	case alloc.HookPosMerge:
		kind = "merge"
	default:
		return
	}

	info := ctx.Item.(alloc.OpInfo)

	t.seq++
	t.recorder.InsertData(OpTableName, OpRecord{
		ID:    xid.New().String(),
		Seq:   t.seq,
		Kind:  kind,
		Size:  info.Size,
		Index: info.Index,
	})
}
