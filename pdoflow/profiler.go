package pdoflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/remiges-tech/pdoflow/pdoflow/objstore"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// ProfileBucket is the object-store bucket profiler artifacts are written
// to. Call graphs are written as call_graph_key = "<job_record_id>.json"
// inside this bucket.
const ProfileBucket = "pdoflow-profiles"

// callFrame is one entry of the coarse call-graph snapshot written
// alongside a profile's summary row. Go has no cProfile equivalent that
// attributes wall time per call site without a build-time instrumentation
// pass, so the frame list is derived from runtime.Callers at entry and
// exit rather than a full call-graph walk; it is enough to show which
// entry point ran and its call depth when the artifact is inspected.
type callFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Profiler wraps one entry-point invocation with wall-clock timing and
// memory-allocation deltas, the Go rendering of original_source/models.py's
// JobProfile: cProfile's call-graph has no cheap Go equivalent, so
// runtime.ReadMemStats before/after plus a runtime.Callers snapshot stand
// in for it (see SPEC_FULL.md §4a). A nil store disables the call-graph
// upload; the summary row is still written.
type Profiler struct {
	Queries pdoflowsqlc.Querier
	Store   objstore.ObjectStore
}

// Profile runs fn and records a JobProfile row (plus, if p.Store is set,
// a call-graph artifact) for jobRecordID. The error fn returns is
// propagated unchanged. A failure to write the JobProfile row is returned
// as a wrapped error only when fn succeeded; a failed call-graph upload is
// not reported at all and only leaves call_graph_key unset, so a broken
// object store never masks a real job failure.
func (p *Profiler) Profile(ctx context.Context, jobRecordID uuid.UUID, entryPointName string, fn func() error) error {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	pc := make([]uintptr, 32)
	n := runtime.Callers(2, pc)
	frames := runtime.CallersFrames(pc[:n])

	fnErr := fn()

	elapsed := time.Since(start)
	runtime.ReadMemStats(&after)

	if p.Queries == nil {
		return fnErr
	}

	var allocDelta int64
	if after.TotalAlloc >= before.TotalAlloc {
		allocDelta = int64(after.TotalAlloc - before.TotalAlloc)
	}

	var callGraphKey pgtype.Text
	if p.Store != nil {
		graph := make([]callFrame, 0, n)
		for {
			f, more := frames.Next()
			graph = append(graph, callFrame{Function: f.Function, File: f.File, Line: f.Line})
			if !more {
				break
			}
		}
		payload, marshalErr := json.Marshal(struct {
			EntryPoint string      `json:"entry_point"`
			Frames     []callFrame `json:"frames"`
		}{EntryPoint: entryPointName, Frames: graph})
		if marshalErr == nil {
			key := fmt.Sprintf("%s.json", jobRecordID)
			if putErr := p.Store.Put(ctx, ProfileBucket, key, bytes.NewReader(payload), int64(len(payload)), "application/json"); putErr == nil {
				callGraphKey = pgtype.Text{String: key, Valid: true}
			}
		}
	}

	if err := p.Queries.InsertJobProfile(ctx, pdoflowsqlc.InsertJobProfileParams{
		JobRecordID:  jobRecordID,
		TotalCalls:   int64(n),
		TotalTimeMs:  float64(elapsed.Microseconds()) / 1000.0,
		AllocBytes:   allocDelta,
		CallGraphKey: callGraphKey,
	}); err != nil && fnErr == nil {
		return fmt.Errorf("record job profile: %w", err)
	}

	return fnErr
}
