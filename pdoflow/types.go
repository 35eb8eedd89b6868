package pdoflow

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// EntryPoint is the callable shape a job record's entry_point resolves to.
// Arguments arrive already split into positional and keyword JSON, exactly
// as they were submitted; the callable's own signature is the contract
// (see SPEC_FULL.md §6a).
type EntryPoint func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error)

// Config holds the tunables a worker or the operator CLI reads from the
// environment (see SPEC_FULL.md §2a for the PDOFLOW_* variable names).
type Config struct {
	Poster            string        // worker identity used by the claim query's poster filter
	BatchSize         int32         // max rows claimed per iteration
	FailureThreshold  int           // §4.3 remaining_tolerated_failures default
	IdleInterval      time.Duration // sleep between empty claims, default 5s
	UpkeepInterval    time.Duration // pool supervisor cadence
	BatchStatusCacheTTL time.Duration
}

// DefaultConfig returns the documented defaults named in SPEC_FULL.md §2a.
func DefaultConfig() Config {
	return Config{
		BatchSize:        10,
		FailureThreshold: 10,
		IdleInterval:     5 * time.Second,
		UpkeepInterval:   2 * time.Second,
		BatchStatusCacheTTL: 30 * time.Second,
	}
}

var (
	ErrEntryPointAlreadyRegistered = errors.New("pdoflow: entry point already registered")
	ErrEntryPointNotFound          = errors.New("pdoflow: entry point not found in local registry")
	ErrPostingNotFound             = errors.New("pdoflow: posting not found")
)

// JobInput is one job's arguments at submission time. TriesRemaining is a
// pointer so that a caller who explicitly wants zero retries (never
// retried, fail terminally on the first error) can say so: nil means "use
// the default of 1", while a non-nil value -- including 0 -- is stored
// exactly as given (spec.md §8's bit-identical round-trip).
type JobInput struct {
	Priority            int32
	PositionalArguments json.RawMessage
	KeywordArguments    json.RawMessage
	TriesRemaining      *int32
}

// PostingSnapshot is the read-model returned by the progress pollers; it
// mirrors the derived fields of JobPosting described in spec.md §3.
type PostingSnapshot struct {
	QueryTime     time.Time
	PostingID     string
	Status        pdoflowsqlc.PostingStatus
	TotalJobs     int64
	TotalJobsDone int64
}

// PercentDone computes percent_done per spec.md §3: NaN when there are no
// jobs yet.
func (s PostingSnapshot) PercentDone() float64 {
	if s.TotalJobs == 0 {
		return math.NaN()
	}
	return (float64(s.TotalJobsDone) / float64(s.TotalJobs)) * 100
}

// JobRecordSnapshot carries the §3 record-level derived fields alongside
// the raw timestamps they're computed from, so a caller (pdoflowctl's
// run subcommand, or a poller) gets waiting_time/time_elapsed without
// redoing the NULL/now() handling itself.
type JobRecordSnapshot struct {
	CreatedOn     time.Time
	WorkStartedOn *time.Time // nil until executeOne stamps it
	CompletedOn   *time.Time // nil until the record reaches a terminal status
}

// JobRecordSnapshotFromRow builds a JobRecordSnapshot from a raw
// pdoflowsqlc.JobRecord, collapsing its pgtype.Timestamp columns to plain
// *time.Time (nil when not yet set).
func JobRecordSnapshotFromRow(r pdoflowsqlc.JobRecord) JobRecordSnapshot {
	s := JobRecordSnapshot{CreatedOn: r.CreatedOn.Time}
	if r.WorkStartedOn.Valid {
		t := r.WorkStartedOn.Time
		s.WorkStartedOn = &t
	}
	if r.CompletedOn.Valid {
		t := r.CompletedOn.Time
		s.CompletedOn = &t
	}
	return s
}

// WaitingTime is spec.md §3's waiting_time: work_started_on - created_on,
// or now - created_on while the record hasn't started yet. Unlike
// time_elapsed this is always defined, since a record is always either
// waiting or past it.
func (s JobRecordSnapshot) WaitingTime(now time.Time) time.Duration {
	if s.WorkStartedOn != nil {
		return s.WorkStartedOn.Sub(s.CreatedOn)
	}
	return now.Sub(s.CreatedOn)
}

// TimeElapsed is spec.md §3's time_elapsed: completed_on - work_started_on
// (using now for whichever endpoint is still NULL), or nil if the record
// hasn't started executing yet -- there is nothing to measure elapsed time
// against before work_started_on exists.
func (s JobRecordSnapshot) TimeElapsed(now time.Time) *time.Duration {
	if s.WorkStartedOn == nil {
		return nil
	}
	end := now
	if s.CompletedOn != nil {
		end = *s.CompletedOn
	}
	d := end.Sub(*s.WorkStartedOn)
	return &d
}
