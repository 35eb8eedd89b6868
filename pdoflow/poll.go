package pdoflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// PollPosting is the Go rendering of §4.5's poll_posting generator: it
// sends one PostingSnapshot per pull on the returned channel while the
// posting's status is 'executing'. If a pull observes total_jobs_done >=
// total_jobs, it finalizes the posting to 'finished' (see the Open
// Question decision in DESIGN.md) and closes the channel after that final
// snapshot. If the posting does not exist, the channel is closed
// immediately without a send, matching "poll_posting returns without
// yielding" in spec.md §7's error table.
func PollPosting(ctx context.Context, pool *pgxpool.Pool, postingID uuid.UUID, interval time.Duration) <-chan PostingSnapshot {
	out := make(chan PostingSnapshot)
	go func() {
		defer close(out)
		q := pdoflowsqlc.New(pool)
		for {
			snap, err := pollOnce(ctx, pool, q, postingID)
			if err != nil {
				// Not-found and any other read failure both end the
				// stream without a send, per spec.md §7.
				return
			}

			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}

			if snap.Status != pdoflowsqlc.PostingStatusExecuting {
				return
			}

			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func pollOnce(ctx context.Context, pool *pgxpool.Pool, q pdoflowsqlc.Querier, postingID uuid.UUID) (PostingSnapshot, error) {
	counts, err := q.GetPostingCounts(ctx, postingID)
	if err != nil {
		return PostingSnapshot{}, err
	}

	snap := PostingSnapshot{
		QueryTime:     time.Now(),
		PostingID:     postingID.String(),
		Status:        counts.PostingStatus,
		TotalJobs:     counts.TotalJobs,
		TotalJobsDone: counts.TotalJobsDone,
	}

	if counts.PostingStatus == pdoflowsqlc.PostingStatusExecuting && counts.TotalJobs > 0 && counts.TotalJobsDone >= counts.TotalJobs {
		if err := finalizePosting(ctx, pool, postingID); err != nil {
			return snap, err
		}
		snap.Status = pdoflowsqlc.PostingStatusFinished
	}

	return snap, nil
}

// finalizePosting flips a posting to 'finished'. This is the poller-only
// finalization path named in spec.md §9's first Open Question: the
// implementer's decision (recorded in DESIGN.md) is to keep the original
// contract -- 'finished' is reached only by something that walks the
// posting's progress, not automatically by the last worker to touch it.
// recovery.go's sweepUnfinishedPostings performs the same flip in bulk for
// every finished-but-still-executing posting; nothing in the package
// calls it on a schedule, so a posting nobody polls stays 'executing'.
func finalizePosting(ctx context.Context, pool *pgxpool.Pool, postingID uuid.UUID) error {
	q := pdoflowsqlc.New(pool)
	return q.SetPostingStatus(ctx, pdoflowsqlc.SetPostingStatusParams{
		ID:     postingID,
		Status: pdoflowsqlc.PostingStatusFinished,
	})
}

// PollPostingPercent is §4.5's poll_posting_percent: yields percent_done
// forever (not just while executing), NaN with no jobs, 0 if the posting
// doesn't exist.
func PollPostingPercent(ctx context.Context, pool *pgxpool.Pool, postingID uuid.UUID, interval time.Duration) <-chan float64 {
	out := make(chan float64)
	q := pdoflowsqlc.New(pool)
	go func() {
		defer close(out)
		for {
			counts, err := q.GetPostingCounts(ctx, postingID)
			var pct float64
			if err != nil {
				pct = 0
			} else {
				pct = PostingSnapshot{TotalJobs: counts.TotalJobs, TotalJobsDone: counts.TotalJobsDone}.PercentDone()
			}

			select {
			case out <- pct:
			case <-ctx.Done():
				return
			}

			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// PollJobStatusCount is §4.5's poll_job_status_count: yields the count of
// records in a given status forever.
func PollJobStatusCount(ctx context.Context, pool *pgxpool.Pool, postingID uuid.UUID, status pdoflowsqlc.JobStatus, interval time.Duration) <-chan int64 {
	out := make(chan int64)
	q := pdoflowsqlc.New(pool)
	go func() {
		defer close(out)
		for {
			n, err := q.CountJobRecordsByStatus(ctx, pdoflowsqlc.CountJobRecordsByStatusParams{
				PostingID: postingID,
				Status:    status,
			})
			if err != nil {
				n = 0
			}

			select {
			case out <- n:
			case <-ctx.Done():
				return
			}

			select {
			case <-time.After(interval):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// ErrAwaitTimeout is raised by the await_* helpers when max_wait elapses
// before the predicate is satisfied.
var ErrAwaitTimeout = fmt.Errorf("pdoflow: timed out waiting for condition")

// AwaitPostingCompletion blocks until the posting's status is no longer
// 'executing' (finished, errored_out or paused), polling every interval, or returns ErrAwaitTimeout once maxWait
// has elapsed. Per the design note in spec.md §9, the timeout is an
// explicit deadline compared against a monotonic clock after each poll
// iteration rather than a signal-based alarm: the polling cadence is
// already coarse enough that this never misses a deadline by more than
// one interval.
func AwaitPostingCompletion(ctx context.Context, pool *pgxpool.Pool, postingID uuid.UUID, interval, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	q := pdoflowsqlc.New(pool)

	first := true
	for {
		counts, err := q.GetPostingCounts(ctx, postingID)
		if err != nil {
			if first {
				return fmt.Errorf("%w: %v", ErrPostingNotFound, err)
			}
			return err
		}
		first = false

		if counts.PostingStatus != pdoflowsqlc.PostingStatusExecuting {
			return nil
		}
		if counts.TotalJobs > 0 && counts.TotalJobsDone >= counts.TotalJobs {
			return finalizePosting(ctx, pool, postingID)
		}

		if time.Now().After(deadline) {
			return ErrAwaitTimeout
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AwaitForStatusThreshold blocks until predicate(count) is true for the
// count of records in status, polling every interval, or returns
// ErrAwaitTimeout after maxWait. predicate defaults to "count <= 0" when
// nil, matching spec.md §4.5.
func AwaitForStatusThreshold(ctx context.Context, pool *pgxpool.Pool, postingID uuid.UUID, status pdoflowsqlc.JobStatus, interval, maxWait time.Duration, predicate func(count int64) bool) error {
	if predicate == nil {
		predicate = func(count int64) bool { return count <= 0 }
	}

	deadline := time.Now().Add(maxWait)
	q := pdoflowsqlc.New(pool)

	for {
		n, err := q.CountJobRecordsByStatus(ctx, pdoflowsqlc.CountJobRecordsByStatusParams{
			PostingID: postingID,
			Status:    status,
		})
		if err != nil {
			return err
		}

		if predicate(n) {
			return nil
		}

		if time.Now().After(deadline) {
			return ErrAwaitTimeout
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
