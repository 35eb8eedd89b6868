package pdoflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// failureCache is the per-worker mutable state named in §4.3 and §9
// ("Per-worker mutable state ... lives strictly inside one worker
// process"). It is never shared across workers or persisted; a crashed
// worker loses its accumulated tolerance and a fresh worker starts over.
type failureCache struct {
	threshold int
	remaining map[uuid.UUID]int
	bad       map[uuid.UUID]struct{}
}

func newFailureCache(threshold int) *failureCache {
	return &failureCache{
		threshold: threshold,
		remaining: make(map[uuid.UUID]int),
		bad:       make(map[uuid.UUID]struct{}),
	}
}

// blacklisted reports whether a posting has already been added to this
// worker's bad_postings set; step 1 of the execution loop consults this
// before even stamping work_started_on.
func (c *failureCache) blacklisted(postingID uuid.UUID) bool {
	_, bad := c.bad[postingID]
	return bad
}

func (c *failureCache) toleranceFor(postingID uuid.UUID) int {
	remaining, ok := c.remaining[postingID]
	if !ok {
		remaining = c.threshold
		c.remaining[postingID] = remaining
	}
	return remaining
}

// recordFailureOutcome describes what onNonTransientFailure decided to do,
// so the caller can log without re-deriving the branch.
type recordFailureOutcome int

const (
	outcomeRetried recordFailureOutcome = iota
	outcomeTerminallyFailed
	outcomeBlacklisted
)

// onNonTransientFailure applies §4.3's rules for record r after a
// non-transient execution failure (step 8 of the execution loop). It
// mutates the failure cache and the database to match exactly one of the
// three outcomes the spec describes, in the order the spec lists them:
// blacklist check first (independent of tries_remaining), then the
// tries-exhausted check.
func (c *failureCache) onNonTransientFailure(ctx context.Context, q pdoflowsqlc.Querier, r pdoflowsqlc.JobRecord) (recordFailureOutcome, error) {
	remaining := c.toleranceFor(r.PostingID)

	if remaining <= 0 {
		c.bad[r.PostingID] = struct{}{}
		if err := q.SetPostingStatus(ctx, pdoflowsqlc.SetPostingStatusParams{
			ID:     r.PostingID,
			Status: pdoflowsqlc.PostingStatusErroredOut,
		}); err != nil {
			return outcomeBlacklisted, fmt.Errorf("blacklist posting %s: %w", r.PostingID, err)
		}
		if err := q.FailJobRecordTerminal(ctx, pdoflowsqlc.FailJobRecordTerminalParams{ID: r.ID}); err != nil {
			return outcomeBlacklisted, fmt.Errorf("terminally fail record %s: %w", r.ID, err)
		}
		return outcomeBlacklisted, nil
	}

	if r.TriesRemaining <= 1 {
		if err := q.FailJobRecordTerminal(ctx, pdoflowsqlc.FailJobRecordTerminalParams{ID: r.ID}); err != nil {
			return outcomeTerminallyFailed, fmt.Errorf("terminally fail record %s: %w", r.ID, err)
		}
		c.remaining[r.PostingID] = remaining - 1
		return outcomeTerminallyFailed, nil
	}

	if err := q.DecrementTriesAndRevert(ctx, r.ID); err != nil {
		return outcomeRetried, fmt.Errorf("decrement tries for record %s: %w", r.ID, err)
	}
	return outcomeRetried, nil
}
