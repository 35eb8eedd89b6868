package pdoflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// Dead-worker row recovery is the supplement described in SPEC_FULL.md
// §9a: a Redis-backed heartbeat and per-worker "rows in flight" SET that
// lets a live worker's periodic recovery pass reclaim rows abandoned by a
// worker that crashed mid-execution, without weakening the claim
// protocol or touching tries_remaining. With no redis client configured,
// none of this runs and the system falls back exactly to spec.md's
// documented behavior (a crashed worker's rows simply stay 'executing'
// until an operator intervenes).
const (
	heartbeatTTL      = 60 * time.Second
	heartbeatInterval = 30 * time.Second
	recoveryInterval  = 60 * time.Second
	workerRowsTTL     = 3 * heartbeatTTL
)

func workerHeartbeatKey(instanceID string) string { return fmt.Sprintf("PDOFLOW_HEARTBEAT_%s", instanceID) }
func workerRowsKey(instanceID string) string       { return fmt.Sprintf("PDOFLOW_ROWS_%s", instanceID) }
func workerRegistryKey() string                    { return "PDOFLOW_WORKERS" }

// trackBatch adds every claimed record's ID to this worker's active-rows
// SET and refreshes its TTL, so a crash mid-batch leaves a recoverable
// trail. Errors are logged, not propagated: recovery is best-effort and
// must never block execution.
func (w *Worker) trackBatch(ctx context.Context, records []pdoflowsqlc.JobRecord) {
	if w.redisClient == nil {
		return
	}
	key := workerRowsKey(w.instanceID)
	for _, r := range records {
		if err := w.redisClient.SAdd(ctx, key, r.ID.String()).Err(); err != nil {
			w.logger.Warn().LogActivity("failed to track row", map[string]any{"recordID": r.ID.String(), "error": err.Error()})
		}
	}
	w.redisClient.Expire(ctx, key, workerRowsTTL)
}

// untrackBatch removes a completed batch's record IDs from the SET. Uses
// context.Background() deliberately: during shutdown the caller's context
// may already be cancelled, but the SREM must still happen or a completed
// row stays marked in-flight and a later recovery pass could reset an
// already-terminal row back to 'waiting'. The SQL guard in
// ResetJobRecordsToWaiting (status = 'executing') makes that merely
// wasteful, not unsafe, but it is still worth avoiding.
func (w *Worker) untrackBatch(records []pdoflowsqlc.JobRecord) {
	if w.redisClient == nil {
		return
	}
	key := workerRowsKey(w.instanceID)
	for _, r := range records {
		w.redisClient.SRem(context.Background(), key, r.ID.String())
	}
}

func (w *Worker) registerSelf(ctx context.Context) error {
	return w.redisClient.SAdd(ctx, workerRegistryKey(), w.instanceID).Err()
}

func (w *Worker) deregisterSelf(ctx context.Context) error {
	return w.redisClient.SRem(ctx, workerRegistryKey(), w.instanceID).Err()
}

func (w *Worker) refreshHeartbeat(ctx context.Context) error {
	return w.redisClient.Set(ctx, workerHeartbeatKey(w.instanceID), "alive", heartbeatTTL).Err()
}

// runHeartbeat runs until the process exits; it deliberately never
// selects on ctx.Done() so that the heartbeat outlives whatever cancelled
// the caller's context while the worker finishes its current batch --
// otherwise other workers would start recovering rows this one is still
// processing.
func (w *Worker) runHeartbeat() {
	ctx := context.Background()

	if err := w.registerSelf(ctx); err != nil {
		w.logger.Error(err).LogActivity("failed to register worker", nil)
	}
	if err := w.refreshHeartbeat(ctx); err != nil {
		w.logger.Error(err).LogActivity("failed to send initial heartbeat", nil)
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := w.registerSelf(ctx); err != nil {
			w.logger.Error(err).LogActivity("failed to re-register worker", nil)
		}
		if err := w.refreshHeartbeat(ctx); err != nil {
			w.logger.Error(err).LogActivity("failed to refresh heartbeat", nil)
		}
		w.redisClient.Expire(ctx, workerRowsKey(w.instanceID), workerRowsTTL)
	}
}

// runPeriodicRecovery checks for abandoned rows every recoveryInterval
// until ctx is cancelled.
func (w *Worker) runPeriodicRecovery(ctx context.Context) {
	if n, err := w.RecoverAbandonedRows(ctx); err != nil {
		w.logger.Error(err).LogActivity("initial recovery failed", nil)
	} else if n > 0 {
		w.logger.Info().LogActivity("initial recovery completed", map[string]any{"count": n})
	}

	ticker := time.NewTicker(recoveryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.RecoverAbandonedRows(ctx); err != nil {
				w.logger.Error(err).LogActivity("periodic recovery failed", nil)
			} else if n > 0 {
				w.logger.Info().LogActivity("periodic recovery completed", map[string]any{"count": n})
			}
		}
	}
}

// RecoverAbandonedRows discovers all registered worker instances, checks
// each one's heartbeat, and resets the rows of any instance whose
// heartbeat has expired back to 'waiting'.
func (w *Worker) RecoverAbandonedRows(ctx context.Context) (int, error) {
	if w.redisClient == nil {
		return 0, nil
	}

	instanceIDs, err := w.redisClient.SMembers(ctx, workerRegistryKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("get worker registry: %w", err)
	}

	var recovered int
	for _, instanceID := range instanceIDs {
		if instanceID == w.instanceID {
			continue
		}

		exists, err := w.redisClient.Exists(ctx, workerHeartbeatKey(instanceID)).Result()
		if err != nil {
			w.logger.Error(err).LogActivity("failed to check heartbeat", map[string]any{"instanceID": instanceID})
			continue
		}
		if exists == 1 {
			continue
		}

		n, err := w.recoverRowsFromDeadInstance(ctx, instanceID)
		if err != nil {
			w.logger.Error(err).LogActivity("failed to recover rows from dead instance", map[string]any{"instanceID": instanceID})
			continue
		}
		recovered += n

		if err := w.redisClient.SRem(ctx, workerRegistryKey(), instanceID).Err(); err != nil {
			w.logger.Warn().LogActivity("failed to remove dead worker from registry", map[string]any{"instanceID": instanceID, "error": err.Error()})
		}
	}

	return recovered, nil
}

func (w *Worker) recoverRowsFromDeadInstance(ctx context.Context, instanceID string) (int, error) {
	rowsKey := workerRowsKey(instanceID)

	idStrs, err := w.redisClient.SMembers(ctx, rowsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("get rows for instance %s: %w", instanceID, err)
	}
	if len(idStrs) == 0 {
		w.redisClient.Del(ctx, rowsKey)
		return 0, nil
	}

	ids := make([]uuid.UUID, 0, len(idStrs))
	for _, s := range idStrs {
		id, err := uuid.Parse(s)
		if err != nil {
			w.logger.Warn().LogActivity("invalid record ID in recovery set", map[string]any{"instanceID": instanceID, "recordID": s})
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		w.redisClient.Del(ctx, rowsKey)
		return 0, nil
	}

	// Reset, then delete the Redis SET. These two steps are not atomic: a
	// crash between them just means the next recovery cycle re-reads the
	// same IDs and calls ResetJobRecordsToWaiting again. The SQL guard
	// (status = 'executing') makes that idempotent.
	if err := w.queries.ResetJobRecordsToWaiting(ctx, ids); err != nil {
		return 0, fmt.Errorf("reset job records: %w", err)
	}
	w.redisClient.Del(ctx, rowsKey)

	w.logger.Info().LogActivity("recovered rows from dead instance", map[string]any{"instanceID": instanceID, "count": len(ids)})
	return len(ids), nil
}

// Shutdown removes this instance's heartbeat and registry membership.
// The rows key is intentionally left in place so in-flight rows can still
// be recovered by a peer if this shutdown was not graceful.
func (w *Worker) Shutdown(ctx context.Context) error {
	if w.redisClient == nil {
		return nil
	}

	if err := w.redisClient.Del(ctx, workerHeartbeatKey(w.instanceID)).Err(); err != nil {
		return fmt.Errorf("remove heartbeat: %w", err)
	}
	if err := w.deregisterSelf(ctx); err != nil {
		w.logger.Warn().LogActivity("failed to deregister worker", map[string]any{"instanceID": w.instanceID, "error": err.Error()})
	}

	w.logger.Info().LogActivity("worker shutdown complete", map[string]any{"instanceID": w.instanceID})
	return nil
}

// sweepUnfinishedPostings finalizes any posting stuck 'executing' with all
// of its records in a terminal status -- the "someone is watching" role
// that poll.go's PollPosting plays for an active caller, done in bulk
// (see the Open Question decision in poll.go's finalizePosting doc comment
// and DESIGN.md). Neither Run nor the recovery loop calls it; it runs only
// when invoked directly.
func (w *Worker) sweepUnfinishedPostings(ctx context.Context) error {
	ids, err := w.queries.GetUnfinishedExecutingPostings(ctx)
	if err != nil {
		return fmt.Errorf("query unfinished postings: %w", err)
	}
	for _, id := range ids {
		if err := w.queries.SetPostingStatus(ctx, pdoflowsqlc.SetPostingStatusParams{
			ID:     id,
			Status: pdoflowsqlc.PostingStatusFinished,
		}); err != nil {
			w.logger.Error(err).LogActivity("failed to finalize posting during sweep", map[string]any{"postingID": id.String()})
		}
	}
	if len(ids) > 0 {
		w.logger.Info().LogActivity("sweep finalized postings", map[string]any{"count": len(ids)})
	}
	return nil
}
