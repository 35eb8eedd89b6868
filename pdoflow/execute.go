package pdoflow

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remiges-tech/logharbour/logharbour"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// ErrWorkerInterrupted is returned by executeBatch when the context was
// cancelled mid-batch (operator-initiated abort, §4.2 step 6): the open
// transaction is rolled back, the record is left in 'executing', and the
// caller is expected to exit the worker process.
var ErrWorkerInterrupted = errors.New("pdoflow: worker interrupted")

// postingCache avoids one GetJobPosting round-trip per record within a
// claimed batch; postings rarely change mid-batch and a stale entry_point
// read is no worse than reading it once at claim time.
type postingCache map[uuidKey]pdoflowsqlc.JobPosting

type uuidKey = [16]byte

// profileSampleRate is the probability any one record's invocation is
// profiled, mirroring original_source/models.py's 10%-chance
// traced_execution (SPEC_FULL.md §4a). A nil profiler disables sampling
// entirely rather than sampling into a no-op, matching how a nil Metrics
// disables instrumentation in manager.go. A var, not a const, so tests can
// pin it to 0 or 1 instead of depending on actual randomness.
var profileSampleRate = 0.10

// executeBatch runs the §4.2 loop over one claimed batch, in order. It
// stops early and returns ErrWorkerInterrupted if ctx is cancelled between
// records, leaving any record not yet reached untouched (still
// 'executing', picked up again only by recovery or operator cleanup).
func executeBatch(ctx context.Context, pool *pgxpool.Pool, q pdoflowsqlc.Querier, fc *failureCache, logger *logharbour.Logger, profiler *Profiler, records []pdoflowsqlc.JobRecord) error {
	postings := make(postingCache)

	for _, r := range records {
		select {
		case <-ctx.Done():
			return ErrWorkerInterrupted
		default:
		}

		if err := executeOne(ctx, pool, q, fc, logger, profiler, postings, r); err != nil {
			if errors.Is(err, ErrWorkerInterrupted) {
				return err
			}
			logger.Error(err).LogActivity("record execution failed", map[string]any{"recordID": r.ID.String()})
		}
	}
	return nil
}

func executeOne(ctx context.Context, pool *pgxpool.Pool, q pdoflowsqlc.Querier, fc *failureCache, logger *logharbour.Logger, profiler *Profiler, postings postingCache, r pdoflowsqlc.JobRecord) error {
	// Step 1: local blacklist short-circuits before any invocation.
	if fc.blacklisted(r.PostingID) {
		return q.FailJobRecordTerminal(ctx, pdoflowsqlc.FailJobRecordTerminalParams{ID: r.ID})
	}

	posting, err := lookupPosting(ctx, q, postings, r.PostingID)
	if err != nil {
		return err
	}

	// Step 3: resolve the callable. A missing entry-point is treated as a
	// user-code failure, never a crash (spec.md §7).
	fn, ok := Resolve(posting.EntryPoint)
	if !ok {
		return fc.handleFailureAndLog(ctx, q, logger, r, ErrEntryPointNotFound)
	}

	positional, keyword, err := DecodeJobArguments(r.PositionalArguments, r.KeywordArguments)
	if err != nil {
		return fc.handleFailureAndLog(ctx, q, logger, r, err)
	}

	// Step 4: invoke. work_started_on is stamped per record, immediately
	// before the call, not at claim time -- a batch claimed together can
	// still queue inside the worker for a while before its turn comes up,
	// and waiting_time/time_elapsed (spec.md §3) are only meaningful if
	// work_started_on reflects when this particular record actually
	// started. The callable's own context handling governs how long it
	// may block; the core layer imposes no deadline (spec.md §5).
	if err := q.StartJobRecordExecution(ctx, r.ID); err != nil {
		return err
	}

	var callErr error
	if profiler != nil && rand.Float64() < profileSampleRate {
		callErr = profiler.Profile(ctx, r.ID, posting.EntryPoint, func() error {
			_, err := fn(ctx, positional, keyword)
			return err
		})
	} else {
		_, callErr = fn(ctx, positional, keyword)
	}

	if callErr == nil {
		// Step 5: success.
		if err := q.CompleteJobRecord(ctx, pdoflowsqlc.CompleteJobRecordParams{ID: r.ID}); err != nil {
			return err
		}
		logger.Info().LogDataChange("job record completed", logharbour.ChangeInfo{
			Entity: "job_record",
			Op:     "done",
		})
		return nil
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		// Step 6: cooperative interruption.
		return ErrWorkerInterrupted
	}

	if isTransientDBError(callErr) {
		// Step 7: transient DB connectivity failure.
		time.Sleep(time.Duration(rand.Float64() * float64(2*time.Second)))
		return q.RevertJobRecordToWaiting(ctx, r.ID)
	}

	// Step 8: any other failure goes through the failure cache.
	return fc.handleFailureAndLog(ctx, q, logger, r, callErr)
}

func (c *failureCache) handleFailureAndLog(ctx context.Context, q pdoflowsqlc.Querier, logger *logharbour.Logger, r pdoflowsqlc.JobRecord, cause error) error {
	outcome, err := c.onNonTransientFailure(ctx, q, r)
	if err != nil {
		return err
	}
	logger.Warn().LogActivity("job record failed", map[string]any{
		"recordID": r.ID.String(),
		"cause":    cause.Error(),
		"outcome":  outcome,
	})
	return nil
}

func lookupPosting(ctx context.Context, q pdoflowsqlc.Querier, cache postingCache, postingID [16]byte) (pdoflowsqlc.JobPosting, error) {
	if p, ok := cache[postingID]; ok {
		return p, nil
	}
	p, err := q.GetJobPosting(ctx, postingID)
	if err != nil {
		return pdoflowsqlc.JobPosting{}, err
	}
	cache[postingID] = p
	return p, nil
}

// DecodeJobArguments unmarshals a job record's raw positional and keyword
// argument columns into the shapes an EntryPoint expects. Exported so the
// operator CLI's ad-hoc run subcommand can invoke an entry point the same
// way the worker's execution loop does.
func DecodeJobArguments(positionalArguments, keywordArguments []byte) ([]json.RawMessage, map[string]json.RawMessage, error) {
	var positional []json.RawMessage
	if err := json.Unmarshal(positionalArguments, &positional); err != nil {
		return nil, nil, err
	}
	keyword := map[string]json.RawMessage{}
	if len(keywordArguments) > 0 {
		if err := json.Unmarshal(keywordArguments, &keyword); err != nil {
			return nil, nil, err
		}
	}
	return positional, keyword, nil
}

// isTransientDBError distinguishes a connectivity failure (socket reset,
// connection refused) from an ordinary SQL error raised by user code or
// the core layer's own queries. pgconn.PgError with a non-empty SQLState
// is a server-side rejection, not a transient connectivity fault;
// anything else bubbling out of a *pgconn operation is treated as
// transient, matching spec.md §7's "socket reset mid-query" example.
func isTransientDBError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// A structured server-side error (constraint violation, bad SQL) is
		// a rejection, not a connectivity fault.
		return false
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	// pgx surfaces mid-query socket resets as plain wrapped net errors
	// rather than a typed sentinel. pgconn.SafeToRetry reports exactly
	// this class: the error occurred before any bytes of the query were
	// sent, i.e. a connectivity fault rather than a server-side rejection.
	return pgconn.SafeToRetry(err)
}
