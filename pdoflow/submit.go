package pdoflow

import (
	"context"
	"fmt"
	"os/user"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// Submit is the client-side half of §4's posting lifecycle (SPEC_FULL.md
// §5a): it creates one job_postings row and one job_records row per input,
// all within a single transaction, and flips the posting straight to
// 'executing' so workers can start claiming immediately. entryPoint must
// already be registered (see registry.go) -- Submit validates this before
// opening the transaction so a typo fails fast instead of leaving a
// posting stuck forever.
func Submit(ctx context.Context, pool *pgxpool.Pool, targetFunction, entryPoint, poster string, jobs []JobInput) (uuid.UUID, error) {
	if _, ok := Resolve(entryPoint); !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrEntryPointNotFound, entryPoint)
	}
	if len(jobs) == 0 {
		return uuid.Nil, fmt.Errorf("pdoflow: submit requires at least one job")
	}

	if poster == "" {
		u, err := user.Current()
		if err != nil {
			return uuid.Nil, fmt.Errorf("resolve default poster: %w", err)
		}
		poster = u.Username
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin submit transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := pdoflowsqlc.New(tx)

	postingID := uuid.New()
	if _, err := q.InsertJobPosting(ctx, pdoflowsqlc.InsertJobPostingParams{
		ID:             postingID,
		Poster:         poster,
		Status:         pdoflowsqlc.PostingStatusExecuting,
		TargetFunction: targetFunction,
		EntryPoint:     entryPoint,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("insert job posting: %w", err)
	}

	params := pdoflowsqlc.BulkInsertJobRecordsParams{
		ID:                  make([]uuid.UUID, len(jobs)),
		PostingID:           make([]uuid.UUID, len(jobs)),
		Priority:            make([]int32, len(jobs)),
		PositionalArguments: make([][]byte, len(jobs)),
		KeywordArguments:    make([][]byte, len(jobs)),
		TriesRemaining:      make([]int32, len(jobs)),
	}
	for i, j := range jobs {
		triesRemaining := int32(1)
		if j.TriesRemaining != nil {
			triesRemaining = *j.TriesRemaining
		}
		positional := j.PositionalArguments
		if positional == nil {
			positional = []byte("[]")
		}
		keyword := j.KeywordArguments
		if keyword == nil {
			keyword = []byte("{}")
		}

		params.ID[i] = uuid.New()
		params.PostingID[i] = postingID
		params.Priority[i] = j.Priority
		params.PositionalArguments[i] = positional
		params.KeywordArguments[i] = keyword
		params.TriesRemaining[i] = triesRemaining
	}

	if err := q.BulkInsertJobRecords(ctx, params); err != nil {
		return uuid.Nil, fmt.Errorf("bulk insert job records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit submit: %w", err)
	}

	return postingID, nil
}

// SubmitAndAwait is a convenience wrapper combining Submit with
// AwaitPostingCompletion, for callers that want a single blocking call
// rather than submit-then-poll. A caller that uses Submit alone and never
// polls leaves the posting 'executing' after its last record completes;
// only a poller or an explicit sweepUnfinishedPostings call finalizes it.
func SubmitAndAwait(ctx context.Context, pool *pgxpool.Pool, targetFunction, entryPoint, poster string, jobs []JobInput, pollInterval, maxWait time.Duration) (uuid.UUID, error) {
	postingID, err := Submit(ctx, pool, targetFunction, entryPoint, poster, jobs)
	if err != nil {
		return uuid.Nil, err
	}
	if err := AwaitPostingCompletion(ctx, pool, postingID, pollInterval, maxWait); err != nil {
		return postingID, err
	}
	return postingID, nil
}
