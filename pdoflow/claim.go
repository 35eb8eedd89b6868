package pdoflow

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// claim runs the §4.1 claim protocol: select up to batchsize waiting
// records belonging to postings this worker's poster owns, order them by
// priority then age, lock them with SKIP LOCKED so concurrent claimants
// never overlap, and flip the claimed rows to 'executing' before
// committing. The transaction's commit is the durable handoff; only after
// it succeeds are the rows considered this worker's responsibility.
func claim(ctx context.Context, pool *pgxpool.Pool, poster string, batchSize int32, blacklist []uuid.UUID) ([]pdoflowsqlc.JobRecord, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := pdoflowsqlc.New(tx)

	if blacklist == nil {
		blacklist = []uuid.UUID{}
	}

	records, err := q.ClaimJobRecords(ctx, pdoflowsqlc.ClaimJobRecordsParams{
		Poster:            poster,
		BlacklistPostings: blacklist,
		BatchSize:         batchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("claim job records: %w", err)
	}

	if len(records) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]uuid.UUID, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}

	if err := q.MarkJobRecordsExecuting(ctx, ids); err != nil {
		return nil, fmt.Errorf("flip claimed records to executing: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	for i := range records {
		records[i].Status = pdoflowsqlc.JobStatusExecuting
	}

	return records, nil
}
