package pdoflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// newTestPool starts a disposable Postgres container, runs the schema
// migrations against it, and returns a connected pool. Mirrors the
// teacher's own multi-worker integration test setup.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test requiring Docker")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	conn, err := pgx.Connect(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, MigrateDatabase(ctx, conn))
	conn.Close(ctx)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func registerTestEntryPoint(t *testing.T, name string, fn EntryPoint) {
	t.Helper()
	Register(name, fn)
	t.Cleanup(func() {
		registry.mu.Lock()
		delete(registry.funcs, name)
		registry.mu.Unlock()
	})
}

func TestSubmit_CreatesPostingAndRecords(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.echo", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`"ok"`), nil
	})

	postingID, err := Submit(ctx, pool, "echo", "test.echo", "tester", []JobInput{
		{Priority: 1, PositionalArguments: json.RawMessage(`[1]`)},
		{Priority: 2, PositionalArguments: json.RawMessage(`[2]`)},
	})
	require.NoError(t, err)
	assert.NotEqual(t, postingID.String(), "00000000-0000-0000-0000-000000000000")

	q := pdoflowsqlc.New(pool)
	posting, err := q.GetJobPosting(ctx, postingID)
	require.NoError(t, err)
	assert.Equal(t, pdoflowsqlc.PostingStatusExecuting, posting.Status)
	assert.Equal(t, "tester", posting.Poster)
	assert.Equal(t, "test.echo", posting.EntryPoint)

	counts, err := q.GetPostingCounts(ctx, postingID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts.TotalJobs)
	assert.EqualValues(t, 0, counts.TotalJobsDone)
}

// TestSubmit_RoundTripsFieldsBitIdentically guards spec.md §8's bit-identical
// round-trip invariant: every submitted field, including TriesRemaining: 0,
// must come back out of storage exactly as given. Zero tries remaining means
// "never retry" and must not be silently rewritten to the default of 1.
func TestSubmit_RoundTripsFieldsBitIdentically(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.roundtrip", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	zero := int32(0)
	five := int32(5)
	postingID, err := Submit(ctx, pool, "roundtrip", "test.roundtrip", "tester", []JobInput{
		{
			Priority:            7,
			PositionalArguments: json.RawMessage(`[1,2,3]`),
			KeywordArguments:    json.RawMessage(`{"a":1}`),
			TriesRemaining:      &zero,
		},
		{
			Priority:            9,
			PositionalArguments: json.RawMessage(`["x"]`),
			KeywordArguments:    json.RawMessage(`{"b":2}`),
			TriesRemaining:      &five,
		},
		{
			PositionalArguments: json.RawMessage(`[]`),
		},
	})
	require.NoError(t, err)

	q := pdoflowsqlc.New(pool)
	ids, err := q.GetPendingJobRecordIDs(ctx, postingID)
	require.NoError(t, err)
	require.Len(t, ids, 3)

	byArgs := make(map[string]pdoflowsqlc.JobRecord, len(ids))
	for _, id := range ids {
		r, err := q.GetJobRecord(ctx, id)
		require.NoError(t, err)
		byArgs[string(r.PositionalArguments)] = r
	}

	r1 := byArgs[`[1,2,3]`]
	assert.EqualValues(t, 7, r1.Priority)
	assert.JSONEq(t, `{"a":1}`, string(r1.KeywordArguments))
	assert.EqualValues(t, 0, r1.TriesRemaining, "TriesRemaining: 0 must round-trip as 0, not be coerced to the default")

	r2 := byArgs[`["x"]`]
	assert.EqualValues(t, 9, r2.Priority)
	assert.JSONEq(t, `{"b":2}`, string(r2.KeywordArguments))
	assert.EqualValues(t, 5, r2.TriesRemaining)

	r3 := byArgs[`[]`]
	assert.EqualValues(t, 0, r3.Priority)
	assert.EqualValues(t, 1, r3.TriesRemaining, "nil TriesRemaining defaults to 1")
}

func TestSubmit_UnknownEntryPointFails(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	_, err := Submit(ctx, pool, "echo", "test.does-not-exist", "tester", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	assert.ErrorIs(t, err, ErrEntryPointNotFound)
}

func TestSubmit_NoJobsFails(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.noop", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	_, err := Submit(ctx, pool, "noop", "test.noop", "tester", nil)
	assert.Error(t, err)
}

func TestVariables_SetGetDelete(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.vars", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "vars", "test.vars", "tester", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	type counter struct {
		N int `json:"n"`
	}

	require.NoError(t, SetVariable(ctx, pool, postingID, "progress", counter{N: 3}))

	var got counter
	require.NoError(t, GetVariable(ctx, pool, postingID, "progress", &got))
	assert.Equal(t, 3, got.N)

	require.NoError(t, DeleteVariable(ctx, pool, postingID, "progress"))

	err = GetVariable(ctx, pool, postingID, "progress", &got)
	assert.ErrorIs(t, err, ErrVariableNotFound)
}

func TestVariables_NotFoundBeforeSet(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.vars2", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "vars2", "test.vars2", "tester", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	var dest string
	err = GetVariable(ctx, pool, postingID, "missing", &dest)
	assert.ErrorIs(t, err, ErrVariableNotFound)
}
