package pdoflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

func TestClaim_RespectsBatchSizeAndOrdering(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.claim", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "claim", "test.claim", "claimant", []JobInput{
		{Priority: 1, PositionalArguments: json.RawMessage(`[]`)},
		{Priority: 5, PositionalArguments: json.RawMessage(`[]`)},
		{Priority: 3, PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	records, err := claim(ctx, pool, "claimant", 2, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Highest priority first.
	assert.EqualValues(t, 5, records[0].Priority)
	assert.EqualValues(t, 3, records[1].Priority)
	for _, r := range records {
		assert.Equal(t, pdoflowsqlc.JobStatusExecuting, r.Status)
		assert.Equal(t, postingID, r.PostingID)
	}

	// A second claim only sees the one remaining waiting record.
	remaining, err := claim(ctx, pool, "claimant", 10, nil)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.EqualValues(t, 1, remaining[0].Priority)
}

func TestClaim_IgnoresOtherPostersRecords(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.claim2", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	_, err := Submit(ctx, pool, "claim2", "test.claim2", "poster-a", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	records, err := claim(ctx, pool, "poster-b", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClaim_LeavesWorkStartedOnNull(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.claim4", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	_, err := Submit(ctx, pool, "claim4", "test.claim4", "claimant4", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	records, err := claim(ctx, pool, "claimant4", 10, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// work_started_on is stamped per record at actual invocation time
	// (executeOne), not by claim -- see execute_integration_test.go.
	assert.False(t, records[0].WorkStartedOn.Valid)
}

func TestClaim_RespectsBlacklist(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.claim3", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "claim3", "test.claim3", "claimant3", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	records, err := claim(ctx, pool, "claimant3", 10, []uuid.UUID{postingID})
	require.NoError(t, err)
	assert.Empty(t, records)
}
