package pdoflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

func TestAwaitPostingCompletion_FinalizesOnceAllRecordsDone(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.poll1", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "poll1", "test.poll1", "poller", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	q := pdoflowsqlc.New(pool)
	records, err := claim(ctx, pool, "poller", 10, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NoError(t, q.CompleteJobRecord(ctx, pdoflowsqlc.CompleteJobRecordParams{ID: records[0].ID}))

	err = AwaitPostingCompletion(ctx, pool, postingID, 10*time.Millisecond, time.Second)
	require.NoError(t, err)

	posting, err := q.GetJobPosting(ctx, postingID)
	require.NoError(t, err)
	assert.Equal(t, pdoflowsqlc.PostingStatusFinished, posting.Status)
}

func TestAwaitPostingCompletion_TimesOutWhenNeverFinished(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.poll2", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "poll2", "test.poll2", "poller2", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	err = AwaitPostingCompletion(ctx, pool, postingID, 10*time.Millisecond, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrAwaitTimeout)
}

func TestAwaitPostingCompletion_UnknownPostingReturnsNotFound(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	err := AwaitPostingCompletion(ctx, pool, uuid.New(), 10*time.Millisecond, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrPostingNotFound)
}

func TestPollPosting_StreamsUntilFinished(t *testing.T) {
	pool := newTestPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	registerTestEntryPoint(t, "test.poll3", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "poll3", "test.poll3", "poller3", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	q := pdoflowsqlc.New(pool)
	records, err := claim(ctx, pool, "poller3", 10, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NoError(t, q.CompleteJobRecord(ctx, pdoflowsqlc.CompleteJobRecordParams{ID: records[0].ID}))

	var last PostingSnapshot
	for snap := range PollPosting(ctx, pool, postingID, 10*time.Millisecond) {
		last = snap
	}
	assert.Equal(t, pdoflowsqlc.PostingStatusFinished, last.Status)
	assert.EqualValues(t, 1, last.TotalJobsDone)
}

func TestPollPosting_UnknownPostingClosesImmediately(t *testing.T) {
	pool := newTestPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	count := 0
	for range PollPosting(ctx, pool, uuid.New(), 10*time.Millisecond) {
		count++
	}
	assert.Zero(t, count)
}

func TestPollPostingPercent_ReflectsProgress(t *testing.T) {
	pool := newTestPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	registerTestEntryPoint(t, "test.poll4", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "poll4", "test.poll4", "poller4", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	pctCh := PollPostingPercent(ctx, pool, postingID, 10*time.Millisecond)
	first := <-pctCh
	assert.Equal(t, float64(0), first)

	q := pdoflowsqlc.New(pool)
	records, err := claim(ctx, pool, "poller4", 1, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NoError(t, q.CompleteJobRecord(ctx, pdoflowsqlc.CompleteJobRecordParams{ID: records[0].ID}))

	deadline := time.After(time.Second)
	for {
		select {
		case pct := <-pctCh:
			if pct == 50 {
				return
			}
		case <-deadline:
			t.Fatal("never observed 50% progress")
		}
	}
}

func TestPollJobStatusCount_CountsWaitingRecords(t *testing.T) {
	pool := newTestPool(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	registerTestEntryPoint(t, "test.poll5", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "poll5", "test.poll5", "poller5", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	countCh := PollJobStatusCount(ctx, pool, postingID, pdoflowsqlc.JobStatusWaiting, 10*time.Millisecond)
	n := <-countCh
	assert.EqualValues(t, 2, n)
}

func TestAwaitForStatusThreshold_CustomPredicate(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	registerTestEntryPoint(t, "test.poll6", func(ctx context.Context, positional []json.RawMessage, keyword map[string]json.RawMessage) (json.RawMessage, error) {
		return nil, nil
	})

	postingID, err := Submit(ctx, pool, "poll6", "test.poll6", "poller6", []JobInput{
		{PositionalArguments: json.RawMessage(`[]`)},
	})
	require.NoError(t, err)

	err = AwaitForStatusThreshold(ctx, pool, postingID, pdoflowsqlc.JobStatusWaiting, 10*time.Millisecond, time.Second,
		func(count int64) bool { return count >= 1 })
	require.NoError(t, err)
}
