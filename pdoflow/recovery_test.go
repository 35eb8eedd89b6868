package pdoflow

import (
	"context"
	"log"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/remiges-tech/logharbour/logharbour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

func testLogger() *logharbour.Logger {
	return logharbour.NewLogger(&logharbour.LoggerContext{}, "pdoflow-test", log.Writer())
}

func newTestWorker(t *testing.T, redisClient *redis.Client) *Worker {
	t.Helper()
	return NewWorker(nil, redisClient, testLogger(), DefaultConfig())
}

func TestRecoverAbandonedRows_SkipsAliveWorkers(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()
	ctx := context.Background()

	w1 := newTestWorker(t, redisClient)
	require.NoError(t, w1.registerSelf(ctx))
	require.NoError(t, w1.refreshHeartbeat(ctx))

	w2 := newTestWorker(t, redisClient)
	require.NoError(t, w2.registerSelf(ctx))
	require.NoError(t, w2.refreshHeartbeat(ctx))

	recovered, err := w1.RecoverAbandonedRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, recovered)

	members, err := redisClient.SMembers(ctx, workerRegistryKey()).Result()
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestRecoverAbandonedRows_RecoversDeadWorkerRows(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()
	ctx := context.Background()

	dead := newTestWorker(t, redisClient)
	require.NoError(t, dead.registerSelf(ctx))
	// No heartbeat written for dead -- it is registered but its heartbeat
	// key is absent, which is exactly what a crashed worker looks like.

	abandoned := uuid.New()
	dead.trackBatch(ctx, []pdoflowsqlc.JobRecord{{ID: abandoned}})

	live := newTestWorker(t, redisClient)
	require.NoError(t, live.registerSelf(ctx))
	require.NoError(t, live.refreshHeartbeat(ctx))

	fake := &fakeResetQuerier{}
	live.queries = fake

	recovered, err := live.RecoverAbandonedRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)
	assert.Equal(t, []uuid.UUID{abandoned}, fake.resetIDs)

	members, err := redisClient.SMembers(ctx, workerRegistryKey()).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{live.instanceID}, members)
}

func TestWorkerShutdown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()
	ctx := context.Background()

	w := newTestWorker(t, redisClient)
	require.NoError(t, w.registerSelf(ctx))
	require.NoError(t, w.refreshHeartbeat(ctx))

	heartbeatKey := workerHeartbeatKey(w.instanceID)
	exists, err := redisClient.Exists(ctx, heartbeatKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	require.NoError(t, w.Shutdown(ctx))

	exists, err = redisClient.Exists(ctx, heartbeatKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)

	isMember, err := redisClient.SIsMember(ctx, workerRegistryKey(), w.instanceID).Result()
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestWorkerShutdown_LeavesRowsKeyForRecovery(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()
	ctx := context.Background()

	w := newTestWorker(t, redisClient)
	require.NoError(t, w.registerSelf(ctx))

	w.trackBatch(ctx, []pdoflowsqlc.JobRecord{{ID: uuid.New()}})

	rowsKey := workerRowsKey(w.instanceID)
	exists, err := redisClient.Exists(ctx, rowsKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	require.NoError(t, w.Shutdown(ctx))

	exists, err = redisClient.Exists(ctx, rowsKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists, "rows key should remain for recovery by peers")
}

func TestSweepUnfinishedPostings(t *testing.T) {
	fake := &fakeResetQuerier{unfinished: []uuid.UUID{uuid.New(), uuid.New()}}
	w := &Worker{queries: fake, logger: testLogger()}

	require.NoError(t, w.sweepUnfinishedPostings(context.Background()))
	assert.ElementsMatch(t, fake.unfinished, fake.finishedIDs)
}

// fakeResetQuerier implements the slice of pdoflowsqlc.Querier exercised
// by recovery.go's tests, avoiding a real database for logic that only
// touches Redis plus a couple of straight-through SQL calls.
type fakeResetQuerier struct {
	pdoflowsqlc.Querier
	resetIDs    []uuid.UUID
	unfinished  []uuid.UUID
	finishedIDs []uuid.UUID
}

func (f *fakeResetQuerier) ResetJobRecordsToWaiting(ctx context.Context, ids []uuid.UUID) error {
	f.resetIDs = append(f.resetIDs, ids...)
	return nil
}

func (f *fakeResetQuerier) GetUnfinishedExecutingPostings(ctx context.Context) ([]uuid.UUID, error) {
	return f.unfinished, nil
}

func (f *fakeResetQuerier) SetPostingStatus(ctx context.Context, arg pdoflowsqlc.SetPostingStatusParams) error {
	f.finishedIDs = append(f.finishedIDs, arg.ID)
	return nil
}
