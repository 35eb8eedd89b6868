package pdoflow

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/remiges-tech/logharbour/logharbour"
	"github.com/remiges-tech/pdoflow/metrics"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// Metric names recorded by Worker.Run when Metrics is set. Registered
// lazily on first use so a Worker with Metrics == nil never touches the
// registry and tests never need a Prometheus default registerer.
const (
	metricRecordsClaimed = "pdoflow_records_claimed_total"
	metricClaimErrors    = "pdoflow_claim_errors_total"
	metricIdleSleeps     = "pdoflow_idle_sleeps_total"
	metricBatchSize      = "pdoflow_claim_batch_size"
)

// Worker is one instance of the §4.4 "worker" -- a single
// cooperatively-structured loop that claims, executes, and accounts for
// failures, with its own in-process failure cache (§4.3) that is never
// shared with peers. In the shipped binary one Worker runs per OS
// process, spawned by Pool (pool.go); tests may construct several in one
// process against the same pool to exercise the disjoint-claim property
// (spec.md §8 scenario 5) without paying for real child processes.
type Worker struct {
	db          *pgxpool.Pool
	queries     pdoflowsqlc.Querier
	redisClient *redis.Client
	logger      *logharbour.Logger
	config      Config
	instanceID  string

	failures *failureCache

	// Metrics is optional; a nil Metrics disables instrumentation
	// entirely rather than recording into a no-op sink, matching how
	// redisClient == nil disables recovery above.
	Metrics metrics.Metrics

	// Profiler is optional; a nil Profiler means no record's invocation is
	// ever sampled for profiling (§4a). Set it to enable the 10%-chance
	// profiling original_source/models.py performs on every execution.
	Profiler *Profiler
}

// NewWorker builds a Worker bound to db for claims/execution and an
// optional redisClient for heartbeat-based recovery (nil disables
// recovery and falls back exactly to spec.md's documented behavior, per
// SPEC_FULL.md §9a).
func NewWorker(db *pgxpool.Pool, redisClient *redis.Client, logger *logharbour.Logger, cfg Config) *Worker {
	return &Worker{
		db:          db,
		queries:     pdoflowsqlc.New(db),
		redisClient: redisClient,
		logger:      logger,
		config:      cfg,
		instanceID:  uuid.NewString(),
		failures:    newFailureCache(cfg.FailureThreshold),
	}
}

// Run is the worker's main loop (§4.4, last paragraph): attempt to claim,
// execute the returned batch, and sleep Config.IdleInterval on an empty
// claim. It runs until ctx is cancelled (operator interruption, §5), at
// which point it returns ErrWorkerInterrupted if it was mid-batch or nil
// if it was idle.
func (w *Worker) Run(ctx context.Context) error {
	if w.redisClient != nil {
		go w.runHeartbeat()
		go w.runPeriodicRecovery(ctx)
	}
	if w.Metrics != nil {
		registerWorkerMetrics(w.Metrics)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		blacklist := w.failures.blacklist()

		records, err := claim(ctx, w.db, w.config.Poster, w.config.BatchSize, blacklist)
		if err != nil {
			w.logger.Error(err).LogActivity("claim failed", nil)
			if w.Metrics != nil {
				w.Metrics.Record(metricClaimErrors, 1)
			}
			if sleepOrDone(ctx, w.config.IdleInterval) {
				return nil
			}
			continue
		}

		if len(records) == 0 {
			if w.Metrics != nil {
				w.Metrics.Record(metricIdleSleeps, 1)
			}
			if sleepOrDone(ctx, w.config.IdleInterval) {
				return nil
			}
			continue
		}

		if w.Metrics != nil {
			w.Metrics.Record(metricRecordsClaimed, float64(len(records)))
			w.Metrics.Record(metricBatchSize, float64(len(records)))
		}

		w.trackBatch(ctx, records)
		err = executeBatch(ctx, w.db, w.queries, w.failures, w.logger, w.Profiler, records)
		w.untrackBatch(records)
		if err != nil {
			return err
		}
	}
}

// registerWorkerMetrics registers the worker-loop metric names against m
// exactly once per distinct m, regardless of how many Worker instances
// share it -- Prometheus's default registerer panics on a duplicate name.
func registerWorkerMetrics(m metrics.Metrics) {
	registerMetricsOnce(m, "worker", func() {
		m.Register(metricRecordsClaimed, "Counter", "total job records claimed by this worker")
		m.Register(metricClaimErrors, "Counter", "total claim attempts that returned an error")
		m.Register(metricIdleSleeps, "Counter", "total idle sleeps after an empty claim")
		m.Register(metricBatchSize, "Histogram", "size of each non-empty claimed batch")
	})
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return true
	case <-time.After(d):
		return false
	}
}

// blacklist returns the posting IDs this worker has locally blacklisted,
// for use as the claim query's exclusion list.
func (c *failureCache) blacklist() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.bad))
	for id := range c.bad {
		ids = append(ids, id)
	}
	return ids
}
