// Command pdoflow-workerd is both the worker-pool supervisor and, when
// invoked with "workerd" as its first argument, a single worker leaf
// process. pdoflow.Pool spawns leaf processes by re-executing
// os.Args[0] (this same binary) with "workerd" appended (see
// SPEC_FULL.md §8a and pool.go) -- so this binary's default mode (no
// arguments, or "pool") is the supervisor, and "workerd" is a hidden
// subcommand an operator never types by hand.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/remiges-tech/pdoflow/config"
	"github.com/remiges-tech/pdoflow/logger"
	"github.com/remiges-tech/pdoflow/metrics"
	"github.com/remiges-tech/pdoflow/pdoflow"
	"github.com/remiges-tech/pdoflow/pdoflow/objstore"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// newProfiler builds a Profiler wired to pool, attaching an object store
// only if PDOFLOW_MINIO_ENDPOINT is set. A Profiler with a nil Store still
// records the summary row for every sampled execution (§4a); it just skips
// the call-graph artifact upload.
func newProfiler(pool *pgxpool.Pool, env *config.Env) *pdoflow.Profiler {
	p := &pdoflow.Profiler{Queries: pdoflowsqlc.New(pool)}

	mc, ok := pdoflow.MinioConfigFromEnv(env)
	if !ok {
		return p
	}
	client, err := minio.New(mc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(mc.AccessKey, mc.SecretKey, ""),
		Secure: mc.UseSSL,
	})
	if err != nil {
		log.Printf("pdoflow-workerd: minio client: %v, profiling call-graph upload disabled", err)
		return p
	}
	p.Store = objstore.NewMinioObjectStore(client)
	return p
}

// startMetrics returns a Prometheus sink and serves /metrics on
// PDOFLOW_METRICS_PORT until ctx is cancelled, or returns nil if the
// operator hasn't set a port for this process. Both the supervisor and
// each leaf worker call this independently -- since each is its own OS
// process, an operator who wants both exposed assigns distinct ports (the
// pool's via PDOFLOW_METRICS_PORT, each worker's via its own WorkerArgs
// override).
func startMetrics(ctx context.Context, env *config.Env) metrics.Metrics {
	port, err := env.Get("METRICS_PORT")
	if err != nil {
		return nil
	}
	m := metrics.NewPrometheusMetrics()
	go func() {
		if err := m.StartMetricsServer(ctx, port); err != nil {
			log.Printf("pdoflow-workerd: metrics server: %v", err)
		}
	}()
	return m
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "workerd" {
		runLeafWorker()
		return
	}
	runSupervisor()
}

func connectPool(ctx context.Context, env *config.Env) (*pgxpool.Pool, error) {
	dsn, err := pdoflow.PgDSN(env)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pdoflow.InstallConnectionOwnershipGuard(poolCfg)
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

func withCancelOnSignal() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

// runLeafWorker is one pdoflow.Worker's whole lifetime: connect, claim and
// execute until interrupted, deregister.
func runLeafWorker() {
	env := &config.Env{Prefix: "PDOFLOW_"}

	cfg, err := pdoflow.LoadConfigFromEnv(env)
	if err != nil {
		log.Fatalf("pdoflow-workerd: load config: %v", err)
	}

	ctx, cancel := withCancelOnSignal()
	defer cancel()

	pool, err := connectPool(ctx, env)
	if err != nil {
		log.Fatalf("pdoflow-workerd: connect: %v", err)
	}
	defer pool.Close()

	var redisClient *redis.Client
	if addr, ok := pdoflow.RedisAddr(env); ok {
		redisClient = redis.NewClient(&redis.Options{Addr: addr})
		defer redisClient.Close()
	}

	lh := logger.LoadRawLogger("pdoflow-workerd")
	worker := pdoflow.NewWorker(pool, redisClient, lh, cfg)
	worker.Metrics = startMetrics(ctx, env)
	worker.Profiler = newProfiler(pool, env)

	if err := worker.Run(ctx); err != nil {
		_ = worker.Shutdown(context.Background())
		log.Fatalf("pdoflow-workerd: worker exited: %v", err)
	}
	_ = worker.Shutdown(context.Background())
}

// runSupervisor starts PDOFLOW_WORKER_COUNT worker slots (default 1) and
// keeps them replenished until interrupted.
func runSupervisor() {
	env := &config.Env{Prefix: "PDOFLOW_"}

	cfg, err := pdoflow.LoadConfigFromEnv(env)
	if err != nil {
		log.Fatalf("pdoflow-workerd: load config: %v", err)
	}

	workerCount := 1
	if v, err := env.Get("WORKER_COUNT"); err == nil {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			log.Fatalf("pdoflow-workerd: parse PDOFLOW_WORKER_COUNT: %v", perr)
		}
		workerCount = n
	}

	lh := logger.LoadRawLogger("pdoflow-workerd-supervisor")

	ctx, cancel := withCancelOnSignal()

	p := &pdoflow.Pool{Logger: lh, Metrics: startMetrics(ctx, env)}
	if err := p.Start(workerCount); err != nil {
		log.Fatalf("pdoflow-workerd: start pool: %v", err)
	}
	defer cancel()

	p.Run(ctx, cfg.UpkeepInterval)
}
