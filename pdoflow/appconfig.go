package pdoflow

import (
	"fmt"
	"os/user"
	"strconv"
	"time"

	"github.com/remiges-tech/pdoflow/config"
)

// LoadConfigFromEnv reads the PDOFLOW_* environment variables documented in
// SPEC_FULL.md §2a into a Config, falling back to DefaultConfig's values
// for anything unset. PDOFLOW_POSTER falls back to the OS user, mirroring
// the original's getpass.getuser() default.
func LoadConfigFromEnv(env *config.Env) (Config, error) {
	cfg := DefaultConfig()

	if v, err := env.Get("POSTER"); err == nil {
		cfg.Poster = v
	} else {
		u, uerr := user.Current()
		if uerr != nil {
			return Config{}, fmt.Errorf("resolve default poster: %w", uerr)
		}
		cfg.Poster = u.Username
	}

	if v, err := env.Get("BATCHSIZE"); err == nil {
		n, perr := strconv.ParseInt(v, 10, 32)
		if perr != nil {
			return Config{}, fmt.Errorf("parse PDOFLOW_BATCHSIZE: %w", perr)
		}
		cfg.BatchSize = int32(n)
	}

	if v, err := env.Get("FAILURE_THRESHOLD"); err == nil {
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return Config{}, fmt.Errorf("parse PDOFLOW_FAILURE_THRESHOLD: %w", perr)
		}
		cfg.FailureThreshold = n
	}

	if v, err := env.Get("IDLE_INTERVAL"); err == nil {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return Config{}, fmt.Errorf("parse PDOFLOW_IDLE_INTERVAL: %w", perr)
		}
		cfg.IdleInterval = d
	}

	if v, err := env.Get("UPKEEP_INTERVAL"); err == nil {
		d, perr := time.ParseDuration(v)
		if perr != nil {
			return Config{}, fmt.Errorf("parse PDOFLOW_UPKEEP_INTERVAL: %w", perr)
		}
		cfg.UpkeepInterval = d
	}

	return cfg, nil
}

// PgDSN builds a libpq-style connection string from the PDOFLOW_PG*
// environment variables (§2a), the Go analogue of the original's reliance
// on unadorned os.environ lookups plus a psycopg connect() call.
func PgDSN(env *config.Env) (string, error) {
	host, err := env.Get("PGHOST")
	if err != nil {
		return "", fmt.Errorf("PDOFLOW_PGHOST: %w", err)
	}
	port, err := env.Get("PGPORT")
	if err != nil {
		port = "5432"
	}
	database, err := env.Get("PGDATABASE")
	if err != nil {
		return "", fmt.Errorf("PDOFLOW_PGDATABASE: %w", err)
	}
	user, err := env.Get("PGUSER")
	if err != nil {
		return "", fmt.Errorf("PDOFLOW_PGUSER: %w", err)
	}
	password, _ := env.Get("PGPASSWORD")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, password, host, port, database), nil
}

// RedisAddr returns PDOFLOW_REDIS_ADDR if set, and ok=false if dead-worker
// recovery (§9a) should stay disabled.
func RedisAddr(env *config.Env) (addr string, ok bool) {
	v, err := env.Get("REDIS_ADDR")
	if err != nil {
		return "", false
	}
	return v, true
}

// MinioConfig is what's needed to dial the object store profiler artifacts
// are uploaded to (see profiler.go). ok=false means PDOFLOW_MINIO_ENDPOINT
// is unset and profiling's call-graph uploads should stay disabled -- the
// profile summary row is still written either way.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioConfigFromEnv reads the PDOFLOW_MINIO_* variables (§2a).
func MinioConfigFromEnv(env *config.Env) (cfg MinioConfig, ok bool) {
	endpoint, err := env.Get("MINIO_ENDPOINT")
	if err != nil {
		return MinioConfig{}, false
	}
	accessKey, _ := env.Get("MINIO_ACCESS_KEY")
	secretKey, _ := env.Get("MINIO_SECRET_KEY")
	useSSL := false
	if v, err := env.Get("MINIO_USE_SSL"); err == nil {
		useSSL = v == "true" || v == "1"
	}
	return MinioConfig{Endpoint: endpoint, AccessKey: accessKey, SecretKey: secretKey, UseSSL: useSSL}, true
}
