package pdoflow

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/remiges-tech/logharbour/logharbour"
	"github.com/remiges-tech/pdoflow/metrics"
)

const (
	metricActiveWorkers = "pdoflow_active_workers"
	metricRespawns      = "pdoflow_worker_respawns_total"
)

func registerPoolMetrics(m metrics.Metrics) {
	registerMetricsOnce(m, "pool", func() {
		m.Register(metricActiveWorkers, "Gauge", "number of worker slots currently alive")
		m.Register(metricRespawns, "Counter", "total worker slots replaced after dying")
	})
}

var (
	metricsRegisteredMu sync.Mutex
	metricsRegistered   = make(map[metrics.Metrics]map[string]bool)
)

// registerMetricsOnce runs register the first time it is called for the
// (sink, group) pair and no-ops on every later call for that same pair,
// keyed per-sink rather than a single global sync.Once so that Worker's
// and Pool's independent registration sets don't shadow each other when
// they share a sink, and so tests constructing several independent
// Metrics instances each get their own registration. A real deployment
// has exactly one Prometheus registerer per process either way.
func registerMetricsOnce(m metrics.Metrics, group string, register func()) {
	metricsRegisteredMu.Lock()
	defer metricsRegisteredMu.Unlock()

	done, ok := metricsRegistered[m]
	if !ok {
		done = make(map[string]bool)
		metricsRegistered[m] = done
	}
	if done[group] {
		return
	}
	done[group] = true
	register()
}

// slot tracks one worker OS process. A nil cmd means the slot has never
// been started; upkeep treats that the same as a dead worker.
type slot struct {
	cmd *exec.Cmd
}

func (s *slot) alive() bool {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return false
	}
	// A *os.Process with no Wait() call yet has no ProcessState; Signal(0)
	// is the portable liveness probe that doesn't reap the child.
	return s.cmd.Process.Signal(syscallSignalZero()) == nil
}

// Pool is the worker pool supervisor of §4.4: a scoped resource that
// spawns N worker OS processes on Start and guarantees their teardown on
// Stop, exposing one periodic operation (upkeep) that replaces dead
// slots. Workers are spawned by re-invoking the current binary in worker
// mode (cmd/pdoflow-workerd), the Go analogue of the original's
// `multiprocessing.Process` fork -- there is no shared Go runtime state
// between the supervisor and its workers, which is what keeps the
// connection-ownership guard in connguard.go meaningful.
type Pool struct {
	WorkerArgs []string // extra argv appended after the "workerd" subcommand
	Logger     *logharbour.Logger
	Metrics    metrics.Metrics // optional; nil disables instrumentation

	mu    sync.Mutex
	slots []*slot

	// spawnFunc overrides spawn for tests that need to avoid re-execing
	// the real binary; nil means use spawn.
	spawnFunc func() (*slot, error)
}

func (p *Pool) doSpawn() (*slot, error) {
	if p.spawnFunc != nil {
		return p.spawnFunc()
	}
	return p.spawn()
}

// Start launches n workers, one per slot, and returns once all have been
// spawned (not once they've made progress -- workers are autonomous and
// database-driven, per §4.4).
func (p *Pool) Start(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.slots = make([]*slot, n)
	for i := range p.slots {
		s, err := p.doSpawn()
		if err != nil {
			return fmt.Errorf("spawn worker %d: %w", i, err)
		}
		p.slots[i] = s
	}
	return nil
}

// Stop kills every worker and waits for it to exit. Workers are ordinary
// child processes: a supervisor that exits without calling Stop leaves
// them running as orphans.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		if s == nil || s.cmd == nil || s.cmd.Process == nil {
			continue
		}
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
}

// Upkeep iterates the worker slots; any slot whose worker is no longer
// alive has its OS handles released and a fresh replacement started in
// the same slot. Called by the operator on a cadence derived from
// Config.UpkeepInterval. Never blocks on worker output.
func (p *Pool) Upkeep() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Metrics != nil {
		registerPoolMetrics(p.Metrics)
	}

	alive := 0
	for i, s := range p.slots {
		if s.alive() {
			alive++
			continue
		}
		if s != nil && s.cmd != nil && s.cmd.Process != nil {
			_ = s.cmd.Wait() // reap so the kernel releases the zombie
		}
		fresh, err := p.doSpawn()
		if err != nil {
			if p.Logger != nil {
				p.Logger.Error(err).LogActivity("failed to replace dead worker slot", map[string]any{"slot": i})
			}
			continue
		}
		p.slots[i] = fresh
		alive++
		if p.Metrics != nil {
			p.Metrics.Record(metricRespawns, 1)
		}
	}
	if p.Metrics != nil {
		p.Metrics.Record(metricActiveWorkers, float64(alive))
	}
	return nil
}

// Run calls Upkeep on Config.UpkeepInterval until ctx is cancelled, then
// stops the pool. This is the loop an operator binary wraps main() around.
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Stop()
			return
		case <-ticker.C:
			if err := p.Upkeep(); err != nil && p.Logger != nil {
				p.Logger.Error(err).LogActivity("upkeep failed", nil)
			}
		}
	}
}

func (p *Pool) spawn() (*slot, error) {
	args := append([]string{"workerd"}, p.WorkerArgs...)
	cmd := exec.Command(os.Args[0], args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &slot{cmd: cmd}, nil
}
