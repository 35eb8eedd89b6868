package pdoflow

import (
	"context"
	"os"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// connOwnerTag records the PID that created a connection. Tags live in the
// package-level connOwners map, keyed by *pgx.Conn; AfterConnect adds an
// entry and BeforeClose removes it, so closed connections leave nothing
// behind.
type connOwnerTag struct {
	pid int
}

var connOwners = struct {
	mu sync.Mutex
	m  map[*pgx.Conn]connOwnerTag
}{m: make(map[*pgx.Conn]connOwnerTag)}

// InstallConnectionOwnershipGuard configures cfg so that every physical
// connection is tagged at connect-time with its creator's PID, and
// checked at checkout-time against the current process's PID (§4.6).
//
// Go's pgxpool is not forked the way a Python object graph can be pickled
// across a multiprocessing.Process boundary, so in ordinary use this
// guard never fires: each worker here is a genuine child OS process (see
// pool.go) that builds its own pgxpool.Pool from scratch and never
// inherits the parent's. The guard remains meaningful defense-in-depth
// for any future code path that passes a *pgxpool.Pool across an
// exec/fork boundary via an inherited file descriptor, the hazard this
// component exists to close.
func InstallConnectionOwnershipGuard(cfg *pgxpool.Config) {
	creatorPID := os.Getpid()

	origAfterConnect := cfg.AfterConnect
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if origAfterConnect != nil {
			if err := origAfterConnect(ctx, conn); err != nil {
				return err
			}
		}
		connOwners.mu.Lock()
		connOwners.m[conn] = connOwnerTag{pid: creatorPID}
		connOwners.mu.Unlock()
		return nil
	}

	origBeforeAcquire := cfg.BeforeAcquire
	cfg.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		if origBeforeAcquire != nil && !origBeforeAcquire(ctx, conn) {
			return false
		}
		connOwners.mu.Lock()
		tag, ok := connOwners.m[conn]
		if ok && tag.pid != os.Getpid() {
			// Detach: refuse to hand this connection to a different
			// process than the one that opened it. Returning false tells
			// pgxpool to destroy the connection and open a fresh one.
			delete(connOwners.m, conn)
			connOwners.mu.Unlock()
			return false
		}
		connOwners.mu.Unlock()
		return true
	}

	origBeforeClose := cfg.BeforeClose
	cfg.BeforeClose = func(conn *pgx.Conn) {
		if origBeforeClose != nil {
			origBeforeClose(conn)
		}
		connOwners.mu.Lock()
		delete(connOwners.m, conn)
		connOwners.mu.Unlock()
	}
}
