// Command pdoflowctl is the operator's inspection and control surface for
// a running pdoflow deployment (SPEC_FULL.md §7a): list recent postings,
// show a posting's progress, pause/resume a posting, inspect its waiting
// backlog by priority, and run a single job record ad hoc for debugging.
// It talks to Postgres directly -- there is no separate control-plane
// service, mirroring how the workers themselves only ever need a DSN.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/remiges-tech/pdoflow/config"
	"github.com/remiges-tech/pdoflow/pdoflow"
	"github.com/remiges-tech/pdoflow/wscutils"
)

// Exit codes, per SPEC_FULL.md §7a: 0 success, 1 not-found, 2 invalid
// input or usage error.
const (
	exitOK       = 0
	exitNotFound = 1
	exitBadInput = 2
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pdoflowctl",
		Short: "Inspect and control pdoflow job postings",
		Long: `pdoflowctl is the operator CLI for a pdoflow deployment.

It connects directly to the postings database to list, inspect, pause,
resume, and debug job postings and their records.`,
	}

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(pauseCmd())
	rootCmd.AddCommand(resumeCmd())
	rootCmd.AddCommand(histogramCmd())
	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}
}

// printNotFound reports a missing posting or job record in the same
// structured ErrorMessage shape the rest of the teacher's stack uses for
// client-facing failures, rather than an ad hoc string -- field carries
// the argument name, vals the value the operator passed in.
func printNotFound(field, val string) {
	resp := wscutils.NewErrorResponse(wscutils.DefaultMsgID, wscutils.ErrcodeMissing)
	resp.Messages[0].Field = field
	resp.Messages[0].Vals = []string{val}
	enc, _ := json.Marshal(resp)
	fmt.Fprintln(os.Stderr, string(enc))
}

// connect opens a pool from the PDOFLOW_PG* environment variables, the
// same source cmd/pdoflow-workerd reads from.
func connect(ctx context.Context) (*pgxpool.Pool, error) {
	env := &config.Env{Prefix: "PDOFLOW_"}
	dsn, err := pdoflow.PgDSN(env)
	if err != nil {
		return nil, fmt.Errorf("build DSN: %w", err)
	}
	return pgxpool.New(ctx, dsn)
}
