package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/remiges-tech/pdoflow/logger"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

func pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <posting-id>",
		Short: "Pause a posting, stopping new claims against it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setStatus(args[0], pdoflowsqlc.PostingStatusPaused)
		},
	}
}

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <posting-id>",
		Short: "Resume a paused posting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setStatus(args[0], pdoflowsqlc.PostingStatusExecuting)
		},
	}
}

func setStatus(arg string, status pdoflowsqlc.PostingStatus) error {
	postingID := parsePostingID(arg)

	ctx := context.Background()
	pool, err := connect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}
	defer pool.Close()

	q := pdoflowsqlc.New(pool)

	if _, err := q.GetJobPosting(ctx, postingID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			printNotFound("posting_id", postingID.String())
			os.Exit(exitNotFound)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}

	if err := q.SetPostingStatus(ctx, pdoflowsqlc.SetPostingStatusParams{ID: postingID, Status: status}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}

	// Pausing/resuming mutates what workers will claim next, so this goes
	// through the structured logger rather than a bare Printf -- an
	// operator action worth the same trail a worker's own status changes
	// get.
	logger.LoadLogger("pdoflowctl").Log(fmt.Sprintf("posting %s is now %s", postingID, status))
	return nil
}
