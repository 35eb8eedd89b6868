package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/remiges-tech/pdoflow/pdoflow"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <posting-id>",
		Short: "Show a posting's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(args[0])
		},
	}
	return cmd
}

func parsePostingID(arg string) uuid.UUID {
	id, err := uuid.Parse(arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid posting id %q: %v\n", arg, err)
		os.Exit(exitBadInput)
	}
	return id
}

func runStatus(arg string) error {
	postingID := parsePostingID(arg)

	ctx := context.Background()
	pool, err := connect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}
	defer pool.Close()

	q := pdoflowsqlc.New(pool)
	counts, err := q.GetPostingCounts(ctx, postingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			printNotFound("posting_id", postingID.String())
			os.Exit(exitNotFound)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}

	snap := pdoflow.PostingSnapshot{TotalJobs: counts.TotalJobs, TotalJobsDone: counts.TotalJobsDone}
	fmt.Printf("Posting:   %s\n", postingID)
	fmt.Printf("Status:    %s\n", counts.PostingStatus)
	fmt.Printf("Jobs:      %d / %d done\n", counts.TotalJobsDone, counts.TotalJobs)
	fmt.Printf("Percent:   %.1f%%\n", snap.PercentDone())
	return nil
}
