package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"

	"github.com/remiges-tech/pdoflow/logger"
	"github.com/remiges-tech/pdoflow/pdoflow"
	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

// runCmd is the operator's escape hatch for debugging a single stuck job
// record: it invokes the record's entry point directly, bypassing the
// claim protocol entirely, and reports the outcome without mutating any
// row. It is never used by a worker; it exists only for an operator to
// reproduce a failure locally against production data.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <job-record-id>",
		Short: "Invoke a single job record's entry point ad hoc, without claiming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobRecord(args[0])
		},
	}
}

func runJobRecord(arg string) error {
	recordID, err := uuid.Parse(arg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid job record id %q: %v\n", arg, err)
		os.Exit(exitBadInput)
	}

	ctx := context.Background()
	pool, err := connect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}
	defer pool.Close()

	q := pdoflowsqlc.New(pool)

	record, err := q.GetJobRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			printNotFound("job_record_id", recordID.String())
			os.Exit(exitNotFound)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}

	snap := pdoflow.JobRecordSnapshotFromRow(record)
	now := time.Now()
	fmt.Printf("waiting_time: %s\n", snap.WaitingTime(now))
	if elapsed := snap.TimeElapsed(now); elapsed != nil {
		fmt.Printf("time_elapsed: %s\n", *elapsed)
	}

	posting, err := q.GetJobPosting(ctx, record.PostingID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}

	fn, ok := pdoflow.Resolve(posting.EntryPoint)
	if !ok {
		fmt.Fprintf(os.Stderr, "entry point %q not registered in this binary\n", posting.EntryPoint)
		os.Exit(exitNotFound)
	}

	positional, keyword, err := pdoflow.DecodeJobArguments(record.PositionalArguments, record.KeywordArguments)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}

	result, callErr := fn(ctx, positional, keyword)
	if callErr != nil {
		fmt.Fprintf(os.Stderr, "entry point returned an error: %v\n", callErr)
		os.Exit(exitBadInput)
	}

	cl := &logger.ConsoleLogger{}
	cl.Log(fmt.Sprintf("job record %s completed ad hoc, result: %s", recordID, result))
	return nil
}
