package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

func histogramCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "histogram <posting-id>",
		Short: "Show the waiting backlog of a posting by priority",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistogram(args[0])
		},
	}
}

func runHistogram(arg string) error {
	postingID := parsePostingID(arg)

	ctx := context.Background()
	pool, err := connect(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}
	defer pool.Close()

	q := pdoflowsqlc.New(pool)
	buckets, err := q.GetPriorityHistogram(ctx, postingID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}

	if len(buckets) == 0 {
		fmt.Println("No waiting job records")
		return nil
	}

	var max int64
	for _, b := range buckets {
		if b.Count > max {
			max = b.Count
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRIORITY\tWAITING\t")
	for _, b := range buckets {
		barLen := 0
		if max > 0 {
			barLen = int(40 * b.Count / max)
		}
		fmt.Fprintf(w, "%d\t%d\t%s\n", b.Priority, b.Count, strings.Repeat("#", barLen))
	}
	return w.Flush()
}
