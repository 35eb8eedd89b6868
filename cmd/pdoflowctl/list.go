package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/remiges-tech/pdoflow/pdoflow/pg/pdoflowsqlc"
)

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent job postings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of postings to show")
	return cmd
}

func runList(limit int) error {
	if limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be positive")
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
	postings, err := q.ListRecentPostings(ctx, int32(limit))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitBadInput)
	}

	if len(postings) == 0 {
		fmt.Println("No postings found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPOSTER\tSTATUS\tTARGET\tENTRY POINT\tCREATED")
	for _, p := range postings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Poster, p.Status, p.TargetFunction, p.EntryPoint, p.CreatedOn.Time.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
