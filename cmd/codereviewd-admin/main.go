// codereviewd-admin is the operator-path CLI for actions the HTTP query
// surface deliberately leaves out-of-band, chiefly resolving a
// FailureLog row once someone has looked into it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/acme/codereviewd/internal/adminconfig"
	"github.com/acme/codereviewd/pkg/store"
)

func main() {
	root := newRootCommand()
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "codereviewd-admin",
		Short: "Operator tooling for the review pipeline's persisted state",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	root.AddCommand(failuresCommand())
	return root
}

func failuresCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "failures",
		Short: "Inspect and resolve FailureLog rows",
	}
	cmd.AddCommand(failuresResolveCommand())
	cmd.AddCommand(failuresListCommand())
	return cmd
}

func failuresResolveCommand() *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "resolve <id>",
		Short: "Mark a FailureLog row resolved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if _, err := fmt.Sscanf(args[0], "%d", &id); err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}

			cfg, err := adminconfig.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := cfg.OpenStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect to store: %w", err)
			}
			defer st.Close()

			if err := st.MarkFailureResolved(cmd.Context(), id, notes); err != nil {
				return fmt.Errorf("mark failure %d resolved: %w", id, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "failure %d marked resolved\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Resolution notes to attach")
	return cmd
}

func failuresListCommand() *cobra.Command {
	var limit int
	var stage string
	var unresolvedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List FailureLog rows, optionally filtered by stage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := adminconfig.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := cfg.OpenStore(cmd.Context())
			if err != nil {
				return fmt.Errorf("connect to store: %w", err)
			}
			defer st.Close()

			ctx := cmd.Context()
			var rows []store.FailureLog
			if stage != "" {
				rows, err = st.ListFailuresByStage(ctx, stage, false, limit)
				if err == nil && !unresolvedOnly {
					var resolvedRows []store.FailureLog
					resolvedRows, err = st.ListFailuresByStage(ctx, stage, true, limit)
					rows = append(rows, resolvedRows...)
					if len(rows) > limit {
						rows = rows[:limit]
					}
				}
			} else {
				var page store.Page[store.FailureLog]
				page, err = st.ListFailures(ctx, 0, limit)
				rows = page.Rows
			}
			if err != nil {
				return err
			}
			printFailures(cmd, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows to print")
	cmd.Flags().StringVar(&stage, "stage", "", "Filter by failure_stage")
	cmd.Flags().BoolVar(&unresolvedOnly, "unresolved-only", false, "Only print unresolved rows (requires --stage)")
	return cmd
}

func printFailures(cmd *cobra.Command, rows []store.FailureLog) {
	for _, r := range rows {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%s\tresolved=%v\n",
			r.ID, r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"), r.FailureStage, r.ErrorType, r.ProjectKey, r.Resolved)
	}
}
