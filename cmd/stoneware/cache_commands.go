package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stoneware/internal/textutil"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear local caches",
	}

	summariesCmd := &cobra.Command{
		Use:   "summaries",
		Short: "Manage generated book summaries",
	}
	summariesCmd.AddCommand(newCacheSummariesListCommand(ctx))
	summariesCmd.AddCommand(newCacheSummariesClearCommand(ctx))
	cacheCmd.AddCommand(summariesCmd)

	return cacheCmd
}

func newCacheSummariesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *application) error {
				entries, err := app.summaries.List(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, entries)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Summary cache is empty")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						entry.Key,
						entry.Backend,
						entry.CreatedAt.Local().Format("2006-01-02 15:04"),
						textutil.Truncate(entry.Summary, 60),
					})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Key", "Backend", "Created", "Summary"}, rows, nil))
				return nil
			})
		},
	}
}

func newCacheSummariesClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *application) error {
				removed, err := app.summaries.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached summaries\n", removed)
				return nil
			})
		},
	}
}
