package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"stoneware/internal/book"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [shelf]",
		Short: "List the books on a shelf (defaults to the last shelf viewed)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *application) error {
				target := app.library.LastShelf(cmd.Context())
				if len(args) == 1 {
					parsed, err := book.ParseShelf(args[0])
					if err != nil {
						return err
					}
					target = parsed
				}
				records, err := app.library.List(cmd.Context(), target)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, records)
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintf(out, "%s is empty\n", target.Label())
					return nil
				}
				fmt.Fprintf(out, "%s (%d)\n", target.Label(), len(records))
				fmt.Fprintln(out, renderTable(out, recordHeaders, recordRows(records),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
				return nil
			})
		},
	}
}

func newShelvesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shelves",
		Short: "Show how many books each shelf holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *application) error {
				counts := app.library.Counts(cmd.Context())
				if ctx.jsonOutput() {
					return writeJSON(cmd, counts)
				}
				rows := make([][]string, 0, len(book.Shelves()))
				for _, s := range book.Shelves() {
					rows = append(rows, []string{s.Label(), fmt.Sprintf("%d", counts[s])})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, []string{"Shelf", "Books"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}
