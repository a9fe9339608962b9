package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"stoneware/internal/book"
	"stoneware/internal/library"
	"stoneware/internal/synopsis"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var ratings bool

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search the book catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withApp(cmd, func(app *application) error {
				results, err := app.library.Search(cmd.Context(), query, library.SearchOptions{Limit: limit, Ratings: ratings})
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, results)
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No results")
					return nil
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(out, recordHeaders, recordRows(results),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (defaults to catalog.max_results)")
	cmd.Flags().BoolVar(&ratings, "ratings", false, "Fetch community ratings for every result")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a book with its synopsis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *application) error {
				details, err := app.library.Details(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				res := details.Synopsis
				if ctx.jsonOutput() {
					final := awaitSynopsis(cmd, res)
					details.Record.Description = final.Text
					details.Record.DescriptionSource = final.Source
					return writeJSON(cmd, details)
				}

				out := cmd.OutOrStdout()
				rec := details.Record
				fmt.Fprintf(out, "%s\n", rec.Title)
				fmt.Fprintf(out, "  by %s\n", authorLine(rec.Authors))
				fmt.Fprintf(out, "  ID:        %s\n", rec.ID)
				if details.Shelved {
					fmt.Fprintf(out, "  Shelf:     %s\n", details.Shelf.Label())
				} else {
					fmt.Fprintln(out, "  Shelf:     not shelved")
				}
				rating := rec.Rating
				if !details.Shelved && details.EphemeralRating > 0 {
					rating = details.EphemeralRating
				}
				fmt.Fprintf(out, "  Rating:    %s\n", book.FormatRating(rating))
				fmt.Fprintf(out, "  Community: %s\n", book.FormatCommunity(rec.CommunityAverage, rec.CommunityCount))
				if isbn := firstNonBlank(rec.ISBN13, rec.ISBN10); isbn != "" {
					fmt.Fprintf(out, "  ISBN:      %s\n", isbn)
				}
				if rec.InfoLink != "" {
					fmt.Fprintf(out, "  Link:      %s\n", rec.InfoLink)
				}
				fmt.Fprintln(out)
				if res.Pending {
					fmt.Fprintln(out, res.Text)
				}
				final := awaitSynopsis(cmd, res)
				fmt.Fprintln(out, final.Text)
				return nil
			})
		},
	}
}

// awaitSynopsis returns the settled synopsis, blocking on a pending one
// until it arrives or the command is cancelled.
func awaitSynopsis(cmd *cobra.Command, res synopsis.Resolution) synopsis.Result {
	if !res.Pending || res.Updates == nil {
		return res.Result
	}
	select {
	case update, ok := <-res.Updates:
		if ok {
			return update
		}
	case <-cmd.Context().Done():
	}
	return synopsis.Result{Text: book.NoSummary, Source: book.SourceNone}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <shelf> <id>",
		Short: "File a book on a shelf",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := book.ParseShelf(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(app *application) error {
				rec, err := app.library.Add(cmd.Context(), target, args[1])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %s\n", rec.Title, target.Label())
				return nil
			})
		},
	}
}

func newMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <shelf>",
		Short: "Move a shelved book to another shelf",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := book.ParseShelf(args[1])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(app *application) error {
				rec, err := app.library.Move(cmd.Context(), args[0], target)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, rec)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %q to %s\n", rec.Title, target.Label())
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a book from its shelf",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(app *application) error {
				from, err := app.library.Remove(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"id": args[0], "shelf": string(from)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from %s\n", args[0], from.Label())
				return nil
			})
		},
	}
}

func newRateCommand(ctx *commandContext) *cobra.Command {
	var fromSearch bool

	cmd := &cobra.Command{
		Use:   "rate <id> <value>",
		Short: "Rate a book from 0 to 5 in quarter steps (0 clears)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(strings.TrimSpace(args[1]), 64)
			if err != nil {
				return fmt.Errorf("rating %q is not a number", args[1])
			}
			return ctx.withApp(cmd, func(app *application) error {
				var outcome library.RateOutcome
				if fromSearch {
					outcome, err = app.library.RateResult(cmd.Context(), args[0], value)
				} else {
					outcome, err = app.library.Rate(cmd.Context(), args[0], value)
				}
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, outcome)
				}
				out := cmd.OutOrStdout()
				title := outcome.Record.Title
				switch {
				case outcome.Rating == 0:
					fmt.Fprintf(out, "Cleared rating for %q\n", title)
				case outcome.Ephemeral:
					fmt.Fprintf(out, "Rated %q %s for this session only; shelve the book to keep it\n", title, book.FormatRating(outcome.Rating))
				case outcome.Filed:
					fmt.Fprintf(out, "Rated %q %s and filed it on %s\n", title, book.FormatRating(outcome.Rating), outcome.Shelf.Label())
				default:
					fmt.Fprintf(out, "Rated %q %s\n", title, book.FormatRating(outcome.Rating))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fromSearch, "from-search", false, "Rate as a search result, filing the book on finished when auto-file is on")
	return cmd
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
