package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stoneware/internal/library"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every shelf to a JSON or YAML backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := library.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(app *application) error {
				target := strings.TrimSpace(outputPath)
				if target == "" || target == "-" {
					return app.library.Export(cmd.Context(), cmd.OutOrStdout(), format)
				}
				file, err := os.Create(target)
				if err != nil {
					return fmt.Errorf("create backup file: %w", err)
				}
				if err := app.library.Export(cmd.Context(), file, format); err != nil {
					_ = file.Close()
					return err
				}
				if err := file.Close(); err != nil {
					return fmt.Errorf("close backup file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported shelves to %s\n", target)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "json", "Backup format: json or yaml")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination file (defaults to stdout)")
	return cmd
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load shelves from a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			value := formatFlag
			if strings.TrimSpace(value) == "" {
				value = strings.TrimPrefix(filepath.Ext(path), ".")
			}
			format, err := library.ParseFormat(value)
			if err != nil {
				return err
			}
			var in io.Reader = cmd.InOrStdin()
			if path != "-" {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("open backup file: %w", err)
				}
				defer file.Close()
				in = file
			}
			return ctx.withApp(cmd, func(app *application) error {
				report, err := app.library.Import(cmd.Context(), in, format)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, report)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d books, skipped %d\n", report.Imported, report.Skipped)
				for _, problem := range report.Problems {
					fmt.Fprintf(out, "  - %s\n", problem)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Backup format: json or yaml (defaults to the file extension)")
	return cmd
}
