package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"cryptodash/internal/exporter"
)

func newExportCmd(e *env) *cobra.Command {
	var (
		flags  passFlags
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered table with derived metrics to a file",
		Example: `  cryptodash export --symbols BTC --out btc.csv
  cryptodash export --format xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") && strings.EqualFold(filepath.Ext(out), ".xlsx") {
				format = string(exporter.FormatXLSX)
			}
			f, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}
			if out == "" {
				out = f.FileName()
			}

			sel, err := flags.selection()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, src, err := e.openSource(ctx, flags.file)
			if err != nil {
				return err
			}

			var n int
			err = exporter.WriteFile(out, func(w io.Writer) error {
				var err error
				n, err = svc.Export(ctx, src, sel, f, w)
				return err
			})
			if err != nil {
				return err
			}

			e.logger.InfoContext(ctx, "export written",
				slog.String("path", out),
				slog.String("format", string(f)),
				slog.Int("records", n))
			fmt.Fprintf(e.out, "Wrote %d records to %s\n", n, out)
			return nil
		},
	}

	addPassFlags(cmd, &flags)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default crypto_price_data.<format>)")
	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or xlsx")
	return cmd
}
