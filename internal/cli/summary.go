package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apierrors "cryptodash/internal/errors"
	"cryptodash/internal/services"
)

func newSummaryCmd(e *env) *cobra.Command {
	var flags passFlags

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the dashboard summary in the terminal",
		Long: `Run one dashboard pass and print the banner, the metric cards and the
latest row of every selected symbol.`,
		Example: `  cryptodash summary
  cryptodash summary --file prices.csv --symbols BTC,ETH --start 2024-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := flags.selection()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			svc, src, err := e.openSource(ctx, flags.file)
			if err != nil {
				return err
			}

			view, err := svc.Dashboard(ctx, src, sel)
			if errors.Is(err, services.ErrEmptyResult) {
				if view != nil {
					fmt.Fprintln(e.out, bannerStyle.Render(view.Banner))
				}
				fmt.Fprintln(e.out, warningStyle.Render(apierrors.ErrNoDataForFilters.Message))
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(e.out, bannerStyle.Render(view.Banner))
			fmt.Fprintln(e.out, renderCards(view.Cards))
			fmt.Fprintln(e.out, renderLatest(view.Latest))
			return nil
		},
	}

	addPassFlags(cmd, &flags)
	return cmd
}
