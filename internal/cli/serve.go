package cli

import (
	"github.com/spf13/cobra"

	"cryptodash/internal/app"
)

func newServeCmd(e *env) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				e.cfg.Server.Port = port
			}
			application, err := app.NewApplication(e.cfg, e.logger)
			if err != nil {
				return err
			}
			return application.Run()
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides configuration)")
	return cmd
}
