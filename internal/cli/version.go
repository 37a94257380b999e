package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cryptodash/pkg/contracts"
)

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := contracts.GetVersionInfo()
			fmt.Fprintln(e.out, titleStyle.Render(contracts.GetVersionString()))
			fmt.Fprintf(e.out, "Stage:      %s\n", info.Stage)
			fmt.Fprintf(e.out, "Build time: %s\n", info.BuildTime)
			fmt.Fprintf(e.out, "Commit:     %s\n", info.GitCommit)
			fmt.Fprintf(e.out, "Go:         %s %s/%s\n", info.GoVersion, info.OS, info.Architecture)
		},
	}
}
