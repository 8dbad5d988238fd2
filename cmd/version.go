package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo records build metadata injected through main's ldflags
func SetVersionInfo(v, built, commit string) {
	version, buildTime, gitCommit = v, built, commit
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fileconvert %s (commit: %s, built: %s)\n", version, gitCommit, buildTime)
		},
	}
}
