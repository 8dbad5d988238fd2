package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
)

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats [file]",
		Short: "List supported conversions, or those available for a file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, source := range format.Known() {
					fmt.Fprintf(out, "%-5s %s  %s\n", source, mutedStyle.Render("->"), joinExtensions(format.Candidates(source)))
				}
				return nil
			}

			source := format.Detect(args[0])
			if source == "" {
				return failure.New(failure.UndetectableExtension, "cannot determine the format of %s: it has no extension", args[0])
			}
			candidates := format.Candidates(source)
			if len(candidates) == 0 {
				return failure.New(failure.UnsupportedSourceFormat, "no conversions available for .%s files", source)
			}

			fmt.Fprintf(out, "%s (%s) can be converted to: %s\n", args[0], format.FamilyOf(source), joinExtensions(candidates))
			return nil
		},
	}
}
