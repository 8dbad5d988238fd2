package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fileconvert/converter/failure"
	"fileconvert/converter/format"
)

func newPagesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pages <file.pdf>",
		Short: "Print the number of pages in a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if source := format.Detect(args[0]); source != format.PDF {
				return failure.New(failure.UnsupportedFormat, "page count is only available for PDF files")
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}

			conv, err := a.converter(format.PDF)
			if err != nil {
				return err
			}
			count, err := conv.PageCount(data)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), count)
			return nil
		},
	}
}
