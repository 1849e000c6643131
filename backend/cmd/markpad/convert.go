package main

import (
	"github.com/spf13/cobra"

	"github.com/jun/markpad/core/convert"
)

func newImportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "import [file.html]",
		Short: "Convert HTML to Markdown",
		Long:  "Converts an HTML file (or stdin) to Markdown. Diagram blocks from rendered previews become mermaid fences again.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, _, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			md, err := convert.FromHTML(string(src))
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, []byte(md+"\n"))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
