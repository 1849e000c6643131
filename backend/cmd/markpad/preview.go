package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/jun/markpad/core/markdown"
	"github.com/jun/markpad/core/plugin/builtin"
)

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var (
		style string
		width int
	)
	cmd := &cobra.Command{
		Use:   "preview [file]",
		Short: "Preview Markdown in the terminal",
		Long:  `Renders a Markdown file (or stdin) for the terminal after the enabled transform plugins have run.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := root.registry()
			if err != nil {
				return err
			}
			src, _, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			for _, t := range builtin.Transforms(reg) {
				if src, err = t(src); err != nil {
					return err
				}
			}

			styleOpt := glamour.WithAutoStyle()
			if style != "auto" {
				styleOpt = glamour.WithStandardStyle(style)
			}
			r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width), glamour.WithEmoji())
			if err != nil {
				return err
			}
			out, err := r.Render(string(src))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&style, "style", "auto", "glamour style (auto, dark, light, notty, ascii)")
	cmd.Flags().IntVar(&width, "width", 80, "word wrap width")
	return cmd
}

func newOutlineCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "outline [file]",
		Short: "Print the heading outline of a document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := root.registry()
			if err != nil {
				return err
			}
			src, _, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			out := termenv.NewOutput(cmd.OutOrStdout())
			for _, h := range builtin.NewRenderer(reg, markdown.WithoutDiagrams()).Headings(src) {
				indent := strings.Repeat("  ", h.Level-1)
				fmt.Fprintf(out, "%s%s %s\n", indent, h.Text, out.String("#"+h.ID).Faint())
			}
			return nil
		},
	}
}
