package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jun/markpad/core/markdown"
	"github.com/jun/markpad/core/plugin"
	"github.com/jun/markpad/core/plugin/builtin"
)

type renderOptions struct {
	out      string
	format   string
	style    string
	sanitize bool
	watch    bool
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render Markdown to HTML",
		Long: `Renders a Markdown file (or stdin) with the enabled plugins.

With --format the document goes through that exporter instead, e.g.
--format html for a standalone page or --format markdown for normalised
source. --watch re-renders whenever the file changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := root.registry()
			if err != nil {
				return err
			}
			if !opts.watch {
				src, name, err := readInput(cmd, args)
				if err != nil {
					return err
				}
				out, err := opts.render(reg, name, src)
				if err != nil {
					return err
				}
				return writeOutput(cmd, opts.out, out)
			}

			if len(args) == 0 || args[0] == "-" {
				return errors.New("--watch needs a file argument")
			}
			if opts.out == "" {
				return errors.New("--watch needs --out")
			}
			return watchFile(cmd.Context(), root.logger(), args[0], func(src []byte) error {
				out, err := opts.render(reg, args[0], src)
				if err != nil {
					return err
				}
				if err := writeOutput(cmd, opts.out, out); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "rendered %s -> %s\n", args[0], opts.out)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "export through the enabled exporter for this format")
	cmd.Flags().StringVar(&opts.style, "style", "", "chroma highlight style")
	cmd.Flags().BoolVar(&opts.sanitize, "sanitize", false, "strip unsafe HTML from the output")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-render when the file changes")
	return cmd
}

func (o *renderOptions) render(reg *plugin.Registry, name string, src []byte) ([]byte, error) {
	if o.format != "" {
		exp, cfg, err := builtin.Exporter(reg, o.format)
		if err != nil {
			return nil, err
		}
		return exp.Export(title(name), src, cfg)
	}

	opts := []markdown.Option{markdown.WithHighlightStyle(o.style)}
	if o.sanitize {
		opts = append(opts, markdown.WithSanitize())
	}
	return builtin.NewRenderer(reg, opts...).Render(src)
}

// title derives a document title from a file name.
func title(name string) string {
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
