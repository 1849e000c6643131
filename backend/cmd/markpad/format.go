package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jun/markpad/core/editor"
	"github.com/jun/markpad/core/plugin/builtin"
)

type formatOptions struct {
	anchor  int
	head    int
	inPlace bool
	json    bool
	options editor.Options
}

func newFormatCmd(root *rootOptions) *cobra.Command {
	opts := &formatOptions{}
	cmd := &cobra.Command{
		Use:   "format <action> [file]",
		Short: "Apply an editor formatting action",
		Long: fmt.Sprintf(`Applies a toolbar action to the selection [anchor, head) of a document,
as the editor would. Offsets count UTF-16 code units like the browser does.

Actions: %s`, strings.Join(actionNames(), ", ")),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action := editor.Action(args[0])
			if !editor.IsAction(args[0]) {
				return fmt.Errorf("unknown action %q", args[0])
			}
			if opts.inPlace && (len(args) < 2 || args[1] == "-") {
				return fmt.Errorf("--in-place needs a file argument")
			}

			reg, err := root.registry()
			if err != nil {
				return err
			}
			actionOpts, err := builtin.ActionOptions(reg, action, opts.options)
			if err != nil {
				return err
			}
			src, name, err := readInput(cmd, args[1:])
			if err != nil {
				return err
			}

			text := string(src)
			state := editor.State{
				Text: text,
				Selection: editor.Selection{
					Anchor: editor.FromUTF16(text, opts.anchor),
					Head:   editor.FromUTF16(text, opts.head),
				},
			}
			next, ok := editor.FormatText(state, action, actionOpts)
			if !ok {
				return fmt.Errorf("%s: nothing to format", action)
			}

			if opts.json {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(struct {
					Text   string `json:"text"`
					Anchor int    `json:"anchor"`
					Head   int    `json:"head"`
				}{
					Text:   next.Text,
					Anchor: editor.ToUTF16(next.Text, next.Selection.Anchor),
					Head:   editor.ToUTF16(next.Text, next.Selection.Head),
				})
			}
			if opts.inPlace {
				return writeOutput(cmd, name, []byte(next.Text))
			}
			return writeOutput(cmd, "", []byte(next.Text))
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.anchor, "anchor", 0, "selection anchor")
	f.IntVar(&opts.head, "head", 0, "selection head")
	f.BoolVarP(&opts.inPlace, "in-place", "i", false, "rewrite the file")
	f.BoolVar(&opts.json, "json", false, "print text and selection as JSON")
	f.StringVar(&opts.options.URL, "url", "", "link or image URL")
	f.StringVar(&opts.options.Alt, "alt", "", "image alt text")
	f.StringVar(&opts.options.Width, "width", "", "custom image width")
	f.IntVar(&opts.options.Rows, "rows", 0, "table rows")
	f.IntVar(&opts.options.Cols, "cols", 0, "table columns")
	f.IntVar(&opts.options.Level, "level", 0, "heading level")
	f.StringVar(&opts.options.Language, "language", "", "code block language")
	return cmd
}

func actionNames() []string {
	var out []string
	for _, a := range editor.Actions() {
		out = append(out, string(a))
	}
	return out
}
