package builtin

import (
	"sort"
	"strings"

	"github.com/yuin/goldmark-emoji/definition"

	"github.com/jun/markpad/core/editor"
	"github.com/jun/markpad/core/plugin"
)

type completeOptions struct {
	Max int `mapstructure:"max"`
}

func (o completeOptions) limit(n int) int {
	if o.Max > 0 && o.Max < n {
		return o.Max
	}
	return n
}

var slashActions = []editor.Action{
	editor.ActionTable,
	editor.ActionMermaid,
	editor.ActionMath,
	editor.ActionCodeBlock,
	editor.ActionHeading,
	editor.ActionQuote,
	editor.ActionTaskList,
	editor.ActionBulletList,
	editor.ActionNumberList,
	editor.ActionLink,
	editor.ActionImage,
}

func slashCommands() plugin.Plugin {
	return plugin.Plugin{
		ID:          IDSlashCommands,
		Name:        "Slash commands",
		Description: "Insert blocks by typing /name",
		Payload: plugin.Autocomplete{
			Trigger:  "/",
			Complete: completeSlash,
		},
		DefaultConfig:  plugin.Config{"max": 10},
		ValidateConfig: plugin.Validator[completeOptions](nil),
	}
}

func completeSlash(prefix string, cfg plugin.Config) []plugin.Suggestion {
	var o completeOptions
	_ = plugin.DecodeConfig(cfg, &o)
	prefix = strings.ToLower(prefix)

	var out []plugin.Suggestion
	for _, a := range slashActions {
		if !strings.HasPrefix(string(a), prefix) {
			continue
		}
		st, ok := editor.FormatText(editor.State{}, a, editor.Options{})
		if !ok {
			continue
		}
		out = append(out, plugin.Suggestion{
			Label:  "/" + string(a),
			Insert: st.Text,
			Detail: buttons[a].label,
		})
	}
	return out[:o.limit(len(out))]
}

// Common shortcodes offered by the emoji completer. The glyphs come from
// the GitHub emoji table the renderer uses.
var emojiNames = []string{
	"+1", "-1", "100", "bug", "heart", "rocket", "smile", "sparkles",
	"tada", "thinking", "warning", "white_check_mark", "x", "zap",
	"fire", "eyes", "memo", "bulb", "lock", "construction",
}

func emojiShortcodes() plugin.Plugin {
	table := definition.Github()
	return plugin.Plugin{
		ID:          IDEmoji,
		Name:        "Emoji shortcodes",
		Description: "Complete :shortcode: emoji",
		Payload: plugin.Autocomplete{
			Trigger: ":",
			Complete: func(prefix string, cfg plugin.Config) []plugin.Suggestion {
				var o completeOptions
				_ = plugin.DecodeConfig(cfg, &o)
				prefix = strings.ToLower(prefix)

				var out []plugin.Suggestion
				for _, name := range emojiNames {
					if !strings.HasPrefix(name, prefix) {
						continue
					}
					e, ok := table.Get(name)
					if !ok {
						continue
					}
					out = append(out, plugin.Suggestion{
						Label:  string(e.Unicode) + " :" + name + ":",
						Insert: ":" + name + ":",
						Detail: e.Name,
					})
				}
				sort.Slice(out, func(i, j int) bool { return out[i].Insert < out[j].Insert })
				return out[:o.limit(len(out))]
			},
		},
		DefaultConfig:  plugin.Config{"max": 8},
		ValidateConfig: plugin.Validator[completeOptions](nil),
	}
}

// Complete asks every enabled autocomplete plugin with the given trigger
// for suggestions.
func Complete(reg *plugin.Registry, trigger, prefix string) []plugin.Suggestion {
	var out []plugin.Suggestion
	for _, rec := range reg.Enabled(plugin.KindAutocomplete) {
		a, ok := rec.Plugin.Payload.(plugin.Autocomplete)
		if !ok || a.Trigger != trigger || a.Complete == nil {
			continue
		}
		out = append(out, a.Complete(prefix, rec.Config)...)
	}
	return out
}
