package builtin

import (
	"fmt"

	"github.com/jun/markpad/core/editor"
	"github.com/jun/markpad/core/plugin"
)

type button struct {
	label string
	icon  string
	group string
	keys  string
}

var buttons = map[editor.Action]button{
	editor.ActionBold:          {"Bold", "bold", "inline", "Mod-b"},
	editor.ActionItalic:        {"Italic", "italic", "inline", "Mod-i"},
	editor.ActionStrikethrough: {"Strikethrough", "strikethrough", "inline", "Mod-Shift-x"},
	editor.ActionCode:          {"Inline code", "code", "inline", "Mod-e"},
	editor.ActionLink:          {"Link", "link", "insert", "Mod-k"},
	editor.ActionImage:         {"Image", "image", "insert", ""},
	editor.ActionCustomImage:   {"Sized image", "image-plus", "insert", ""},
	editor.ActionTable:         {"Table", "table", "insert", ""},
	editor.ActionHeading:       {"Heading", "heading", "block", "Mod-Alt-1"},
	editor.ActionQuote:         {"Quote", "quote", "block", "Mod-Shift-9"},
	editor.ActionBulletList:    {"Bullet list", "list", "block", "Mod-Shift-8"},
	editor.ActionNumberList:    {"Numbered list", "list-ordered", "block", "Mod-Shift-7"},
	editor.ActionTaskList:      {"Task list", "checklist", "block", ""},
	editor.ActionCodeBlock:     {"Code block", "code-block", "block", "Mod-Alt-c"},
	editor.ActionMermaid:       {"Diagram", "diagram", "insert", ""},
	editor.ActionMath:          {"Math", "sigma", "insert", ""},
}

// defaults for actions that take options.
var toolbarDefaults = map[editor.Action]plugin.Config{
	editor.ActionHeading: {"level": 2},
	editor.ActionTable:   {"rows": 2, "cols": 2},
}

const maxTableSize = 50

func validateOptions(o editor.Options) error {
	if o.Level < 0 || o.Level > 6 {
		return fmt.Errorf("level %d out of range 1-6", o.Level)
	}
	if o.Rows < 0 || o.Rows > maxTableSize || o.Cols < 0 || o.Cols > maxTableSize {
		return fmt.Errorf("table size %dx%d out of range", o.Rows, o.Cols)
	}
	return nil
}

func toolbarPlugins() []plugin.Plugin {
	var out []plugin.Plugin
	for _, a := range editor.Actions() {
		b := buttons[a]
		out = append(out, plugin.Plugin{
			ID:          toolbarPrefix + string(a),
			Name:        b.label,
			Description: "Toolbar button: " + b.label,
			Payload: plugin.Toolbar{
				Action: string(a),
				Label:  b.label,
				Icon:   b.icon,
				Group:  b.group,
			},
			DefaultConfig:  toolbarDefaults[a],
			ValidateConfig: plugin.Validator(validateOptions),
		})
	}
	return out
}

type shortcutConfig struct {
	Keys string `mapstructure:"keys"`
}

func shortcutPlugins() []plugin.Plugin {
	var out []plugin.Plugin
	for _, a := range editor.Actions() {
		b := buttons[a]
		if b.keys == "" {
			continue
		}
		out = append(out, plugin.Plugin{
			ID:            shortcutPrefix + string(a),
			Name:          b.label + " shortcut",
			Payload:       plugin.Shortcut{Keys: b.keys, Action: string(a)},
			DefaultConfig: plugin.Config{"keys": b.keys},
			ValidateConfig: plugin.Validator(func(c shortcutConfig) error {
				if c.Keys == "" {
					return fmt.Errorf("keys must not be empty")
				}
				return nil
			}),
		})
	}
	return out
}

// ActionOptions resolves the options for a toolbar action: the toolbar
// plugin's configuration, overridden by the non-zero fields of override.
// The merged options are held to the same limits as the plugin config.
func ActionOptions(reg *plugin.Registry, action editor.Action, override editor.Options) (editor.Options, error) {
	rec, ok := reg.Get(toolbarPrefix + string(action))
	if !ok || !rec.Enabled {
		return editor.Options{}, fmt.Errorf("%w: %s", ErrActionDisabled, action)
	}
	var opts editor.Options
	if err := plugin.DecodeConfig(rec.Config, &opts); err != nil {
		return editor.Options{}, err
	}
	merge(&opts, override)
	if err := validateOptions(opts); err != nil {
		return editor.Options{}, fmt.Errorf("%w: %s: %w", ErrInvalidOptions, action, err)
	}
	return opts, nil
}

func merge(dst *editor.Options, src editor.Options) {
	if src.URL != "" {
		dst.URL = src.URL
	}
	if src.Alt != "" {
		dst.Alt = src.Alt
	}
	if src.Width != "" {
		dst.Width = src.Width
	}
	if src.Rows != 0 {
		dst.Rows = src.Rows
	}
	if src.Cols != 0 {
		dst.Cols = src.Cols
	}
	if src.Level != 0 {
		dst.Level = src.Level
	}
	if src.Language != "" {
		dst.Language = src.Language
	}
}

// Shortcuts returns the key bindings of the enabled shortcut plugins. When
// two plugins bind the same keys the first registered wins.
func Shortcuts(reg *plugin.Registry) map[string]editor.Action {
	out := make(map[string]editor.Action)
	for _, rec := range reg.Enabled(plugin.KindShortcut) {
		s, ok := rec.Plugin.Payload.(plugin.Shortcut)
		if !ok {
			continue
		}
		var cfg shortcutConfig
		if err := plugin.DecodeConfig(rec.Config, &cfg); err != nil || cfg.Keys == "" {
			cfg.Keys = s.Keys
		}
		if _, taken := out[cfg.Keys]; !taken {
			out[cfg.Keys] = editor.Action(s.Action)
		}
	}
	return out
}
