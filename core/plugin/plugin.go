// Package plugin holds the editor's plugin model: plugin records keyed by
// capability kind, and the Registry that stores them, tracks their enabled
// state and configuration, and publishes lifecycle events.
package plugin

import (
	"fmt"
	"strings"
)

// Kind is the capability a plugin extends.
type Kind int

const (
	KindSyntax Kind = iota + 1
	KindToolbar
	KindShortcut
	KindTransform
	KindAutocomplete
	KindPreview
	KindExport
)

var kindNames = map[Kind]string{
	KindSyntax:       "syntax",
	KindToolbar:      "toolbar",
	KindShortcut:     "shortcut",
	KindTransform:    "transform",
	KindAutocomplete: "autocomplete",
	KindPreview:      "preview",
	KindExport:       "export",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("unknown plugin kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind is the inverse of Kind.String. It is case-insensitive.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown plugin kind %q", s)
}

// Config is a plugin's configuration. Values are JSON-like: strings, bools,
// numbers, nested maps and slices.
type Config map[string]any

// Payload is the kind-specific part of a plugin. The set of payloads is
// closed; switch on the concrete type to dispatch.
type Payload interface {
	Kind() Kind
	payload()
}

// Syntax adds fenced-block languages to the Markdown pipeline.
type Syntax struct {
	Languages []string
	// Marker is the node marker the languages are rewritten to.
	Marker string
}

// Toolbar is a toolbar button bound to an editor action.
type Toolbar struct {
	Action string
	Label  string
	Icon   string
	Group  string
}

// Shortcut binds a key chord such as "Mod-b" to an editor action.
type Shortcut struct {
	Keys   string
	Action string
}

// TransformFunc rewrites Markdown source before it is rendered.
type TransformFunc func(source []byte, cfg Config) ([]byte, error)

// Transform rewrites the document source before rendering.
type Transform struct {
	Apply TransformFunc
}

// Suggestion is one autocomplete candidate.
type Suggestion struct {
	Label  string `json:"label"`
	Insert string `json:"insert"`
	Detail string `json:"detail,omitempty"`
}

// Autocomplete proposes completions for the word typed after Trigger.
type Autocomplete struct {
	Trigger  string
	Complete func(prefix string, cfg Config) []Suggestion
}

// Preview renders the body of diagram nodes carrying Marker.
type Preview struct {
	Marker string
	Render func(source string, cfg Config) (string, error)
}

// Export converts a document to another format.
type Export struct {
	Format    string
	MediaType string
	Extension string
	Export    func(title string, source []byte, cfg Config) ([]byte, error)
}

func (Syntax) Kind() Kind       { return KindSyntax }
func (Toolbar) Kind() Kind      { return KindToolbar }
func (Shortcut) Kind() Kind     { return KindShortcut }
func (Transform) Kind() Kind    { return KindTransform }
func (Autocomplete) Kind() Kind { return KindAutocomplete }
func (Preview) Kind() Kind      { return KindPreview }
func (Export) Kind() Kind       { return KindExport }

func (Syntax) payload()       {}
func (Toolbar) payload()      {}
func (Shortcut) payload()     {}
func (Transform) payload()    {}
func (Autocomplete) payload() {}
func (Preview) payload()      {}
func (Export) payload()       {}

// Plugin is a registrable capability extension.
type Plugin struct {
	ID          string
	Name        string
	Version     string
	Description string
	Payload     Payload

	// DefaultConfig becomes the initial configuration on registration.
	DefaultConfig Config
	// ValidateConfig, when set, must accept every configuration the plugin
	// is given.
	ValidateConfig func(Config) error
}

// Kind returns the capability kind of the plugin's payload.
func (p Plugin) Kind() Kind {
	if p.Payload == nil {
		return 0
	}
	return p.Payload.Kind()
}

func (p Plugin) validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidPlugin)
	}
	if p.Payload == nil {
		return fmt.Errorf("%w: plugin %q has no payload", ErrInvalidPlugin, p.ID)
	}
	return nil
}

// Record is a registered plugin with its current state.
type Record struct {
	Plugin  Plugin
	Enabled bool
	Config  Config
}

// ID returns the plugin id.
func (r Record) ID() string { return r.Plugin.ID }

// Kind returns the plugin kind.
func (r Record) Kind() Kind { return r.Plugin.Kind() }

// cloneConfig copies nested maps and slices so callers never share
// storage with the registry.
func cloneConfig(cfg Config) Config {
	if cfg == nil {
		return Config{}
	}
	out := make(Config, len(cfg))
	for k, v := range cfg {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Config:
		return cloneConfig(t)
	case map[string]any:
		return map[string]any(cloneConfig(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
