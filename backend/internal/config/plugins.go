package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jun/markpad/core/plugin"
)

// PluginSetting overrides one registered plugin.
type PluginSetting struct {
	Enabled *bool         `mapstructure:"enabled"`
	Config  plugin.Config `mapstructure:"config"`
}

// PluginSettings is the plugin settings file:
//
//	scripts:
//	  transform.todo: scripts/todo.lua
//	plugins:
//	  toolbar.heading:
//	    config: {level: 3}
//	  autocomplete.emoji:
//	    enabled: false
//
// Scripts are Lua transform plugins keyed by plugin id. Relative paths are
// resolved against the directory of the settings file.
type PluginSettings struct {
	Scripts map[string]string        `mapstructure:"scripts"`
	Plugins map[string]PluginSetting `mapstructure:"plugins"`
}

// LoadPluginSettings reads a YAML, TOML or JSON settings file, chosen by
// extension.
func LoadPluginSettings(path string) (*PluginSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plugin settings %s: %w", path, err)
	}
	s, err := ParsePluginSettings(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for id, script := range s.Scripts {
		if !filepath.IsAbs(script) {
			s.Scripts[id] = filepath.Join(dir, script)
		}
	}
	return s, nil
}

// ParsePluginSettings decodes settings in the format named by ext
// (".yaml", ".yml", ".toml" or ".json").
func ParsePluginSettings(data []byte, ext string) (*PluginSettings, error) {
	var raw map[string]any
	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported settings format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing plugin settings: %w", err)
	}

	var out PluginSettings
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &out,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding plugin settings: %w", err)
	}
	return &out, nil
}

// Apply registers the scripts and then configures reg from the plugin
// entries, so scripts can be configured and disabled like any other plugin.
// Every entry is attempted; the failures are returned joined.
func (s *PluginSettings) Apply(reg *plugin.Registry) error {
	if s == nil {
		return nil
	}
	var errs []error
	for _, id := range sortedKeys(s.Scripts) {
		if err := registerScript(reg, id, s.Scripts[id]); err != nil {
			errs = append(errs, err)
		}
	}

	for _, id := range sortedKeys(s.Plugins) {
		set := s.Plugins[id]
		if len(set.Config) > 0 {
			if err := reg.SetConfig(id, set.Config); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		if set.Enabled == nil {
			if _, ok := reg.Get(id); !ok {
				errs = append(errs, fmt.Errorf("%w: %q", plugin.ErrUnknownPlugin, id))
			}
			continue
		}
		var err error
		if *set.Enabled {
			err = reg.Enable(id)
		} else {
			err = reg.Disable(id)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func registerScript(reg *plugin.Registry, id, path string) error {
	script, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script %s: %w", id, err)
	}
	p, err := plugin.NewLuaTransform(id, string(script))
	if err != nil {
		return err
	}
	return reg.Register(p)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
