package plugin

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// DecodeConfig decodes cfg into out, a pointer to a struct with mapstructure
// tags. Scalars are converted loosely ("3" decodes into an int) because
// configuration arrives from JSON bodies, YAML and TOML files alike.
func DecodeConfig(cfg Config, out any) error {
	return decode(cfg, out, false)
}

// Validator builds a ValidateConfig func that decodes the configuration into
// a T, rejecting unknown keys, and then runs check on it.
func Validator[T any](check func(T) error) func(Config) error {
	return func(cfg Config) error {
		var v T
		if err := decode(cfg, &v, true); err != nil {
			return err
		}
		if check == nil {
			return nil
		}
		return check(v)
	}
}

func decode(cfg Config, out any, strict bool) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("config decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(cfg)); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
