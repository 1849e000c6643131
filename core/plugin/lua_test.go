package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shoutScript = `
function transform(source, config)
  local out = string.gsub(source, "TODO", config.marker or "FIXME")
  return out
end
`

func TestLuaTransform(t *testing.T) {
	p, err := NewLuaTransform("shout", shoutScript)
	require.NoError(t, err)
	assert.Equal(t, KindTransform, p.Kind())

	apply := p.Payload.(Transform).Apply
	out, err := apply([]byte("TODO: write"), Config{"marker": "NOTE"})
	require.NoError(t, err)
	assert.Equal(t, "NOTE: write", string(out))

	out, err = apply([]byte("TODO"), nil)
	require.NoError(t, err)
	assert.Equal(t, "FIXME", string(out))
}

func TestLuaTransform_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"syntax error", "function transform("},
		{"no entry point", "x = 1"},
		{"entry point not a function", "transform = 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLuaTransform("bad", tt.script)
			assert.ErrorIs(t, err, ErrInvalidPlugin)
		})
	}
}

func TestLuaTransform_RuntimeErrors(t *testing.T) {
	p, err := NewLuaTransform("num", "function transform(s, c) return 1 < 0 end")
	require.NoError(t, err)
	_, err = p.Payload.(Transform).Apply([]byte("x"), nil)
	assert.Error(t, err)

	p, err = NewLuaTransform("raise", `function transform(s, c) error("nope") end`)
	require.NoError(t, err)
	_, err = p.Payload.(Transform).Apply([]byte("x"), nil)
	assert.ErrorContains(t, err, "nope")
}

func TestLuaTransform_Sandboxed(t *testing.T) {
	p, err := NewLuaTransform("os", `function transform(s, c) return os.getenv("HOME") end`)
	require.NoError(t, err)
	_, err = p.Payload.(Transform).Apply([]byte("x"), nil)
	assert.Error(t, err)
}

func TestDecodeConfig(t *testing.T) {
	type opts struct {
		Width int    `mapstructure:"width"`
		Align string `mapstructure:"align"`
	}
	var o opts
	require.NoError(t, DecodeConfig(Config{"width": "120", "align": "center", "extra": true}, &o))
	assert.Equal(t, opts{Width: 120, Align: "center"}, o)

	validate := Validator(func(o opts) error { return nil })
	assert.Error(t, validate(Config{"extra": true}))
	assert.NoError(t, validate(Config{"width": 3.0}))
}
