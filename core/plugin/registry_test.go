package plugin

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toolbar(id, action string) Plugin {
	return Plugin{ID: id, Name: id, Payload: Toolbar{Action: action, Label: action}}
}

func TestRegistry_RegisterDuplicateKeepsFirst(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(toolbar("bold", "bold")))

	err := reg.Register(toolbar("bold", "italic"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateID))

	rec, ok := reg.Get("bold")
	require.True(t, ok)
	assert.Equal(t, Toolbar{Action: "bold", Label: "bold"}, rec.Plugin.Payload)
	assert.Len(t, reg.List(), 1)
}

func TestRegistry_RegisterDefaults(t *testing.T) {
	reg := NewRegistry()
	p := Plugin{
		ID:            "trim",
		Payload:       Transform{Apply: func(b []byte, _ Config) ([]byte, error) { return b, nil }},
		DefaultConfig: Config{"mode": "lines", "tags": []any{"a"}},
	}
	require.NoError(t, reg.Register(p))

	rec, ok := reg.Get("trim")
	require.True(t, ok)
	assert.True(t, rec.Enabled)
	assert.Equal(t, KindTransform, rec.Kind())
	assert.Equal(t, Config{"mode": "lines", "tags": []any{"a"}}, rec.Config)

	// The registry keeps its own copy.
	p.DefaultConfig["mode"] = "changed"
	rec.Config["tags"].([]any)[0] = "b"
	again, _ := reg.Get("trim")
	assert.Equal(t, "lines", again.Config["mode"])
	assert.Equal(t, []any{"a"}, again.Config["tags"])
}

func TestRegistry_RegisterRejectsMalformed(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.Register(Plugin{ID: "", Payload: Shortcut{}}), ErrInvalidPlugin)
	assert.ErrorIs(t, reg.Register(Plugin{ID: "x"}), ErrInvalidPlugin)

	bad := toolbar("y", "bold")
	bad.DefaultConfig = Config{"size": -1}
	bad.ValidateConfig = func(c Config) error {
		if c["size"].(int) < 0 {
			return errors.New("size must be positive")
		}
		return nil
	}
	assert.ErrorIs(t, reg.Register(bad), ErrInvalidConfig)
	_, ok := reg.Get("y")
	assert.False(t, ok)
}

func TestRegistry_Unregister(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(toolbar("a", "bold")))
	require.NoError(t, reg.Register(toolbar("b", "italic")))
	require.NoError(t, reg.Register(toolbar("c", "code")))

	reg.Unregister("b")
	reg.Unregister("missing")

	_, ok := reg.Get("b")
	assert.False(t, ok)
	var ids []string
	for _, r := range reg.List() {
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"a", "c"}, ids)

	// The id is free again.
	assert.NoError(t, reg.Register(toolbar("b", "italic")))
}

func TestRegistry_SetConfig(t *testing.T) {
	type opts struct {
		Width int `mapstructure:"width"`
	}
	reg := NewRegistry()
	p := toolbar("img", "custom-image")
	p.DefaultConfig = Config{"width": 100, "align": "left"}
	p.ValidateConfig = func(c Config) error {
		var o opts
		if err := DecodeConfig(c, &o); err != nil {
			return err
		}
		if o.Width <= 0 {
			return fmt.Errorf("width %d must be positive", o.Width)
		}
		return nil
	}
	require.NoError(t, reg.Register(p))

	t.Run("merges keys", func(t *testing.T) {
		require.NoError(t, reg.SetConfig("img", Config{"width": 50}))
		rec, _ := reg.Get("img")
		assert.Equal(t, Config{"width": 50, "align": "left"}, rec.Config)
	})

	t.Run("rejected config leaves stored config unchanged", func(t *testing.T) {
		before, _ := reg.Get("img")
		err := reg.SetConfig("img", Config{"width": 0, "align": "right"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)

		after, _ := reg.Get("img")
		assert.True(t, reflect.DeepEqual(before.Config, after.Config))
	})

	t.Run("nil removes a key", func(t *testing.T) {
		require.NoError(t, reg.SetConfig("img", Config{"align": nil}))
		rec, _ := reg.Get("img")
		assert.Equal(t, Config{"width": 50}, rec.Config)
	})

	t.Run("unknown plugin", func(t *testing.T) {
		assert.ErrorIs(t, reg.SetConfig("nope", Config{}), ErrUnknownPlugin)
	})
}

func TestRegistry_EnableDisable(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(toolbar("a", "bold")))
	require.NoError(t, reg.Register(Plugin{ID: "k", Payload: Shortcut{Keys: "Mod-b", Action: "bold"}}))

	require.NoError(t, reg.Disable("a"))
	rec, _ := reg.Get("a")
	assert.False(t, rec.Enabled)
	assert.Empty(t, reg.Enabled(KindToolbar))
	assert.Len(t, reg.ListKind(KindToolbar), 1)

	require.NoError(t, reg.Enable("a"))
	assert.Len(t, reg.Enabled(KindToolbar), 1)

	assert.ErrorIs(t, reg.Enable("missing"), ErrUnknownPlugin)
	assert.ErrorIs(t, reg.Disable("missing"), ErrUnknownPlugin)
}

func TestRegistry_EmitIsolatesFailures(t *testing.T) {
	reg := NewRegistry()
	calls := make([]int, 3)
	var got [][]any

	reg.On("save", func(args ...any) error {
		calls[0]++
		got = append(got, args)
		return nil
	})
	reg.On("save", func(args ...any) error {
		calls[1]++
		return errors.New("boom")
	})
	reg.On("save", func(args ...any) error {
		calls[2]++
		got = append(got, args)
		return nil
	})

	err := reg.Emit("save", "doc-1", 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []int{1, 1, 1}, calls)
	assert.Equal(t, [][]any{{"doc-1", 42}, {"doc-1", 42}}, got)
}

func TestRegistry_EmitRecoversPanics(t *testing.T) {
	reg := NewRegistry()
	ran := false
	reg.On("x", func(...any) error { panic("bad listener") })
	reg.On("x", func(...any) error { ran = true; return nil })

	err := reg.Emit("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad listener")
	assert.True(t, ran)
}

func TestRegistry_EmitOrderAndUnsubscribe(t *testing.T) {
	reg := NewRegistry()
	var order []string
	reg.On("e", func(...any) error { order = append(order, "first"); return nil })
	off := reg.On("e", func(...any) error { order = append(order, "second"); return nil })
	reg.On("e", func(...any) error { order = append(order, "third"); return nil })

	require.NoError(t, reg.Emit("e"))
	off()
	off()
	require.NoError(t, reg.Emit("e"))
	require.NoError(t, reg.Emit("unheard"))

	assert.Equal(t, []string{"first", "second", "third", "first", "third"}, order)
}

func TestRegistry_LifecycleEvents(t *testing.T) {
	var failures []string
	reg := NewRegistry(WithErrorHandler(func(event string, err error) {
		failures = append(failures, event)
	}))

	var events []string
	for _, name := range []string{EventRegistered, EventUnregistered, EventEnabled, EventDisabled, EventConfig} {
		name := name
		reg.On(name, func(args ...any) error {
			events = append(events, fmt.Sprintf("%s:%v", name, args[0]))
			return nil
		})
	}
	reg.On(EventConfig, func(args ...any) error {
		assert.Equal(t, Config{"k": "v"}, args[1])
		return errors.New("listener failed")
	})

	require.NoError(t, reg.Register(toolbar("a", "bold")))
	require.NoError(t, reg.Disable("a"))
	require.NoError(t, reg.Enable("a"))
	require.NoError(t, reg.SetConfig("a", Config{"k": "v"}))
	reg.Unregister("a")

	assert.Equal(t, []string{
		"plugin.registered:a",
		"plugin.disabled:a",
		"plugin.enabled:a",
		"plugin.config:a",
		"plugin.unregistered:a",
	}, events)
	assert.Equal(t, []string{EventConfig}, failures)
}

func TestRegistry_ListenerMayCallRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.On(EventRegistered, func(args ...any) error {
		_, ok := reg.Get(args[0].(string))
		if !ok {
			return errors.New("not visible")
		}
		return reg.Disable(args[0].(string))
	})
	require.NoError(t, reg.Register(toolbar("a", "bold")))
	rec, _ := reg.Get("a")
	assert.False(t, rec.Enabled)
}

func TestKind(t *testing.T) {
	for k := KindSyntax; k <= KindExport; k++ {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("widget")
	assert.Error(t, err)

	text, err := KindPreview.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "preview", string(text))
}
