package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jun/markpad/core/plugin"
)

func TestObserveRender(t *testing.T) {
	m := NewNop()
	m.ObserveRender("preview", time.Now(), nil)
	m.ObserveRender("preview", time.Now(), errors.New("bad"))
	m.ObserveRender("export", time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues("preview", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Renders.WithLabelValues("preview", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.RenderDuration))
}

func TestWatch(t *testing.T) {
	m := NewNop()
	reg := plugin.NewRegistry()
	stop := m.Watch(reg)

	p := plugin.Plugin{ID: "syntax.x", Payload: plugin.Syntax{Languages: []string{"x"}, Marker: "x"}}
	require.NoError(t, reg.Register(p))
	require.NoError(t, reg.Disable("syntax.x"))
	require.NoError(t, reg.Enable("syntax.x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PluginEvents.WithLabelValues(plugin.EventRegistered)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PluginEvents.WithLabelValues(plugin.EventDisabled)))

	stop()
	reg.Unregister("syntax.x")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PluginEvents.WithLabelValues(plugin.EventUnregistered)))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
