package plugin

import (
	"errors"
	"fmt"
	"sync"
)

// Lifecycle events published by the Registry. Every event carries the plugin
// id as its first argument; EventConfig also carries the new Config.
const (
	EventRegistered   = "plugin.registered"
	EventUnregistered = "plugin.unregistered"
	EventEnabled      = "plugin.enabled"
	EventDisabled     = "plugin.disabled"
	EventConfig       = "plugin.config"
)

// Listener handles an emitted event.
type Listener func(args ...any) error

type listener struct {
	id uint64
	fn Listener
}

type entry struct {
	plugin  Plugin
	enabled bool
	config  Config
}

// Registry stores plugins in registration order. It is safe for concurrent
// use; listeners are always called without the registry lock held.
type Registry struct {
	mu        sync.RWMutex
	plugins   map[string]*entry
	order     []string
	listeners map[string][]listener
	nextID    uint64

	onError func(event string, err error)
}

// Option configures a Registry.
type Option func(*Registry)

// WithErrorHandler receives listener failures from the events the registry
// publishes itself, which have no caller to return them to.
func WithErrorHandler(fn func(event string, err error)) Option {
	return func(r *Registry) {
		r.onError = fn
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		plugins:   make(map[string]*entry),
		listeners: make(map[string][]listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds p, enabled, with a copy of its DefaultConfig. Registering an
// id twice fails with ErrDuplicateID and keeps the first plugin.
func (r *Registry) Register(p Plugin) error {
	if err := p.validate(); err != nil {
		return err
	}
	cfg := cloneConfig(p.DefaultConfig)
	if p.ValidateConfig != nil {
		if err := p.ValidateConfig(cfg); err != nil {
			return fmt.Errorf("plugin %q default config: %w: %w", p.ID, ErrInvalidConfig, err)
		}
	}

	r.mu.Lock()
	if _, ok := r.plugins[p.ID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrDuplicateID, p.ID)
	}
	r.plugins[p.ID] = &entry{plugin: p, enabled: true, config: cfg}
	r.order = append(r.order, p.ID)
	r.mu.Unlock()

	r.publish(EventRegistered, p.ID)
	return nil
}

// Unregister removes the plugin. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	if _, ok := r.plugins[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.plugins, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.publish(EventUnregistered, id)
}

// Get returns the record for id.
func (r *Registry) Get(id string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.plugins[id]
	if !ok {
		return Record{}, false
	}
	return e.record(), true
}

// SetConfig merges partial into the plugin's configuration. A nil value
// removes its key. When the plugin validates its configuration the merged
// result must pass, otherwise ErrInvalidConfig is returned and the stored
// configuration is unchanged.
func (r *Registry) SetConfig(id string, partial Config) error {
	r.mu.Lock()
	e, ok := r.plugins[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownPlugin, id)
	}
	merged := cloneConfig(e.config)
	for k, v := range partial {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = cloneValue(v)
	}
	if validate := e.plugin.ValidateConfig; validate != nil {
		if err := validate(cloneConfig(merged)); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("plugin %q: %w: %w", id, ErrInvalidConfig, err)
		}
	}
	e.config = merged
	snapshot := cloneConfig(merged)
	r.mu.Unlock()

	r.publish(EventConfig, id, snapshot)
	return nil
}

// Enable marks the plugin enabled.
func (r *Registry) Enable(id string) error {
	return r.setEnabled(id, true)
}

// Disable marks the plugin disabled.
func (r *Registry) Disable(id string) error {
	return r.setEnabled(id, false)
}

func (r *Registry) setEnabled(id string, enabled bool) error {
	r.mu.Lock()
	e, ok := r.plugins[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownPlugin, id)
	}
	e.enabled = enabled
	r.mu.Unlock()

	if enabled {
		r.publish(EventEnabled, id)
	} else {
		r.publish(EventDisabled, id)
	}
	return nil
}

// List returns every record in registration order.
func (r *Registry) List() []Record {
	return r.filter(func(*entry) bool { return true })
}

// ListKind returns the records of one kind in registration order.
func (r *Registry) ListKind(kind Kind) []Record {
	return r.filter(func(e *entry) bool { return e.plugin.Kind() == kind })
}

// Enabled returns the enabled records of one kind in registration order.
func (r *Registry) Enabled(kind Kind) []Record {
	return r.filter(func(e *entry) bool { return e.enabled && e.plugin.Kind() == kind })
}

func (r *Registry) filter(keep func(*entry) bool) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Record
	for _, id := range r.order {
		if e := r.plugins[id]; keep(e) {
			out = append(out, e.record())
		}
	}
	return out
}

// On attaches fn to event and returns a function that detaches it.
func (r *Registry) On(event string, fn Listener) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners[event] = append(r.listeners[event], listener{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			ls := r.listeners[event]
			for i, l := range ls {
				if l.id == id {
					r.listeners[event] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
		})
	}
}

// Emit calls every listener of event in the order they were attached, with
// the same arguments. A listener that fails or panics does not stop the
// others; all failures are returned together once every listener has run.
func (r *Registry) Emit(event string, args ...any) error {
	r.mu.RLock()
	ls := append([]listener(nil), r.listeners[event]...)
	r.mu.RUnlock()

	var errs []error
	for i, l := range ls {
		if err := call(l.fn, args); err != nil {
			errs = append(errs, fmt.Errorf("%s listener %d: %w", event, i, err))
		}
	}
	return errors.Join(errs...)
}

func call(fn Listener, args []any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(args...)
}

func (r *Registry) publish(event string, args ...any) {
	if err := r.Emit(event, args...); err != nil && r.onError != nil {
		r.onError(event, err)
	}
}

func (e *entry) record() Record {
	return Record{Plugin: e.plugin, Enabled: e.enabled, Config: cloneConfig(e.config)}
}
