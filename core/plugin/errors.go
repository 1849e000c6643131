package plugin

import "errors"

var (
	// ErrDuplicateID is returned when registering an id that is already taken.
	ErrDuplicateID = errors.New("plugin id already registered")
	// ErrUnknownPlugin is returned for operations on an id that is not registered.
	ErrUnknownPlugin = errors.New("unknown plugin")
	// ErrInvalidConfig is returned when a plugin rejects a configuration.
	ErrInvalidConfig = errors.New("invalid plugin config")
	// ErrInvalidPlugin is returned when a plugin record is malformed.
	ErrInvalidPlugin = errors.New("invalid plugin")
)
