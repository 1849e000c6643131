package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/markpad/backend/internal/auth"
	"github.com/jun/markpad/core/editor"
	"github.com/jun/markpad/core/plugin"
	"github.com/jun/markpad/core/plugin/builtin"
)

// PluginHandler exposes the plugin registry.
type PluginHandler struct {
	registry *plugin.Registry
	tokens   *auth.Tokens
	log      *slog.Logger
}

// NewPluginHandler creates a new PluginHandler.
func NewPluginHandler(registry *plugin.Registry, tokens *auth.Tokens, log *slog.Logger) *PluginHandler {
	return &PluginHandler{registry: registry, tokens: tokens, log: log}
}

// PluginInfo is the API view of a registered plugin.
type PluginInfo struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Kind        plugin.Kind   `json:"kind"`
	Version     string        `json:"version,omitempty"`
	Description string        `json:"description,omitempty"`
	Enabled     bool          `json:"enabled"`
	Config      plugin.Config `json:"config"`
}

func toPluginInfo(rec plugin.Record) PluginInfo {
	cfg := rec.Config
	if cfg == nil {
		cfg = plugin.Config{}
	}
	return PluginInfo{
		ID:          rec.ID(),
		Name:        rec.Plugin.Name,
		Kind:        rec.Kind(),
		Version:     rec.Plugin.Version,
		Description: rec.Plugin.Description,
		Enabled:     rec.Enabled,
		Config:      cfg,
	}
}

// ListPlugins returns every registered plugin, optionally filtered by ?kind=.
func (h *PluginHandler) ListPlugins(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetUserID(req, h.tokens); err != nil {
		return textResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}

	records := h.registry.List()
	if k := req.QueryStringParameters["kind"]; k != "" {
		kind, err := plugin.ParseKind(k)
		if err != nil {
			return textResponse(http.StatusBadRequest, err.Error()), nil
		}
		records = h.registry.ListKind(kind)
	}

	out := make([]PluginInfo, 0, len(records))
	for _, rec := range records {
		out = append(out, toPluginInfo(rec))
	}
	return jsonResponse(http.StatusOK, out), nil
}

type patchPluginRequest struct {
	Enabled *bool         `json:"enabled"`
	Config  plugin.Config `json:"config"`
}

// PatchPlugin enables, disables or reconfigures a plugin. A configuration
// the plugin rejects leaves it untouched.
func (h *PluginHandler) PatchPlugin(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, err := GetUserID(req, h.tokens)
	if err != nil {
		return textResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}
	id := req.PathParameters["id"]
	if id == "" {
		return textResponse(http.StatusBadRequest, "Missing plugin ID"), nil
	}

	var payload patchPluginRequest
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}

	if payload.Config != nil {
		if err := h.registry.SetConfig(id, payload.Config); err != nil {
			return h.pluginError(err), nil
		}
	}
	if payload.Enabled != nil {
		if *payload.Enabled {
			err = h.registry.Enable(id)
		} else {
			err = h.registry.Disable(id)
		}
		if err != nil {
			return h.pluginError(err), nil
		}
	}

	rec, ok := h.registry.Get(id)
	if !ok {
		return textResponse(http.StatusNotFound, "Plugin not found"), nil
	}
	h.log.Info("plugin updated", "plugin_id", id, "user_id", userID, "enabled", rec.Enabled)
	return jsonResponse(http.StatusOK, toPluginInfo(rec)), nil
}

func (h *PluginHandler) pluginError(err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, plugin.ErrUnknownPlugin):
		return textResponse(http.StatusNotFound, err.Error())
	case errors.Is(err, plugin.ErrInvalidConfig):
		return textResponse(http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error("plugin update failed", "error", err)
		return textResponse(http.StatusInternalServerError, "Internal Server Error")
	}
}

type shortcutsResponse struct {
	Shortcuts map[string]editor.Action `json:"shortcuts"`
	Actions   []editor.Action          `json:"actions"`
}

// Shortcuts returns the active key bindings and the enabled toolbar actions
// in toolbar order.
func (h *PluginHandler) Shortcuts(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetUserID(req, h.tokens); err != nil {
		return textResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}
	actions := []editor.Action{}
	for _, rec := range h.registry.Enabled(plugin.KindToolbar) {
		if tb, ok := rec.Plugin.Payload.(plugin.Toolbar); ok {
			actions = append(actions, editor.Action(tb.Action))
		}
	}
	return jsonResponse(http.StatusOK, shortcutsResponse{
		Shortcuts: builtin.Shortcuts(h.registry),
		Actions:   actions,
	}), nil
}
