package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/markpad/backend/internal/adapter"
	"github.com/jun/markpad/backend/internal/auth"
	"github.com/jun/markpad/backend/internal/metrics"
	"github.com/jun/markpad/backend/internal/model"
	"github.com/jun/markpad/core/convert"
	"github.com/jun/markpad/core/editor"
	"github.com/jun/markpad/core/markdown"
	"github.com/jun/markpad/core/plugin"
	"github.com/jun/markpad/core/plugin/builtin"
)

// EditorHandler serves the editing features on stored documents: preview,
// export, import, formatText and completion.
type EditorHandler struct {
	stores         adapter.StoreProvider
	tokens         *auth.Tokens
	registry       *plugin.Registry
	metrics        *metrics.Metrics
	log            *slog.Logger
	highlightStyle string
}

// NewEditorHandler creates a new EditorHandler.
func NewEditorHandler(stores adapter.StoreProvider, tokens *auth.Tokens, registry *plugin.Registry, m *metrics.Metrics, log *slog.Logger, highlightStyle string) *EditorHandler {
	return &EditorHandler{
		stores:         stores,
		tokens:         tokens,
		registry:       registry,
		metrics:        m,
		log:            log,
		highlightStyle: highlightStyle,
	}
}

func (h *EditorHandler) document(ctx context.Context, req events.APIGatewayProxyRequest) (adapter.DocumentStore, *adapter.Document, *events.APIGatewayProxyResponse) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return nil, nil, resp
	}
	id := req.PathParameters["id"]
	if id == "" {
		r := textResponse(http.StatusBadRequest, "Missing document ID")
		return nil, nil, &r
	}
	doc, err := store.Get(ctx, id)
	if err != nil {
		r := errorResponse(h.log, "get document", err)
		return nil, nil, &r
	}
	return store, doc, nil
}

type previewResponse struct {
	HTML     string             `json:"html"`
	Headings []markdown.Heading `json:"headings"`
	ETag     string             `json:"etag"`
}

// Preview renders a document with the enabled plugins. Output is sanitised
// because documents may embed raw HTML.
func (h *EditorHandler) Preview(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	_, doc, resp := h.document(ctx, req)
	if resp != nil {
		return *resp, nil
	}

	start := time.Now()
	r := builtin.NewRenderer(h.registry, markdown.WithHighlightStyle(h.highlightStyle), markdown.WithSanitize())
	out, err := r.Render(doc.Content)
	h.metrics.ObserveRender("preview", start, err)
	if err != nil {
		// Transform plugins are user-configurable, so their failures are
		// the client's to fix.
		h.log.Warn("preview failed", "document_id", doc.ID, "error", err)
		return textResponse(http.StatusUnprocessableEntity, err.Error()), nil
	}
	return jsonResponse(http.StatusOK, previewResponse{
		HTML:     string(out),
		Headings: r.Headings(doc.Content),
		ETag:     doc.ETag,
	}), nil
}

// Export converts a document with the enabled exporter for ?format=
// (default html) and returns it as an attachment.
func (h *EditorHandler) Export(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	_, doc, resp := h.document(ctx, req)
	if resp != nil {
		return *resp, nil
	}
	format := req.QueryStringParameters["format"]
	if format == "" {
		format = "html"
	}

	exp, cfg, err := builtin.Exporter(h.registry, format)
	if err != nil {
		if errors.Is(err, builtin.ErrNoExporter) {
			return textResponse(http.StatusNotFound, err.Error()), nil
		}
		return errorResponse(h.log, "export", err), nil
	}

	start := time.Now()
	out, err := exp.Export(doc.Name, doc.Content, cfg)
	h.metrics.ObserveRender("export", start, err)
	if err != nil {
		h.log.Warn("export failed", "document_id", doc.ID, "format", format, "error", err)
		return textResponse(http.StatusUnprocessableEntity, err.Error()), nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       string(out),
		Headers: map[string]string{
			"Content-Type":        exp.MediaType,
			"Content-Disposition": fmt.Sprintf("attachment; filename=%q", fileName(doc.Name, exp.Extension)),
		},
	}, nil
}

// fileName derives a download name from a document name.
func fileName(name, ext string) string {
	base := strings.Map(func(r rune) rune {
		if r < 0x20 || strings.ContainsRune(`/\:*?"<>|`, r) {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	switch path.Ext(base) {
	case ".md", ".markdown":
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	if base == "" {
		base = "document"
	}
	return base + ext
}

// FormatRequest is the body of POST /documents/{id}/format. Offsets are
// UTF-16 code units, as reported by browser text APIs.
type FormatRequest struct {
	Action  string         `json:"action"`
	Anchor  int            `json:"anchor"`
	Head    int            `json:"head"`
	Options editor.Options `json:"options"`
	ETag    string         `json:"etag"`
}

// Format applies a formatText action to the stored document and saves the
// result. The client's ETag (If-Match or body) must match the stored one.
func (h *EditorHandler) Format(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, doc, resp := h.document(ctx, req)
	if resp != nil {
		return *resp, nil
	}

	var payload FormatRequest
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}
	etag := ifMatch(req)
	if etag == "" {
		etag = payload.ETag
	}
	if etag == "" {
		return textResponse(http.StatusPreconditionRequired, "If-Match is required"), nil
	}
	if etag != doc.ETag {
		return errorResponse(h.log, "format", adapter.ErrPreconditionFailed), nil
	}

	action := editor.Action(payload.Action)
	opts, err := builtin.ActionOptions(h.registry, action, payload.Options)
	if err != nil {
		h.metrics.Formats.WithLabelValues(payload.Action, "rejected").Inc()
		if errors.Is(err, builtin.ErrInvalidOptions) {
			return textResponse(http.StatusUnprocessableEntity, err.Error()), nil
		}
		return textResponse(http.StatusBadRequest, err.Error()), nil
	}

	text := string(doc.Content)
	state := editor.State{
		Text: text,
		Selection: editor.Selection{
			Anchor: editor.FromUTF16(text, payload.Anchor),
			Head:   editor.FromUTF16(text, payload.Head),
		},
	}
	next, ok := editor.FormatText(state, action, opts)

	result := model.FormatResult{
		Applied: ok,
		Text:    next.Text,
		Anchor:  editor.ToUTF16(next.Text, next.Selection.Anchor),
		Head:    editor.ToUTF16(next.Text, next.Selection.Head),
		ETag:    doc.ETag,
	}
	if !ok {
		h.metrics.Formats.WithLabelValues(payload.Action, "noop").Inc()
		return jsonResponse(http.StatusOK, result), nil
	}

	meta, err := store.Save(ctx, doc.ID, []byte(next.Text), doc.ETag)
	if err != nil {
		h.metrics.Formats.WithLabelValues(payload.Action, "error").Inc()
		return errorResponse(h.log, "save formatted document", err), nil
	}
	h.metrics.Formats.WithLabelValues(payload.Action, "ok").Inc()
	result.ETag = meta.ETag
	return jsonResponse(http.StatusOK, result), nil
}

type importRequest struct {
	Name string `json:"name"`
	HTML string `json:"html"`
}

// Import converts an HTML body to Markdown and stores it as a new document.
func (h *EditorHandler) Import(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}

	var payload importRequest
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}
	if strings.TrimSpace(payload.HTML) == "" {
		return textResponse(http.StatusBadRequest, "Missing html"), nil
	}
	if payload.Name == "" {
		payload.Name = "Imported"
	}

	md, err := convert.FromHTML(payload.HTML)
	if err != nil {
		return textResponse(http.StatusUnprocessableEntity, err.Error()), nil
	}
	meta, err := store.Create(ctx, payload.Name, []byte(md))
	if err != nil {
		return errorResponse(h.log, "import document", err), nil
	}
	return jsonResponse(http.StatusCreated, toDocument(*meta, []byte(md))), nil
}

// Complete returns autocomplete suggestions for ?trigger= and ?prefix=.
func (h *EditorHandler) Complete(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if _, err := GetUserID(req, h.tokens); err != nil {
		return textResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}
	trigger := req.QueryStringParameters["trigger"]
	if trigger == "" {
		return textResponse(http.StatusBadRequest, "Missing trigger"), nil
	}
	out := builtin.Complete(h.registry, trigger, req.QueryStringParameters["prefix"])
	if out == nil {
		out = []plugin.Suggestion{}
	}
	return jsonResponse(http.StatusOK, out), nil
}
