package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/markpad/backend/internal/adapter"
	"github.com/jun/markpad/backend/internal/auth"
)

// DocumentHandler handles CRUD operations for documents.
type DocumentHandler struct {
	stores adapter.StoreProvider
	tokens *auth.Tokens
	log    *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(stores adapter.StoreProvider, tokens *auth.Tokens, log *slog.Logger) *DocumentHandler {
	return &DocumentHandler{stores: stores, tokens: tokens, log: log}
}

// ListDocuments lists the caller's documents, most recent first.
func (h *DocumentHandler) ListDocuments(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}
	docs, err := store.List(ctx)
	if err != nil {
		return errorResponse(h.log, "list documents", err), nil
	}
	return jsonResponse(http.StatusOK, toDocuments(docs)), nil
}

type createRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// CreateDocument stores a new document.
func (h *DocumentHandler) CreateDocument(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}

	var payload createRequest
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}
	if payload.Name == "" {
		payload.Name = "Untitled"
	}

	meta, err := store.Create(ctx, payload.Name, []byte(payload.Content))
	if err != nil {
		return errorResponse(h.log, "create document", err), nil
	}
	h.log.Info("document created", "document_id", meta.ID)
	return jsonResponse(http.StatusCreated, toDocument(*meta, nil)), nil
}

// GetDocument returns a document with its content.
func (h *DocumentHandler) GetDocument(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}
	id := req.PathParameters["id"]
	if id == "" {
		return textResponse(http.StatusBadRequest, "Missing document ID"), nil
	}

	doc, err := store.Get(ctx, id)
	if err != nil {
		return errorResponse(h.log, "get document", err), nil
	}
	out := jsonResponse(http.StatusOK, toDocument(doc.Metadata, doc.Content))
	out.Headers["ETag"] = `"` + doc.ETag + `"`
	return out, nil
}

type updateRequest struct {
	Content string `json:"content"`
	ETag    string `json:"etag"`
}

// UpdateDocument replaces a document's content. The ETag comes from the
// If-Match header or the body; without one the write is unconditional.
func (h *DocumentHandler) UpdateDocument(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}
	id := req.PathParameters["id"]
	if id == "" {
		return textResponse(http.StatusBadRequest, "Missing document ID"), nil
	}

	var payload updateRequest
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}
	etag := ifMatch(req)
	if etag == "" {
		etag = payload.ETag
	}

	meta, err := store.Save(ctx, id, []byte(payload.Content), etag)
	if err != nil {
		return errorResponse(h.log, "save document", err), nil
	}
	return jsonResponse(http.StatusOK, toDocument(*meta, nil)), nil
}

type patchRequest struct {
	Name    *string `json:"name"`
	Starred *bool   `json:"starred"`
}

// PatchDocument renames and/or stars a document.
func (h *DocumentHandler) PatchDocument(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}
	id := req.PathParameters["id"]
	if id == "" {
		return textResponse(http.StatusBadRequest, "Missing document ID"), nil
	}

	var payload patchRequest
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}
	if payload.Name == nil && payload.Starred == nil {
		return textResponse(http.StatusBadRequest, "Nothing to update"), nil
	}

	var meta *adapter.Metadata
	var err error
	if payload.Name != nil {
		if meta, err = store.Rename(ctx, id, strings.TrimSpace(*payload.Name)); err != nil {
			return errorResponse(h.log, "rename document", err), nil
		}
	}
	if payload.Starred != nil {
		if meta, err = store.SetStarred(ctx, id, *payload.Starred); err != nil {
			return errorResponse(h.log, "star document", err), nil
		}
	}
	return jsonResponse(http.StatusOK, toDocument(*meta, nil)), nil
}

// DeleteDocument removes a document.
func (h *DocumentHandler) DeleteDocument(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}
	id := req.PathParameters["id"]
	if id == "" {
		return textResponse(http.StatusBadRequest, "Missing document ID"), nil
	}
	if err := store.Delete(ctx, id); err != nil {
		return errorResponse(h.log, "delete document", err), nil
	}
	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
}

// DuplicateDocument copies a document.
func (h *DocumentHandler) DuplicateDocument(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}
	id := req.PathParameters["id"]
	if id == "" {
		return textResponse(http.StatusBadRequest, "Missing document ID"), nil
	}
	meta, err := store.Duplicate(ctx, id)
	if err != nil {
		return errorResponse(h.log, "duplicate document", err), nil
	}
	return jsonResponse(http.StatusCreated, toDocument(*meta, nil)), nil
}

// ListStarred lists starred documents.
func (h *DocumentHandler) ListStarred(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}
	docs, err := store.ListStarred(ctx)
	if err != nil {
		return errorResponse(h.log, "list starred", err), nil
	}
	return jsonResponse(http.StatusOK, toDocuments(docs)), nil
}

// Search finds documents by name or content.
func (h *DocumentHandler) Search(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}
	query := strings.TrimSpace(req.QueryStringParameters["q"])
	if query == "" {
		return textResponse(http.StatusBadRequest, "Missing search query"), nil
	}
	docs, err := store.Search(ctx, query)
	if err != nil {
		return errorResponse(h.log, "search", err), nil
	}
	return jsonResponse(http.StatusOK, toDocuments(docs)), nil
}
