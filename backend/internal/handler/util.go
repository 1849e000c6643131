package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/markpad/backend/internal/adapter"
	"github.com/jun/markpad/backend/internal/auth"
	"github.com/jun/markpad/backend/internal/model"
)

// GetUserID extracts and verifies the session token of req and returns
// its subject.
func GetUserID(req events.APIGatewayProxyRequest, tokens *auth.Tokens) (string, error) {
	tokenString, err := auth.FromHeaders(req.Headers)
	if err != nil {
		return "", err
	}
	claims, err := tokens.Parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// header looks up a request header case-insensitively.
func header(req events.APIGatewayProxyRequest, name string) string {
	for k, v := range req.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// ifMatch returns the ETag of the If-Match header without quotes.
func ifMatch(req events.APIGatewayProxyRequest) string {
	v := strings.TrimSpace(header(req, "If-Match"))
	v = strings.TrimPrefix(v, "W/")
	return strings.Trim(v, `"`)
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(v)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

func textResponse(status int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: status, Body: body}
}

// errorResponse maps a store or lock error to its status code. Unexpected
// errors are logged and reported without detail.
func errorResponse(log *slog.Logger, op string, err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, adapter.ErrNotFound):
		return textResponse(http.StatusNotFound, "Document not found")
	case errors.Is(err, adapter.ErrPreconditionFailed):
		return textResponse(http.StatusPreconditionFailed, "Document was modified by another session")
	case errors.Is(err, adapter.ErrTooLarge):
		return textResponse(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, adapter.ErrInvalidName):
		return textResponse(http.StatusBadRequest, err.Error())
	case errors.Is(err, adapter.ErrLimitReached):
		return textResponse(http.StatusForbidden, err.Error())
	}
	log.Error(op+" failed", "error", err)
	return textResponse(http.StatusInternalServerError, "Internal Server Error")
}

// userStore authenticates req and returns the caller's document store.
// A non-nil response means the request must be answered with it.
func userStore(ctx context.Context, req events.APIGatewayProxyRequest, tokens *auth.Tokens, stores adapter.StoreProvider) (adapter.DocumentStore, *events.APIGatewayProxyResponse) {
	userID, err := GetUserID(req, tokens)
	if err != nil {
		resp := textResponse(http.StatusUnauthorized, "Unauthorized")
		return nil, &resp
	}
	store, err := stores.GetStore(ctx, userID)
	if err != nil {
		resp := textResponse(http.StatusInternalServerError, "Failed to open document store")
		return nil, &resp
	}
	return store, nil
}

// toDocument converts stored metadata to the API shape.
func toDocument(meta adapter.Metadata, content []byte) model.Document {
	return model.Document{
		ID:           meta.ID,
		Name:         meta.Name,
		ModifiedTime: meta.ModifiedTime,
		Size:         meta.Size,
		ETag:         meta.ETag,
		Starred:      meta.Starred,
		Content:      string(content),
	}
}

func toDocuments(metas []adapter.Metadata) []model.Document {
	out := make([]model.Document, 0, len(metas))
	for _, m := range metas {
		out = append(out, toDocument(m, nil))
	}
	return out
}
