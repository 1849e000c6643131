package handler_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/markpad/backend/internal/adapter"
	"github.com/jun/markpad/backend/internal/adapter/memory"
	"github.com/jun/markpad/backend/internal/auth"
	"github.com/jun/markpad/backend/internal/logging"
)

const (
	testUserID    = "test-user-123"
	testJWTSecret = "test-secret"
)

var testTokens = auth.NewTokens(testJWTSecret, 0)

var testLog = logging.NewNop()

func makeToken(userID string) string {
	token, err := testTokens.Issue(userID, userID+"@example.com", "Test User")
	if err != nil {
		panic(err)
	}
	return token
}

func makeRequest(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers: map[string]string{
			"Authorization": "Bearer " + makeToken(testUserID),
			"Content-Type":  "application/json",
		},
		PathParameters:        map[string]string{},
		QueryStringParameters: map[string]string{},
	}
}

func withID(req events.APIGatewayProxyRequest, id string) events.APIGatewayProxyRequest {
	req.PathParameters = map[string]string{"id": id}
	return req
}

// seed creates a document for testUserID directly in the store.
func seed(t *testing.T, provider *memory.Provider, name, content string) *adapter.Metadata {
	t.Helper()
	store, err := provider.GetStore(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("GetStore failed: %v", err)
	}
	meta, err := store.Create(context.Background(), name, []byte(content))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return meta
}

func decode(t *testing.T, resp events.APIGatewayProxyResponse, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(resp.Body), v); err != nil {
		t.Fatalf("decode %q: %v", resp.Body, err)
	}
}
