package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/markpad/backend/internal/handler"
	"github.com/jun/markpad/backend/internal/metrics"
	"github.com/jun/markpad/backend/internal/model"
	"github.com/jun/markpad/backend/internal/session"
)

func newSessionHandler() *handler.SessionHandler {
	return handler.NewSessionHandler(session.NewMemoryLocker(), testTokens, metrics.NewNop(), testLog)
}

func asUser(req events.APIGatewayProxyRequest, userID string) events.APIGatewayProxyRequest {
	req.Headers["Authorization"] = "Bearer " + makeToken(userID)
	return req
}

func TestSessionHandler_AcquireLock(t *testing.T) {
	h := newSessionHandler()
	ctx := context.Background()

	resp, err := h.AcquireLock(ctx, withID(makeRequest("POST", "/documents/doc1/lock", ""), "doc1"))
	if err != nil {
		t.Fatalf("AcquireLock returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, resp.Body)
	}
	var lock model.EditLock
	decode(t, resp, &lock)
	if lock.DocumentID != "doc1" || lock.UserID != testUserID {
		t.Errorf("Unexpected lock %+v", lock)
	}

	// Re-acquiring your own lock succeeds.
	resp, _ = h.AcquireLock(ctx, withID(makeRequest("POST", "/documents/doc1/lock", ""), "doc1"))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 on re-acquire, got %d", resp.StatusCode)
	}

	resp, _ = h.AcquireLock(ctx, asUser(withID(makeRequest("POST", "/documents/doc1/lock", ""), "doc1"), "other-user"))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for another user, got %d", resp.StatusCode)
	}
}

func TestSessionHandler_BadRequests(t *testing.T) {
	h := newSessionHandler()
	ctx := context.Background()

	unauth := events.APIGatewayProxyRequest{
		Headers:        map[string]string{},
		PathParameters: map[string]string{"id": "doc1"},
	}
	if resp, _ := h.AcquireLock(ctx, unauth); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
	if resp, _ := h.Heartbeat(ctx, makeRequest("PUT", "/documents//lock", "")); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestSessionHandler_HeartbeatAndRelease(t *testing.T) {
	h := newSessionHandler()
	ctx := context.Background()
	req := withID(makeRequest("POST", "/documents/doc1/lock", ""), "doc1")

	if resp, _ := h.Heartbeat(ctx, req); resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 without a lock, got %d", resp.StatusCode)
	}

	h.AcquireLock(ctx, req)
	if resp, _ := h.Heartbeat(ctx, req); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 on heartbeat, got %d", resp.StatusCode)
	}

	other := asUser(withID(makeRequest("DELETE", "/documents/doc1/lock", ""), "doc1"), "other-user")
	if resp, _ := h.ReleaseLock(ctx, other); resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403 when releasing someone else's lock, got %d", resp.StatusCode)
	}

	if resp, _ := h.ReleaseLock(ctx, req); resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204 on release, got %d", resp.StatusCode)
	}

	// Free again for anyone.
	if resp, _ := h.AcquireLock(ctx, asUser(req, "other-user")); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 after release, got %d", resp.StatusCode)
	}
}

func TestSessionHandler_LockStatus(t *testing.T) {
	h := newSessionHandler()
	ctx := context.Background()
	req := withID(makeRequest("GET", "/documents/doc1/lock", ""), "doc1")

	var status struct {
		Locked bool            `json:"locked"`
		Mine   bool            `json:"mine"`
		Lock   *model.EditLock `json:"lock"`
	}
	resp, _ := h.LockStatus(ctx, req)
	decode(t, resp, &status)
	if status.Locked || status.Lock != nil {
		t.Errorf("Expected an unlocked document, got %+v", status)
	}

	h.AcquireLock(ctx, req)
	resp, _ = h.LockStatus(ctx, req)
	decode(t, resp, &status)
	if !status.Locked || !status.Mine {
		t.Errorf("Expected a lock held by the caller, got %+v", status)
	}

	resp, _ = h.LockStatus(ctx, asUser(withID(makeRequest("GET", "/documents/doc1/lock", ""), "doc1"), "other-user"))
	decode(t, resp, &status)
	if !status.Locked || status.Mine || status.Lock.UserID != testUserID {
		t.Errorf("Expected a lock held by %s, got %+v", testUserID, status)
	}
}
