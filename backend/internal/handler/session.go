package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/markpad/backend/internal/auth"
	"github.com/jun/markpad/backend/internal/metrics"
	"github.com/jun/markpad/backend/internal/model"
	"github.com/jun/markpad/backend/internal/session"
)

// SessionHandler handles edit lock requests.
type SessionHandler struct {
	locker  session.Locker
	tokens  *auth.Tokens
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(locker session.Locker, tokens *auth.Tokens, m *metrics.Metrics, log *slog.Logger) *SessionHandler {
	return &SessionHandler{locker: locker, tokens: tokens, metrics: m, log: log}
}

// lockRequest authenticates req and extracts the document id.
func (h *SessionHandler) lockRequest(req events.APIGatewayProxyRequest) (userID, documentID string, resp *events.APIGatewayProxyResponse) {
	userID, err := GetUserID(req, h.tokens)
	if err != nil {
		r := textResponse(http.StatusUnauthorized, "Unauthorized")
		return "", "", &r
	}
	documentID = req.PathParameters["id"]
	if documentID == "" {
		r := textResponse(http.StatusBadRequest, "Missing document ID")
		return "", "", &r
	}
	return userID, documentID, nil
}

func (h *SessionHandler) lockResponse(op string, lock *model.EditLock, err error) events.APIGatewayProxyResponse {
	h.metrics.Locks.WithLabelValues(op, metrics.Outcome(err)).Inc()
	switch {
	case err == nil:
		return jsonResponse(http.StatusOK, lock)
	case errors.Is(err, session.ErrLocked):
		return textResponse(http.StatusConflict, "Document is locked by another user")
	case errors.Is(err, session.ErrNotOwner):
		return textResponse(http.StatusForbidden, "Lock not found or expired")
	}
	h.log.Error("lock "+op+" failed", "error", err)
	return textResponse(http.StatusInternalServerError, "Failed to "+op+" lock")
}

// AcquireLock takes the edit lock on a document.
func (h *SessionHandler) AcquireLock(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, documentID, resp := h.lockRequest(req)
	if resp != nil {
		return *resp, nil
	}
	lock, err := h.locker.Acquire(ctx, documentID, userID)
	return h.lockResponse("acquire", lock, err), nil
}

// Heartbeat extends a held lock.
func (h *SessionHandler) Heartbeat(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, documentID, resp := h.lockRequest(req)
	if resp != nil {
		return *resp, nil
	}
	lock, err := h.locker.Heartbeat(ctx, documentID, userID)
	return h.lockResponse("heartbeat", lock, err), nil
}

// ReleaseLock gives up a held lock.
func (h *SessionHandler) ReleaseLock(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, documentID, resp := h.lockRequest(req)
	if resp != nil {
		return *resp, nil
	}
	if err := h.locker.Release(ctx, documentID, userID); err != nil {
		return h.lockResponse("release", nil, err), nil
	}
	h.metrics.Locks.WithLabelValues("release", "ok").Inc()
	return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}, nil
}

type lockStatus struct {
	Locked bool            `json:"locked"`
	Mine   bool            `json:"mine"`
	Lock   *model.EditLock `json:"lock,omitempty"`
}

// LockStatus reports who, if anyone, holds the lock on a document.
func (h *SessionHandler) LockStatus(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, documentID, resp := h.lockRequest(req)
	if resp != nil {
		return *resp, nil
	}
	lock, err := h.locker.Status(ctx, documentID)
	if err != nil {
		return h.lockResponse("status", nil, err), nil
	}
	return jsonResponse(http.StatusOK, lockStatus{
		Locked: lock != nil,
		Mine:   lock != nil && lock.UserID == userID,
		Lock:   lock,
	}), nil
}
