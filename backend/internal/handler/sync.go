package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jun/markpad/backend/internal/adapter"
	"github.com/jun/markpad/backend/internal/auth"
	coresync "github.com/jun/markpad/core/sync"
)

// SyncHandler handles synchronization and conflict detection.
type SyncHandler struct {
	stores adapter.StoreProvider
	tokens *auth.Tokens
	log    *slog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(stores adapter.StoreProvider, tokens *auth.Tokens, log *slog.Logger) *SyncHandler {
	return &SyncHandler{stores: stores, tokens: tokens, log: log}
}

// CheckConflictRequest represents the request body for conflict checking.
// When DocumentID is set the remote ETag is read from the store.
type CheckConflictRequest struct {
	DocumentID string `json:"document_id,omitempty"`
	LocalETag  string `json:"local_etag"`
	RemoteETag string `json:"remote_etag"`
}

// CheckConflictResponse represents the response body.
type CheckConflictResponse struct {
	HasConflict bool   `json:"has_conflict"`
	RemoteETag  string `json:"remote_etag"`
}

// CheckConflict reports whether a save based on the local ETag would
// overwrite another revision.
func (h *SyncHandler) CheckConflict(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}

	var input CheckConflictRequest
	if err := json.Unmarshal([]byte(req.Body), &input); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}

	remote := input.RemoteETag
	if input.DocumentID != "" {
		doc, err := store.Get(ctx, input.DocumentID)
		if err != nil {
			return errorResponse(h.log, "check conflict", err), nil
		}
		remote = doc.ETag
	}

	return jsonResponse(http.StatusOK, CheckConflictResponse{
		HasConflict: coresync.CheckConflict(input.LocalETag, remote),
		RemoteETag:  remote,
	}), nil
}

// PushChange is an offline edit together with the revision it was based on.
type PushChange struct {
	coresync.OfflineChange
	BaseETag string `json:"baseEtag"`
}

// PushResult reports what happened to one pushed document.
type PushResult struct {
	DocumentID string `json:"documentId"`
	Status     string `json:"status"`
	ETag       string `json:"etag,omitempty"`
	// CopyID is set when the change conflicted and was kept as a copy.
	CopyID string `json:"copyId,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	pushSaved    = "saved"
	pushConflict = "conflict"
	pushFailed   = "failed"
)

// Push replays offline changes. Only the latest change per document is
// applied. A change whose base revision is stale is stored as a conflict
// copy instead of overwriting the remote edit.
func (h *SyncHandler) Push(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	store, resp := userStore(ctx, req, h.tokens, h.stores)
	if resp != nil {
		return *resp, nil
	}

	var input struct {
		Changes []PushChange `json:"changes"`
	}
	if err := json.Unmarshal([]byte(req.Body), &input); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}

	queue := coresync.NewQueue()
	bases := make(map[string]string)
	for _, c := range input.Changes {
		if c.DocumentID == "" {
			continue
		}
		queue.Add(c.OfflineChange)
		if _, ok := bases[c.DocumentID]; !ok {
			bases[c.DocumentID] = c.BaseETag
		}
	}

	results := make([]PushResult, 0, queue.Len())
	for _, c := range queue.Drain() {
		results = append(results, h.push(ctx, store, c, bases[c.DocumentID]))
	}
	return jsonResponse(http.StatusOK, results), nil
}

func (h *SyncHandler) push(ctx context.Context, store adapter.DocumentStore, c coresync.OfflineChange, base string) PushResult {
	res := PushResult{DocumentID: c.DocumentID}
	content := []byte(c.Content)

	meta, err := store.Save(ctx, c.DocumentID, content, base)
	if err == nil {
		res.Status, res.ETag = pushSaved, meta.ETag
		return res
	}
	if !errors.Is(err, adapter.ErrPreconditionFailed) || base == "" {
		h.log.Warn("push failed", "document_id", c.DocumentID, "error", err)
		res.Status, res.Error = pushFailed, err.Error()
		return res
	}

	remote, err := store.Get(ctx, c.DocumentID)
	if err != nil {
		res.Status, res.Error = pushFailed, err.Error()
		return res
	}
	at := time.Unix(c.Timestamp, 0)
	if c.Timestamp == 0 {
		at = time.Now()
	}
	cp, err := store.Create(ctx, coresync.ConflictCopyName(remote.Name, at), content)
	if err != nil {
		res.Status, res.Error = pushFailed, err.Error()
		return res
	}
	h.log.Info("conflict copy created", "document_id", c.DocumentID, "copy_id", cp.ID)
	res.Status, res.ETag, res.CopyID = pushConflict, remote.ETag, cp.ID
	return res
}
