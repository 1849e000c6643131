package model

import "time"

// EditLock is an edit session holding a document for one user until ExpiresAt.
type EditLock struct {
	DocumentID string `json:"document_id" dynamodbav:"document_id"`
	UserID     string `json:"user_id" dynamodbav:"user_id"`
	ExpiresAt  int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix timestamp)
}

// Document is the document shape returned by the API.
type Document struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ModifiedTime time.Time `json:"modifiedTime"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	Starred      bool      `json:"starred"`
	Content      string    `json:"content,omitempty"`
}

// FormatResult is the outcome of a formatText request on a stored document.
type FormatResult struct {
	Applied bool   `json:"applied"`
	Text    string `json:"text"`
	Anchor  int    `json:"anchor"`
	Head    int    `json:"head"`
	ETag    string `json:"etag"`
}
