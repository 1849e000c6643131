package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/jun/markpad/backend/internal/adapter"
	"github.com/jun/markpad/backend/internal/auth"
)

// AuthHandler handles authentication requests.
type AuthHandler struct {
	stores      adapter.StoreProvider
	tokens      *auth.Tokens
	log         *slog.Logger
	frontendURL string
	crossSite   bool
}

// NewAuthHandler creates a new AuthHandler. crossSite selects SameSite=None
// cookies for deployments where the frontend and API origins differ.
func NewAuthHandler(stores adapter.StoreProvider, tokens *auth.Tokens, log *slog.Logger, frontendURL string, crossSite bool) *AuthHandler {
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	return &AuthHandler{
		stores:      stores,
		tokens:      tokens,
		log:         log,
		frontendURL: frontendURL,
		crossSite:   crossSite,
	}
}

// DemoUserPrefix starts the user ID of every demo session.
const DemoUserPrefix = "demo-user-"

type welcomeDocument struct {
	Name    string
	Content string
}

var welcomeDocuments = []welcomeDocument{
	{
		Name: "Welcome!.md",
		Content: "# Welcome to markpad!\n\n" +
			"markpad is a Markdown editor with live preview, diagrams and math.\n\n" +
			"## Formatting\n\n" +
			"Select some text and press **Mod-b** for bold or *Mod-i* for italic. " +
			"The toolbar inserts links, images, tables and task lists.\n\n" +
			"- [x] Open this document\n" +
			"- [ ] Write your first note\n\n" +
			"## Diagrams\n\n" +
			"```mermaid\n" +
			"graph TD\n" +
			"    A[Write] --> B{Preview}\n" +
			"    B -->|looks good| C[Export]\n" +
			"    B -->|needs work| A\n" +
			"```\n\n" +
			"## Math\n\n" +
			"Inline $e^{i\\pi} + 1 = 0$ and display math:\n\n" +
			"$$\n\\sum_{k=1}^{n} k = \\frac{n(n+1)}{2}\n$$\n",
	},
	{
		Name: "Shortcuts.md",
		Content: "# Shortcuts\n\n" +
			"| Keys | Action |\n" +
			"| --- | --- |\n" +
			"| Mod-b | Bold |\n" +
			"| Mod-i | Italic |\n" +
			"| Mod-k | Link |\n" +
			"| Mod-e | Inline code |\n" +
			"| Mod-Alt-c | Code block |\n\n" +
			"Type `:` followed by a name to insert an emoji :tada: and `/` for commands.\n",
	},
}

// DemoLogin creates a throwaway user seeded with welcome documents and
// issues a session for it.
func (h *AuthHandler) DemoLogin(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID := DemoUserPrefix + uuid.NewString()

	store, err := h.stores.GetStore(ctx, userID)
	if err != nil {
		h.log.Error("demo login: open store failed", "user_id", userID, "error", err)
		return textResponse(http.StatusInternalServerError, "Failed to open document store"), nil
	}
	for _, doc := range welcomeDocuments {
		if _, err := store.Create(ctx, doc.Name, []byte(doc.Content)); err != nil {
			// The session is still usable without the sample documents.
			h.log.Warn("demo login: create welcome document failed", "name", doc.Name, "error", err)
		}
	}

	token, err := h.tokens.Issue(userID, userID+"@demo.local", "Demo User")
	if err != nil {
		h.log.Error("demo login: issue token failed", "error", err)
		return textResponse(http.StatusInternalServerError, "Failed to sign token"), nil
	}
	h.log.Info("demo session started", "user_id", userID)

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusFound,
		Headers: map[string]string{
			"Location": h.frontendURL + "/?token=" + url.QueryEscape(token),
		},
		MultiValueHeaders: map[string][]string{
			"Set-Cookie": {auth.Cookie(token, h.tokens.TTL(), h.crossSite)},
		},
	}, nil
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	resp := jsonResponse(http.StatusOK, map[string]bool{"success": true})
	resp.MultiValueHeaders = map[string][]string{
		"Set-Cookie": {auth.Cookie("", 0, h.crossSite)},
	}
	return resp, nil
}

type profile struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// GetUser returns the current user's profile from the session token.
func (h *AuthHandler) GetUser(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	token, err := auth.FromHeaders(req.Headers)
	if err != nil {
		return textResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}
	claims, err := h.tokens.Parse(token)
	if err != nil {
		return textResponse(http.StatusUnauthorized, "Unauthorized"), nil
	}
	return jsonResponse(http.StatusOK, profile{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
	}), nil
}
