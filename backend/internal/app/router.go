package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

type handlerFunc func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	method := req.HTTPMethod
	app.log.Debug("request", "method", method, "path", req.Path)

	// CORS Preflight
	if method == http.MethodOptions {
		return app.corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	// Only CloudFront knows the origin secret; skipped in DEV_MODE.
	if !app.cfg.DevMode && !app.originVerified(req) {
		app.log.Warn("missing or invalid X-Origin-Verify header", "path", req.Path)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusForbidden,
			Body:       "Forbidden: Access denied",
		}, nil
	}

	// Strip /api prefix if present (for CloudFront proxying)
	path := strings.TrimPrefix(req.Path, "/api")
	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}
	if req.QueryStringParameters == nil {
		req.QueryStringParameters = make(map[string]string)
	}

	h, id := app.route(method, path)
	if h == nil {
		return app.corsResponse(events.APIGatewayProxyResponse{
			StatusCode: http.StatusNotFound,
			Body:       fmt.Sprintf("Not Found: %s %s", method, path),
		}), nil
	}
	if id != "" {
		req.PathParameters["id"] = id
	}
	return app.corsResponse(app.must(h(ctx, req))), nil
}

// route finds the handler for method and path, and the {id} segment of
// the path when it has one.
func (app *App) route(method, path string) (handlerFunc, string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 {
		return nil, ""
	}

	switch parts[0] {
	case "health":
		if method == http.MethodGet && len(parts) == 1 {
			return app.health, ""
		}

	case "auth":
		switch path {
		case "/auth/demo-login":
			return match(method, http.MethodGet, app.authHandler.DemoLogin), ""
		case "/auth/logout":
			return match(method, http.MethodPost, app.authHandler.Logout), ""
		case "/auth/user":
			return match(method, http.MethodGet, app.authHandler.GetUser), ""
		}

	case "documents":
		return app.documentRoute(method, parts[1:])

	case "starred":
		if len(parts) == 1 {
			return match(method, http.MethodGet, app.documentHandler.ListStarred), ""
		}

	case "search":
		if len(parts) == 1 {
			return match(method, http.MethodGet, app.documentHandler.Search), ""
		}

	case "import":
		if len(parts) == 1 {
			return match(method, http.MethodPost, app.editorHandler.Import), ""
		}

	case "complete":
		if len(parts) == 1 {
			return match(method, http.MethodGet, app.editorHandler.Complete), ""
		}

	case "shortcuts":
		if len(parts) == 1 {
			return match(method, http.MethodGet, app.pluginHandler.Shortcuts), ""
		}

	case "plugins":
		switch len(parts) {
		case 1:
			return match(method, http.MethodGet, app.pluginHandler.ListPlugins), ""
		case 2:
			return match(method, http.MethodPatch, app.pluginHandler.PatchPlugin), parts[1]
		}

	case "sessions":
		// /sessions/{id}/lock, /sessions/{id}/heartbeat
		if len(parts) != 3 {
			break
		}
		id := parts[1]
		switch {
		case parts[2] == "lock" && method == http.MethodPost:
			return app.sessionHandler.AcquireLock, id
		case parts[2] == "lock" && method == http.MethodDelete:
			return app.sessionHandler.ReleaseLock, id
		case parts[2] == "lock" && method == http.MethodGet:
			return app.sessionHandler.LockStatus, id
		case parts[2] == "heartbeat" && method == http.MethodPost:
			return app.sessionHandler.Heartbeat, id
		}

	case "sync":
		switch path {
		case "/sync/check":
			return match(method, http.MethodPost, app.syncHandler.CheckConflict), ""
		case "/sync/push":
			return match(method, http.MethodPost, app.syncHandler.Push), ""
		}
	}
	return nil, ""
}

func (app *App) documentRoute(method string, parts []string) (handlerFunc, string) {
	docs := app.documentHandler
	switch len(parts) {
	case 0:
		switch method {
		case http.MethodGet:
			return docs.ListDocuments, ""
		case http.MethodPost:
			return docs.CreateDocument, ""
		}
	case 1:
		id := parts[0]
		switch method {
		case http.MethodGet:
			return docs.GetDocument, id
		case http.MethodPut:
			return docs.UpdateDocument, id
		case http.MethodPatch:
			return docs.PatchDocument, id
		case http.MethodDelete:
			return docs.DeleteDocument, id
		}
	case 2:
		id := parts[0]
		switch parts[1] {
		case "copy":
			return match(method, http.MethodPost, docs.DuplicateDocument), id
		case "delete":
			// POST fallback for clients that cannot send DELETE.
			return match(method, http.MethodPost, docs.DeleteDocument), id
		case "preview":
			return match(method, http.MethodGet, app.editorHandler.Preview), id
		case "export":
			return match(method, http.MethodGet, app.editorHandler.Export), id
		case "format":
			return match(method, http.MethodPost, app.editorHandler.Format), id
		}
	}
	return nil, ""
}

func match(method, want string, h handlerFunc) handlerFunc {
	if method != want {
		return nil
	}
	return h
}

func (app *App) health(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Body:       `{"status":"ok"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}, nil
}

func (app *App) originVerified(req events.APIGatewayProxyRequest) bool {
	if app.apiGatewaySecret == "" {
		return false
	}
	for k, v := range req.Headers {
		if strings.EqualFold(k, "X-Origin-Verify") && v == app.apiGatewaySecret {
			return true
		}
	}
	return false
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.cfg.FrontendURL
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,PUT,DELETE,OPTIONS,PATCH"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization,If-Match"
	resp.Headers["Access-Control-Expose-Headers"] = "ETag,Content-Disposition"
	return resp
}

// must unwraps a handler response, logging the error.
func (app *App) must(resp events.APIGatewayProxyResponse, err error) events.APIGatewayProxyResponse {
	if err != nil {
		app.log.Error("handler error", "error", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	return resp
}
