package ports

import (
	"context"
	"net/http"

	"shopify-embedded-app/internal/domain"
)

// SessionStore is the cookie-identified, server-side session
type SessionStore interface {
	Load(ctx context.Context) domain.Session
	Save(ctx context.Context, session domain.Session) error
	Destroy(ctx context.Context) error

	PutState(ctx context.Context, state string)
	PopState(ctx context.Context) string

	// LoadAndSave is the middleware binding the session to the request
	LoadAndSave(next http.Handler) http.Handler
}

// Renderer hands a request to the page-rendering frontend
type Renderer interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}
