package session

import (
	"context"
	"net/http"
	"strings"
	"time"

	"shopify-embedded-app/internal/domain"
	"shopify-embedded-app/internal/ports"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/rs/zerolog"
)

// CookieName is the opaque session cookie issued to the embedded app
const CookieName = "shopify_app_session"

const (
	keyShop        = "shop"
	keyAccessToken = "accessToken"
	keyScopes      = "scopes"
	keyState       = "oauthState"
)

var _ ports.SessionStore = (*Manager)(nil)

// Manager binds domain sessions to scs. The cookie is Secure and SameSite=None
// so it survives inside the Shopify admin iframe.
type Manager struct {
	scs    *scs.SessionManager
	logger zerolog.Logger
}

// NewManager creates a session manager over store; a nil store keeps sessions in memory
func NewManager(store scs.Store, lifetime time.Duration, logger zerolog.Logger) *Manager {
	if store == nil {
		store = memstore.New()
	}

	sm := scs.New()
	sm.Store = store
	sm.Lifetime = lifetime
	sm.Cookie.Name = CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = true
	sm.Cookie.SameSite = http.SameSiteNoneMode
	sm.Cookie.Path = "/"
	sm.Cookie.Persist = true
	sm.ErrorFunc = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("Session store failure")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}

	return &Manager{scs: sm, logger: logger}
}

// LoadAndSave loads the session for each request and commits it before the response is written
func (m *Manager) LoadAndSave(next http.Handler) http.Handler {
	return m.scs.LoadAndSave(next)
}

// Load returns the session bound to ctx, empty when nothing is stored
func (m *Manager) Load(ctx context.Context) domain.Session {
	s := domain.Session{
		Shop:        m.scs.GetString(ctx, keyShop),
		AccessToken: m.scs.GetString(ctx, keyAccessToken),
	}
	if scopes := m.scs.GetString(ctx, keyScopes); scopes != "" {
		s.Scopes = strings.Split(scopes, ",")
	}
	return s
}

// Save stores an authenticated session. The token is renewed first to
// prevent session fixation across the OAuth handshake.
func (m *Manager) Save(ctx context.Context, s domain.Session) error {
	if err := m.scs.RenewToken(ctx); err != nil {
		return err
	}
	m.scs.Put(ctx, keyShop, s.Shop)
	m.scs.Put(ctx, keyAccessToken, s.AccessToken)
	m.scs.Put(ctx, keyScopes, strings.Join(s.Scopes, ","))
	return nil
}

// Destroy drops the session and expires its cookie
func (m *Manager) Destroy(ctx context.Context) error {
	return m.scs.Destroy(ctx)
}

// PutState remembers the OAuth state nonce for the callback
func (m *Manager) PutState(ctx context.Context, state string) {
	m.scs.Put(ctx, keyState, state)
}

// PopState returns the stored nonce and removes it, so each nonce is usable once
func (m *Manager) PopState(ctx context.Context) string {
	return m.scs.PopString(ctx, keyState)
}
