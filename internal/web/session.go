package web

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/JonMunkholm/tabular/internal/config"
	"github.com/JonMunkholm/tabular/internal/logging"
)

// sessionKeyID is the session value holding the table identity.
const sessionKeyID = "sid"

// sessionManager issues every browser a signed cookie carrying a random
// session id. The id keys the table store; the table itself never travels
// in the cookie.
type sessionManager struct {
	store *sessions.CookieStore
	name  string
}

func newSessionManager(cfg config.SessionConfig) (*sessionManager, error) {
	var key []byte
	if cfg.Secret != "" {
		// Hash the secret to get a consistent 32-byte key
		sum := sha256.Sum256([]byte(cfg.Secret))
		key = sum[:]
	} else {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		slog.Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &sessionManager{store: store, name: cfg.CookieName}, nil
}

// middleware resolves the caller's session id, issuing a new one when the
// cookie is absent or fails verification, and stores it in the context.
func (sm *sessionManager) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get returns a fresh session alongside a decode error, so a
		// tampered or expired cookie simply starts a new session.
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			logging.FromContext(r.Context()).Debug("discarding invalid session cookie", "error", err)
		}

		id, _ := sess.Values[sessionKeyID].(string)
		if _, perr := uuid.Parse(id); perr != nil {
			id = uuid.NewString()
			sess.Values[sessionKeyID] = id
			if err := sess.Save(r, w); err != nil {
				logging.FromContext(r.Context()).Error("failed to save session", "error", err)
			}
		}

		ctx := logging.WithSession(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
