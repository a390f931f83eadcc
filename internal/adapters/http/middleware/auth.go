package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"clubadmin/internal/inline"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const (
	sessionContextKey   contextKey = "session"
	principalContextKey contextKey = "principal"
)

// SessionTTL is how long a browser session stays valid.
const SessionTTL = 12 * time.Hour

// APIActor is the actor recorded for requests authenticated with the admin key.
const APIActor = "api-key"

// SecureCookies marks session cookies Secure. Set from config in production.
var SecureCookies = false

// Session represents an authenticated browser session.
type Session struct {
	ID        string // workbench scope, never sent to the client
	Actor     string
	CreatedAt time.Time
}

// Principal is whoever a request acts for, browser session or API key.
type Principal struct {
	Actor     string
	SessionID string
	Bearer    bool
}

// SessionStore is an in-memory session store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	now      func() time.Time
	onExpire func(Session)
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

// OnExpire registers f to run when a session is deleted or found expired.
func (ss *SessionStore) OnExpire(f func(Session)) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.onExpire = f
}

// Create stores a new session and returns its token.
// PRE: actor is non-empty
// POST: Session is stored under a fresh random token with a fresh uuid ID
func (ss *SessionStore) Create(actor string) (string, Session, error) {
	token, err := generateToken()
	if err != nil {
		return "", Session{}, err
	}
	sess := Session{ID: uuid.NewString(), Actor: actor, CreatedAt: ss.now()}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[token] = sess
	return token, sess, nil
}

// Get retrieves a session by token.
// PRE: token is non-empty
// POST: Returns session if valid and not expired; expired sessions are removed
func (ss *SessionStore) Get(token string) (Session, bool) {
	ss.mu.RLock()
	sess, ok := ss.sessions[token]
	ss.mu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if ss.now().Sub(sess.CreatedAt) > SessionTTL {
		ss.Delete(token)
		return Session{}, false
	}
	return sess, true
}

// Delete removes a session by token.
// PRE: token is non-empty
// POST: Session with given token is removed
func (ss *SessionStore) Delete(token string) {
	ss.mu.Lock()
	sess, ok := ss.sessions[token]
	delete(ss.sessions, token)
	hook := ss.onExpire
	ss.mu.Unlock()
	if ok && hook != nil {
		hook(sess)
	}
}

// Len returns the number of stored sessions.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

const sessionCookieName = "clubadmin_session"

// Auth returns middleware that resolves the caller. A session cookie sets the
// session and its principal. An "Authorization: Bearer" header is checked
// against adminKeyHash; a wrong key is answered with 401 and never reaches
// the handler. Requests without credentials pass through unauthenticated.
func Auth(sessions *SessionStore, adminKeyHash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key, ok := BearerToken(r); ok {
				if !VerifyAPIKey(adminKeyHash, key) {
					slog.Warn("auth_denied", "path", r.URL.Path, "reason", "invalid api key")
					writeEnvelope(w, http.StatusUnauthorized, inline.Fail("invalid API key"))
					return
				}
				ctx := context.WithValue(r.Context(), principalContextKey, Principal{Actor: APIActor, Bearer: true})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if token, ok := SessionToken(r); ok {
				if sess, ok := sessions.Get(token); ok {
					r = r.WithContext(ContextWithSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession returns middleware that redirects requests without a
// browser session to the login page.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetSessionFromContext(r.Context()); !ok {
			target := "/login"
			if r.Method == http.MethodGet {
				target += "?next=" + url.QueryEscape(r.URL.RequestURI())
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// VerifyAPIKey reports whether key matches the bcrypt hash.
func VerifyAPIKey(hash []byte, key string) bool {
	if len(hash) == 0 || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(key)) == nil
}

// GetSessionFromContext extracts the session from the request context.
func GetSessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(Session)
	return sess, ok
}

// PrincipalFromContext extracts the authenticated caller.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(Principal)
	return p, ok
}

// ContextWithSession returns a context carrying sess and its principal.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, sess)
	return context.WithValue(ctx, principalContextKey, Principal{Actor: sess.Actor, SessionID: sess.ID})
}

func sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   SecureCookies,
		SameSite: http.SameSiteStrictMode,
	}
}

// SetSessionCookie hands token to the browser for SessionTTL.
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, sessionCookie(token, int(SessionTTL.Seconds())))
}

// ClearSessionCookie tells the browser to drop its session cookie.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie("", -1))
}

// SessionToken returns the session cookie value of r.
func SessionToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func writeEnvelope(w http.ResponseWriter, status int, env inline.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

// generateToken returns 32 random bytes, hex encoded.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
