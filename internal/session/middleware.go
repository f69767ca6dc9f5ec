package session

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/flowsight/flowsight-bfa/internal/domain"

	"go.uber.org/zap"
)

// CookieName is the cookie that carries the bearer token in the browser.
const CookieName = "auth_token"

// TokenFromRequest reads the bearer token from the Authorization header,
// falling back to the auth cookie. The second result reports the cookie case.
func TokenFromRequest(r *http.Request) (token string, fromCookie bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1]), false
		}
		return "", false
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value, true
	}
	return "", false
}

// Middleware resolves the request's session and stores it in the context.
// It never rejects; a cookie whose token was discarded is cleared.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, fromCookie := TokenFromRequest(r)
		s := m.Resolve(r.Context(), token)

		if fromCookie && token != "" && !s.Authenticated() {
			m.ClearCookie(w)
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// RequireAuth answers 401 for requests without an authenticated session.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			m.logger.Warn("auth: no authenticated session",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "ログインが必要です"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetCookie stores the session's token in the auth cookie until the
// session expires.
func (m *Manager) SetCookie(w http.ResponseWriter, s *domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Token(),
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   m.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the auth cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
