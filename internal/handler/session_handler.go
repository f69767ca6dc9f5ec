package handler

import (
	"encoding/json"
	"net/http"

	"github.com/flowsight/flowsight-bfa/internal/service"
	"github.com/flowsight/flowsight-bfa/internal/session"

	"go.uber.org/zap"
)

type loginRequest struct {
	Token string `json:"token"`
}

// authCallbackHandler handles GET /auth/callback?token=...
func authCallbackHandler(sessions *session.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /auth/callback")
		defer span.End()

		token := r.URL.Query().Get("token")
		if token == "" {
			http.Redirect(w, r, "/login?error=no_token", http.StatusFound)
			return
		}

		s, err := sessions.Login(ctx, token)
		if err != nil {
			logger.Warn("auth callback: login failed", zap.Error(err))
			sessions.ClearCookie(w)
			http.Redirect(w, r, "/login?error=auth_failed", http.StatusFound)
			return
		}

		sessions.SetCookie(w, s)
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// loginHandler handles POST /v1/session.
func loginHandler(sessions *session.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/session")
		defer span.End()

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			writeError(w, http.StatusBadRequest, "token is required")
			return
		}

		s, err := sessions.Login(ctx, req.Token)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		sessions.SetCookie(w, s)
		writeJSON(w, http.StatusOK, s)
	}
}

// getSessionHandler handles GET /v1/session.
func getSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, session.FromContext(r.Context()))
	}
}

// logoutHandler handles DELETE /v1/session: the session is torn down and
// the browser's cashflow view forgotten.
func logoutHandler(sessions *session.Manager, cashflowSvc *service.CashflowService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := session.FromContext(r.Context())
		if cashflowSvc != nil && s.Authenticated() {
			if id, ok := existingViewID(r); ok {
				cashflowSvc.Forget(viewKey(id, s))
			}
		}
		sessions.Logout(s.Token())
		sessions.ClearCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}
