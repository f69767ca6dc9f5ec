package handler

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/flowsight/flowsight-bfa/internal/session"

	"go.uber.org/zap"
)

// proxiedHeader marks requests this server forwarded. Seeing it on an
// incoming request means the backend URL leads back here.
const proxiedHeader = "X-Flowsight-Proxied"

// newBackendProxy forwards /api/v1/* to the backend unchanged, replacing
// the browser's cookies with the session's bearer token.
func newBackendProxy(target *url.URL, logger *zap.Logger) http.Handler {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Set(proxiedHeader, "1")
			if token, ok := session.BearerToken(pr.In.Context()); ok {
				pr.Out.Header.Set("Authorization", "Bearer "+token)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("backend proxy error",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			writeError(w, http.StatusBadGateway, "backend unavailable")
		},
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(proxiedHeader) != "" {
			logger.Error("backend proxy loop", zap.String("backend", target.String()))
			writeError(w, http.StatusLoopDetected, "backend URL points at this server")
			return
		}
		proxy.ServeHTTP(w, r)
	})
}
