package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/workforce-hr/workforce/internal/observability"
	"github.com/workforce-hr/workforce/internal/platform/httpx"
	"github.com/workforce-hr/workforce/internal/shared"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// responseWriterWithCommit persists the session right before the status
// line goes out, so cookie headers still make it into the response.
type responseWriterWithCommit struct {
	http.ResponseWriter
	sess          *shared.Session
	manager       *shared.SessionManager
	logger        *slog.Logger
	ctx           context.Context
	req           *http.Request
	headerWritten bool
}

func (w *responseWriterWithCommit) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.headerWritten = true
		if err := w.manager.Commit(w.ctx, w.ResponseWriter, w.req, w.sess); err != nil {
			w.logger.Error("commit session", slog.Any("error", err))
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriterWithCommit) Write(data []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(data)
}

// SessionMiddleware loads the session into the request context and commits
// it with the response.
func SessionMiddleware(logger *slog.Logger, sessions *shared.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sess, err := sessions.Load(ctx, r)
			if err != nil {
				logger.Error("failed to load session", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			ctx = shared.ContextWithSession(ctx, sess)

			wrapped := &responseWriterWithCommit{
				ResponseWriter: w,
				sess:           sess,
				manager:        sessions,
				logger:         logger,
				ctx:            ctx,
				req:            r.WithContext(ctx),
			}
			next.ServeHTTP(wrapped, r.WithContext(ctx))
			if !wrapped.headerWritten {
				wrapped.WriteHeader(http.StatusOK)
			}
		})
	}
}

// CSRFMiddleware requires the session token in the X-CSRF-Token header on
// every unsafe method.
func CSRFMiddleware(logger *slog.Logger, csrf *shared.CSRFManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			sess := shared.SessionFromContext(r.Context())
			if sess == nil {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ErrSessionMissing.Error())
				return
			}
			if err := csrf.VerifyToken(sess, r.Header.Get(shared.CSRFHeader)); err != nil {
				logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MiddlewareStack installs the workforce middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !cfg.Config.IsProduction(),
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
	}
	// Preflight requests are answered before a session is loaded.
	if cfg.Config != nil && len(cfg.Config.CORSAllowedOrigins) > 0 {
		middlewares = append(middlewares, cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Config.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", shared.CSRFHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	middlewares = append(middlewares,
		SessionMiddleware(cfg.Logger, cfg.SessionManager),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		CSRFMiddleware(cfg.Logger, cfg.CSRFManager),
	)
	if cfg.Metrics != nil {
		middlewares = append(middlewares, cfg.Metrics.Middleware)
	}
	return middlewares
}
