package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/flowsign/workflow-auth/auth"
	"github.com/flowsign/workflow-auth/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the authenticated session for downstream handlers
const ContextKeySession ContextKey = "session"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) APIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return []func(http.HandlerFunc) http.HandlerFunc{
		s.RecoverMiddleware,
		s.LoggingMiddleware,
		s.CorsMiddleware,
	}
}

// RequireToken is the single "require auth" middleware every protected route
// goes through, regardless of which grant type owns the session. A failed
// check destroys the session and answers 401 — never proceed on a stale
// token.
func (s *Server) RequireToken() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sess, ok := s.currentSession(r)
			if !ok {
				s.metrics.AuthRejections.Inc()
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			strategy := s.binder.Select(&sess, r.URL.Path)
			if !strategy.CheckToken(r.Context(), &sess) {
				log.Info().Err(auth.ErrInvalidSession).Str("path", r.URL.Path).Msg("access token expired or missing, returning 401")
				s.metrics.AuthRejections.Inc()
				s.destroySession(w, r, sess)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			// CheckToken may have refreshed the token; persist before any
			// downstream call depends on it.
			if err := s.saveSession(r, sess); err != nil {
				logWarn(r, "failed to persist refreshed session", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, sess)
			next(w, r.WithContext(ctx))
		}
	}
}

// sessionFromContext retrieves the session stashed by RequireToken.
func sessionFromContext(ctx context.Context) (sessions.Session, bool) {
	sess, ok := ctx.Value(ContextKeySession).(sessions.Session)
	return sess, ok
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.env == "DEV" {
			logRoute(r.Method, r.URL.Path)
		}
		next(w, r)
	}
}

func (s *Server) RecoverMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next(w, r)
	}
}

func (s *Server) CorsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		// No Origin header = same-origin request, no CORS headers needed
		if origin == "" {
			next(w, r)
			return
		}

		if s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == origin || allowed == "*" {
			return true
		}
	}
	return false
}

func logWarn(r *http.Request, msg string, err error) {
	log.Warn().Err(err).Str("path", r.URL.Path).Msg(msg)
}
