package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/flowsign/workflow-auth/auth"
	"github.com/flowsign/workflow-auth/provider"
)

const contentTypeJSON = "application/json; charset=utf-8"

// JWTLoginHandler establishes (or refreshes) a JWT-grant session. Answers
// 200 {name,email}, StatusConsentRequired with the consent URL when the user
// has not granted the scopes yet, or 500 for everything else.
func (s *Server) JWTLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.loadSession(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		result, err := s.binder.JWT().Login(r.Context(), &sess)
		if err != nil {
			if consentErr, ok := auth.AsConsentRequired(err); ok {
				// Recoverable: the caller must visit the consent URL, the
				// session stays as it was and is not marked logged in.
				log.Info().Str("consent_url", consentErr.URL).Msg("consent required")
				w.WriteHeader(StatusConsentRequired)
				_, _ = w.Write([]byte(consentErr.URL))
				return
			}
			s.writeError(w, r, err)
			return
		}

		if err := s.saveSession(r, sess); err != nil {
			s.writeError(w, r, err)
			return
		}

		s.metrics.Logins.WithLabelValues("jwt").Inc()
		writeJSON(w, result)
	}
}

// PassportLoginHandler begins the redirect-based login: resets the session,
// marks it ACG, and sends the browser to the provider's hosted login page.
func (s *Server) PassportLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.loadSession(w, r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		loginURL := s.binder.ACG().BeginRedirect(&sess)
		if err := s.saveSession(r, sess); err != nil {
			s.writeError(w, r, err)
			return
		}

		http.Redirect(w, r, loginURL, http.StatusFound)
	}
}

// PassportCallbackHandler is the terminal stage of the redirect flow: the
// provider sends the browser back with an authorization code, which is
// exchanged and bound to the session.
func (s *Server) PassportCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errParam := r.FormValue("error"); errParam != "" {
			log.Warn().Str("error", errParam).Str("description", r.FormValue("error_description")).Msg("provider rejected authorization")
			http.Error(w, "authorization failed", http.StatusBadRequest)
			return
		}

		code := r.FormValue("code")
		state := r.FormValue("state")
		if code == "" || state == "" {
			http.Error(w, "missing code or state parameter", http.StatusBadRequest)
			return
		}

		sess, ok := s.currentSession(r)
		if !ok {
			http.Error(w, "no login in progress", http.StatusBadRequest)
			return
		}

		result, err := s.binder.ACG().CompleteCallback(r.Context(), &sess, code, state)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		if err := s.saveSession(r, sess); err != nil {
			s.writeError(w, r, err)
			return
		}

		s.metrics.Logins.WithLabelValues("authorization_code").Inc()
		writeJSON(w, result)
	}
}

// LogoutHandler destroys the session for whichever strategy owns it.
// 200 with an empty body either way.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.currentSession(r)
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}

		s.binder.Select(&sess, r.URL.Path).Logout(&sess)
		s.destroySession(w, r, sess)
		w.WriteHeader(http.StatusOK)
	}
}

// LoginStatusHandler answers the advisory logged-in check with a bare
// boolean. Fail-closed: any missing or undecodable token reads as false.
func (s *Server) LoginStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loggedIn := false
		if sess, ok := s.currentSession(r); ok {
			loggedIn = s.binder.Select(&sess, r.URL.Path).IsLoggedIn(&sess)
		}
		writeJSON(w, loggedIn)
	}
}

// HealthHandler is a plain liveness probe.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	}
}

// writeError maps internal failures to a user-facing response without
// leaking provider internals beyond a status code and message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	logWarn(r, "request failed", err)
	switch {
	case errors.Is(err, provider.ErrAccountNotFound):
		http.Error(w, "account not found", http.StatusInternalServerError)
	case errors.Is(err, auth.ErrTokenExchangeFailed):
		http.Error(w, "authentication failed", http.StatusInternalServerError)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	_ = json.NewEncoder(w).Encode(v)
}
