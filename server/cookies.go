package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/flowsign/workflow-auth/sessions"
)

const sessionCookieName = "session_id"

// deriveCookieKey turns the configured session secret into a fixed-size HMAC
// key for cookie signing.
func deriveCookieKey(secret string) []byte {
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte("workflow-auth/session-cookie"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		panic("cookie key derivation failed: " + err.Error())
	}
	return key
}

// signCookieValue produces "<id>.<mac>" so a tampered session id is rejected
// before it ever reaches the store.
func (s *Server) signCookieValue(sessionID string) string {
	mac := hmac.New(sha256.New, s.cookieKey)
	mac.Write([]byte(sessionID))
	return sessionID + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (s *Server) verifyCookieValue(value string) (string, bool) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	want, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	mac := hmac.New(sha256.New, s.cookieKey)
	mac.Write([]byte(id))
	if !hmac.Equal(mac.Sum(nil), want) {
		return "", false
	}
	return id, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.signCookieValue(sessionID),
		Path:     "/",
		MaxAge:   int(s.config.MaxSessionAge / time.Second),
		HttpOnly: true,
		Secure:   s.env == "PROD", // Only secure in production
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// loadSession returns the session bound to the request cookie, minting a new
// record (and cookie) when there is none or it is invalid.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) (sessions.Session, error) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if id, ok := s.verifyCookieValue(cookie.Value); ok {
			sess, err := s.store.Get(r.Context(), id)
			if err == nil {
				return sess, nil
			}
			if !errors.Is(err, sessions.ErrNotFound) {
				return sessions.Session{}, err
			}
		}
	}

	sess := sessions.Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
	}
	s.setSessionCookie(w, sess.ID)
	return sess, nil
}

// currentSession is loadSession without the create path, for handlers where
// an absent session already means "not authenticated".
func (s *Server) currentSession(r *http.Request) (sessions.Session, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return sessions.Session{}, false
	}
	id, ok := s.verifyCookieValue(cookie.Value)
	if !ok {
		return sessions.Session{}, false
	}
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		return sessions.Session{}, false
	}
	return sess, true
}

func (s *Server) saveSession(r *http.Request, sess sessions.Session) error {
	return s.store.Upsert(r.Context(), sess.ID, sess)
}

// destroySession removes the record and the cookie. Fail-closed callers use
// this whenever a token check fails.
func (s *Server) destroySession(w http.ResponseWriter, r *http.Request, sess sessions.Session) {
	if err := s.store.Delete(r.Context(), sess.ID); err != nil {
		logWarn(r, "failed to delete session", err)
	}
	s.clearSessionCookie(w)
	s.metrics.SessionsDestroyed.Inc()
}
