package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/flowsign/workflow-auth/workflows"
)

var errInvalidJSON = errors.New("request body is not valid JSON")

// callContext builds the forwarding context from the session RequireToken
// stashed. The bool is false only if a route was wired without RequireToken.
func (s *Server) callContext(r *http.Request) (workflows.CallContext, bool) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		return workflows.CallContext{}, false
	}
	return workflows.CallContext{
		AccessToken: sess.Token.AccessToken,
		BasePath:    sess.Token.BasePath,
		AccountID:   sess.Token.AccountID,
	}, true
}

func (s *Server) WorkflowListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cc, ok := s.callContext(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.forward(w, r)(s.workflows.List(r.Context(), cc))
	}
}

func (s *Server) WorkflowCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cc, ok := s.callContext(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, err := readJSONBody(r)
		if err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		s.forward(w, r)(s.workflows.Create(r.Context(), cc, body))
	}
}

func (s *Server) WorkflowTriggerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cc, ok := s.callContext(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		body, err := readJSONBody(r)
		if err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		s.forward(w, r)(s.workflows.Trigger(r.Context(), cc, r.PathValue("id"), body))
	}
}

func (s *Server) WorkflowPublishHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cc, ok := s.callContext(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.forward(w, r)(s.workflows.Publish(r.Context(), cc, r.PathValue("id")))
	}
}

func (s *Server) WorkflowPauseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cc, ok := s.callContext(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.forward(w, r)(s.workflows.Pause(r.Context(), cc, r.PathValue("id")))
	}
}

func (s *Server) WorkflowResumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cc, ok := s.callContext(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.forward(w, r)(s.workflows.Resume(r.Context(), cc, r.PathValue("id")))
	}
}

func (s *Server) InstanceCancelHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cc, ok := s.callContext(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		s.forward(w, r)(s.workflows.Cancel(r.Context(), cc, r.PathValue("id")))
	}
}

// forward writes the upstream JSON result straight through, or a 502 if the
// upstream call failed.
func (s *Server) forward(w http.ResponseWriter, r *http.Request) func(json.RawMessage, error) {
	return func(result json.RawMessage, err error) {
		if err != nil {
			logWarn(r, "workflow API call failed", err)
			http.Error(w, "upstream workflow call failed", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", contentTypeJSON)
		_, _ = w.Write(result)
	}
}

func readJSONBody(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, errInvalidJSON
	}
	return body, nil
}
