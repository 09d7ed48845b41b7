// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kraklabs/repolens/internal/errors"
	"github.com/kraklabs/repolens/pkg/orchestrator"
)

type submitParseBody struct {
	RepoName  string `json:"repo_name"`
	Branch    string `json:"branch"`
	Path      string `json:"path,omitempty"`
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email,omitempty"`
}

func (s *Server) handleSubmitParse(w http.ResponseWriter, r *http.Request) {
	var body submitParseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, errors.NewInvalidInput("malformed request body", err.Error()))
		return
	}

	res, err := s.orch.SubmitParse(r.Context(), orchestrator.ParseRequest{
		RepoName:  body.RepoName,
		Branch:    body.Branch,
		Path:      body.Path,
		UserID:    body.UserID,
		UserEmail: body.UserEmail,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) handleParseStatus(w http.ResponseWriter, r *http.Request) {
	res, err := s.orch.ParseStatus(r.Context(), r.PathValue("projectID"), r.URL.Query().Get("user_id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStructure(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	text, err := s.orch.ResolveStructure(r.Context(), r.PathValue("projectID"), q.Get("user_id"), q.Get("path"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"structure": text})
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseLine(q.Get("start"))
	if err != nil {
		s.writeError(w, r, errors.NewInvalidInput("start must be a non-negative integer", err.Error()))
		return
	}
	end, err := parseLine(q.Get("end"))
	if err != nil {
		s.writeError(w, r, errors.NewInvalidInput("end must be a non-negative integer", err.Error()))
		return
	}

	text, err := s.orch.ExtractContent(r.Context(),
		r.PathValue("projectID"), q.Get("user_id"), q.Get("path"), start, end, q.Get("ref"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"content": text})
}

func (s *Server) handleBranches(w http.ResponseWriter, r *http.Request) {
	repoName := r.PathValue("owner") + "/" + r.PathValue("repo")
	names, err := s.branches.Branches(r.Context(), repoName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"branches": names})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseLine(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		if err == nil {
			err = strconv.ErrRange
		}
		return 0, err
	}
	return n, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("server.response.encode_failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	svc := errors.AsService(err)
	status := svc.HTTPStatus()
	if status >= 500 {
		s.logger.Error("server.request.failed", "method", r.Method, "path", r.URL.Path, "err", err)
	} else {
		s.logger.Warn("server.request.rejected", "method", r.Method, "path", r.URL.Path, "kind", svc.Kind.String())
	}
	s.writeJSON(w, status, svc.ToJSON())
}
