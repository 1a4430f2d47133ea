package http

import (
	"net/http"
	"strings"

	"divvy/internal/services"
)

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var spec services.CreateGroupSpec
	if err := decodeJSON(r, &spec); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	created, err := s.groups.Create(r.Context(), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := s.groups.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeMessage(w, http.StatusBadRequest, "userId query parameter required")
		return
	}

	groups, err := s.groups.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}
