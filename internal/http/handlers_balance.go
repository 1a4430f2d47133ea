package http

import (
	"net/http"
	"strings"
)

func (s *Server) handleGroupBalance(w http.ResponseWriter, r *http.Request) {
	groupID := strings.TrimSpace(r.URL.Query().Get("group_id"))
	if groupID == "" {
		writeMessage(w, http.StatusBadRequest, "group_id query parameter required")
		return
	}

	balance, err := s.balances.GroupBalance(r.Context(), groupID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handleUserBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.balances.UserBalance(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}
