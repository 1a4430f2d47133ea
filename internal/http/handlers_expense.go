package http

import (
	"net/http"
	"strconv"
	"strings"

	"divvy/internal/services"
	"divvy/internal/store"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var spec services.CreateExpenseSpec
	if err := decodeJSON(r, &spec); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	created, err := s.expenses.Create(r.Context(), spec)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.balances.Invalidate(created.GroupID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.expenses.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	req := store.ListExpensesRequest{
		GroupID: strings.TrimSpace(r.URL.Query().Get("groupId")),
	}

	var err error
	if req.Limit, err = queryInt(r, "limit"); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if req.Offset, err = queryInt(r, "offset"); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid offset")
		return
	}

	list, err := s.expenses.List(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": list})
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var patch services.UpdateExpenseSpec
	if err := decodeJSON(r, &patch); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return
	}

	// A group patch moves the expense, so the old group's cached balance
	// goes stale too.
	if patch.GroupID != nil {
		if prev, err := s.expenses.Get(r.Context(), r.PathValue("id")); err == nil {
			s.balances.Invalidate(prev.GroupID)
		}
	}

	updated, err := s.expenses.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.balances.Invalidate(updated.GroupID)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	e, err := s.expenses.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.expenses.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.balances.Invalidate(e.GroupID)
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) handleRestoreExpense(w http.ResponseWriter, r *http.Request) {
	restored, err := s.expenses.Restore(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.balances.Invalidate(restored.GroupID)
	writeJSON(w, http.StatusOK, restored)
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}
