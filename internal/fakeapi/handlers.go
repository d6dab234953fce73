package fakeapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

type validator interface {
	Validate() error
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := userParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	summary := aggregate.Summarize(s.txs.list(userID), s.assets.list(userID), s.liabilities.list(userID))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, summary)
}

func handleList[T any](s *Server, t *table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userParam(w, r)
		if !ok {
			return
		}
		s.mu.Lock()
		items := t.list(userID)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, items)
	}
}

func handleCreate[T validator](s *Server, t *table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			writeDetail(w, http.StatusBadRequest, "Failed to read body")
			return
		}
		var owner struct {
			UserID string `json:"user_id"`
		}
		var rec T
		if err := json.Unmarshal(raw, &owner); err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := json.Unmarshal(raw, &rec); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if owner.UserID == "" {
			writeDetail(w, http.StatusUnprocessableEntity, "user_id is required")
			return
		}
		if err := rec.Validate(); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		s.mu.Lock()
		created := t.insert(owner.UserID, s.newID(), rec)
		s.mu.Unlock()

		log.FromContext(r.Context()).Info("Record created",
			log.FieldKind, t.name, log.FieldUserID, owner.UserID, log.FieldCount, 1)
		writeJSON(w, http.StatusOK, created)
	}
}

// handleUpdate replaces the record named by {id}. When the route carries
// {userID} the record must belong to that user.
func handleUpdate[T validator](s *Server, t *table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := core.ID(chi.URLParam(r, "id"))
		var rec T
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := rec.Validate(); err != nil {
			writeDetail(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		s.mu.Lock()
		updated, ok := t.replace(id, chi.URLParam(r, "userID"), rec)
		empty := s.emptyUpdate
		s.mu.Unlock()

		if !ok {
			writeDetail(w, http.StatusNotFound, "Entity not found in "+t.name)
			return
		}
		if empty {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func handleDelete[T any](s *Server, t *table[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := core.ID(chi.URLParam(r, "id"))
		s.mu.Lock()
		ok := t.remove(id)
		s.mu.Unlock()
		if !ok {
			writeDetail(w, http.StatusNotFound, "Entity not found in "+t.name)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("Entity deleted successfully from %s", t.name),
		})
	}
}
