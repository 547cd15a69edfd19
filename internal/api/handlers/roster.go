// roster.go — read-only JSON API ростера.
// GET /api/v1/roster — снимок локальной коллекции
// GET /api/v1/roster/{id} — одна запись
// Изменения выполняются только через веб-консоль и CLI.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/staffroster/internal/api/errors"
	"github.com/bigkaa/staffroster/internal/domain/model"
)

// RosterReader — источник снимков ростера.
type RosterReader interface {
	Records() []model.UserRecord
	Record(id string) (model.UserRecord, bool)
}

// RosterHandler — обработчик JSON API ростера.
type RosterHandler struct {
	roster RosterReader
}

// NewRosterHandler создаёт обработчик.
func NewRosterHandler(roster RosterReader) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// rosterListResponse — ответ GET /api/v1/roster.
type rosterListResponse struct {
	Items []model.UserRecord `json:"items"`
	Total int                `json:"total"`
}

// List — GET /api/v1/roster.
func (h *RosterHandler) List(w http.ResponseWriter, _ *http.Request) {
	items := h.roster.Records()
	writeJSON(w, http.StatusOK, rosterListResponse{Items: items, Total: len(items)})
}

// Get — GET /api/v1/roster/{id}.
func (h *RosterHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.roster.Record(id)
	if !ok {
		apierrors.NotFound(w, "Запись "+id+" не найдена")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
