package main

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// GET /api/players/{name}/stats
func (a *recordsAPI) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing player name")
		return
	}
	st, err := a.store.PlayerStats(r.Context(), name)
	if err != nil {
		a.log.Error("player stats", zap.String("player", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load stats")
		return
	}
	writeJSON(w, st)
}

// GET /api/players/{name}/matches?limit=N
func (a *recordsAPI) handlePlayerMatches(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	list, err := a.store.ListPlayerMatches(r.Context(), name, limit)
	if err != nil {
		a.log.Error("list matches", zap.String("player", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list matches")
		return
	}
	if list == nil {
		writeJSON(w, []any{})
		return
	}
	writeJSON(w, list)
}
