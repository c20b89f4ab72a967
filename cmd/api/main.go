package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/config"
	"github.com/pefman/quantum-battleships/internal/logs"
	"github.com/pefman/quantum-battleships/internal/models"
	"github.com/pefman/quantum-battleships/internal/storage/sqlite"
)

const maxRecordBytes = 1 << 20

// recordsAPI serves stored match records.
type recordsAPI struct {
	store *sqlite.Store
	log   *zap.Logger
}

func main() {
	var cfg config.RecordsAPI
	if err := config.ParseEnv(&cfg); err != nil {
		panic(err)
	}
	log := logs.Init("api", cfg.Log)
	defer logs.Sync()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		logs.Fatal("open records store", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(&recordsAPI{store: store, log: log}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logs.Warn("shutdown", zap.Error(err))
		}
	}()

	logs.Info("match records API listening", zap.String("addr", httpSrv.Addr), zap.String("db", cfg.DBPath))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logs.Fatal("listen", zap.Error(err))
	}
}

func newRouter(a *recordsAPI) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/healthz", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/matches", a.handlePostMatch).Methods(http.MethodPost)
	r.HandleFunc("/api/matches/{id}", a.handleGetMatch).Methods(http.MethodGet)
	r.HandleFunc("/api/players/{name}/stats", a.handlePlayerStats).Methods(http.MethodGet)
	r.HandleFunc("/api/players/{name}/matches", a.handlePlayerMatches).Methods(http.MethodGet)
	return withCORS(r)
}

func (a *recordsAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// POST /api/matches
func (a *recordsAPI) handlePostMatch(w http.ResponseWriter, r *http.Request) {
	var rec models.MatchRecord
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRecordBytes)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	err := a.store.PutMatch(r.Context(), rec)
	switch {
	case errors.Is(err, sqlite.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, sqlite.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "match already recorded")
		return
	case err != nil:
		a.log.Error("store match", zap.String("match", rec.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not store match")
		return
	}
	a.log.Info("match stored", zap.String("match", rec.ID), zap.String("winner", rec.Winner), zap.Bool("draw", rec.Draw))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": rec.ID})
}

// GET /api/matches/{id}
func (a *recordsAPI) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	rec, err := a.store.GetMatch(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "match not found")
		return
	}
	if err != nil {
		a.log.Error("get match", zap.String("match", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load match")
		return
	}
	writeJSON(w, rec)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error":   http.StatusText(code),
		"message": msg,
		"status":  code,
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
