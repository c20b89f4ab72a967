package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pefman/quantum-battleships/internal/api"
	"github.com/pefman/quantum-battleships/internal/models"
	"github.com/pefman/quantum-battleships/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ts := httptest.NewServer(newRouter(&recordsAPI{store: store, log: zap.NewNop()}))
	t.Cleanup(func() {
		ts.Close()
		_ = store.Close()
	})
	return ts
}

func TestRecordsRoundTripThroughClient(t *testing.T) {
	ts := newTestServer(t)
	c := api.NewClient(ts.URL)
	ctx := context.Background()
	ended := time.Date(2026, time.May, 5, 10, 0, 0, 0, time.UTC)

	for _, rec := range []models.MatchRecord{
		{ID: "m-1", Player1: "ada", Player2: "bob", Winner: "ada", Rounds: 5, EndedAt: ended},
		{ID: "m-2", Player1: "bob", Player2: "ada", Draw: true, Rounds: 8, EndedAt: ended.Add(time.Hour)},
	} {
		if err := c.PostMatch(ctx, rec); err != nil {
			t.Fatalf("post %s: %v", rec.ID, err)
		}
	}
	if err := c.PostMatch(ctx, models.MatchRecord{ID: "m-1", Player1: "ada", Player2: "bob", Winner: "ada"}); !errors.Is(err, api.ErrConflict) {
		t.Fatalf("duplicate post err = %v, want ErrConflict", err)
	}

	got, err := c.GetMatch(ctx, "m-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Winner != "ada" || got.Rounds != 5 || !got.EndedAt.Equal(ended) {
		t.Fatalf("match = %+v", got)
	}
	if _, err := c.GetMatch(ctx, "nope"); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("missing match err = %v", err)
	}

	st, err := c.PlayerStats(ctx, "ada")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := models.PlayerStats{Name: "ada", Played: 2, Wins: 1, Draws: 1, FastestWin: 5}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}
}

func TestPostMatchRejectsBadRecords(t *testing.T) {
	ts := newTestServer(t)

	for name, body := range map[string]string{
		"not json":       `{`,
		"missing id":     `{"player1":"ada","player2":"bob","draw":true}`,
		"foreign winner": `{"id":"x","player1":"ada","player2":"bob","winner":"eve"}`,
	} {
		resp, err := http.Post(ts.URL+"/api/matches", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		var e map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&e)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest || e["status"] != float64(http.StatusBadRequest) {
			t.Fatalf("%s: status = %d body = %v", name, resp.StatusCode, e)
		}
	}
}

func TestPlayerMatchesAndHealth(t *testing.T) {
	ts := newTestServer(t)
	c := api.NewClient(ts.URL)
	for i, id := range []string{"a", "b", "c"} {
		rec := models.MatchRecord{ID: id, Player1: "ada", Player2: "bob", Winner: "bob", Rounds: 3,
			EndedAt: time.Date(2026, time.June, 1, i, 0, 0, 0, time.UTC)}
		if err := c.PostMatch(context.Background(), rec); err != nil {
			t.Fatalf("post: %v", err)
		}
	}

	resp, err := http.Get(ts.URL + "/api/players/ada/matches?limit=2")
	if err != nil {
		t.Fatal(err)
	}
	var list []models.MatchRecord
	_ = json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
		t.Fatalf("matches = %+v", list)
	}

	resp, err = http.Get(ts.URL + "/api/players/zed/matches")
	if err != nil {
		t.Fatal(err)
	}
	var empty []models.MatchRecord
	_ = json.NewDecoder(resp.Body).Decode(&empty)
	resp.Body.Close()
	if empty == nil || len(empty) != 0 {
		t.Fatalf("unknown player matches = %#v, want empty list", empty)
	}

	resp, err = http.Get(ts.URL + "/api/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/matches", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight = %d %v", resp.StatusCode, resp.Header)
	}
}
