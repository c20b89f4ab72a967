package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pefman/quantum-battleships/internal/models"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func match(id, p1, p2, winner string, rounds int, ended time.Time) models.MatchRecord {
	return models.MatchRecord{
		ID:        id,
		Player1:   p1,
		Player2:   p2,
		Winner:    winner,
		Draw:      winner == "",
		Rounds:    rounds,
		StartedAt: ended.Add(-time.Minute),
		EndedAt:   ended,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "records.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		if err := store.Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
		_ = store.Close()
	}
}

func TestPutGetMatchRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	ended := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	in := match("m-1", "ada", "bob", "ada", 6, ended)
	in.Bot = true
	in.Summaries = []models.RoundSummary{
		{Round: 1, Targets: [2]int{0, 3}, Destroyed: [2][]int{{}, {}}},
		{Round: 6, Targets: [2]int{2, 4}, Destroyed: [2][]int{{1}, {0, 1, 2}}},
	}
	in.Snapshot = json.RawMessage(`{"round":6}`)

	if err := store.PutMatch(context.Background(), in); err != nil {
		t.Fatalf("put match: %v", err)
	}
	got, err := store.GetMatch(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if got.Player1 != "ada" || got.Player2 != "bob" || got.Winner != "ada" || got.Draw {
		t.Fatalf("players/outcome = %+v", got)
	}
	if got.Rounds != 6 || !got.Bot {
		t.Fatalf("rounds = %d bot = %v", got.Rounds, got.Bot)
	}
	if !got.EndedAt.Equal(ended) || !got.StartedAt.Equal(ended.Add(-time.Minute)) {
		t.Fatalf("times = %v .. %v", got.StartedAt, got.EndedAt)
	}
	if len(got.Summaries) != 2 || got.Summaries[1].Targets != [2]int{2, 4} || len(got.Summaries[1].Destroyed[1]) != 3 {
		t.Fatalf("summaries = %+v", got.Summaries)
	}
	if string(got.Snapshot) != `{"round":6}` {
		t.Fatalf("snapshot = %s", got.Snapshot)
	}
}

func TestPutMatchDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	rec := match("m-1", "ada", "bob", "", 4, time.Now())
	if err := store.PutMatch(context.Background(), rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.PutMatch(context.Background(), rec); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second put err = %v, want ErrAlreadyExists", err)
	}
}

func TestPutMatchValidation(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := time.Now()
	cases := map[string]models.MatchRecord{
		"missing id":      match("", "ada", "bob", "ada", 3, now),
		"missing player":  match("x", "ada", "", "ada", 3, now),
		"stranger winner": match("x", "ada", "bob", "eve", 3, now),
		"draw with winner": func() models.MatchRecord {
			r := match("x", "ada", "bob", "ada", 3, now)
			r.Draw = true
			return r
		}(),
	}
	for name, rec := range cases {
		if err := store.PutMatch(context.Background(), rec); !errors.Is(err, ErrInvalidRecord) {
			t.Errorf("%s: err = %v, want ErrInvalidRecord", name, err)
		}
	}
}

func TestGetMatchNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.GetMatch(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPlayerStatsAndListing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	base := time.Date(2026, time.April, 1, 9, 0, 0, 0, time.UTC)
	for i, rec := range []models.MatchRecord{
		match("m-1", "ada", "bob", "ada", 7, base),
		match("m-2", "bob", "ada", "ada", 4, base.Add(time.Hour)),
		match("m-3", "ada", "cyd", "cyd", 5, base.Add(2*time.Hour)),
		match("m-4", "cyd", "ada", "", 9, base.Add(3*time.Hour)),
		match("m-5", "bob", "cyd", "bob", 2, base.Add(4*time.Hour)),
	} {
		if err := store.PutMatch(context.Background(), rec); err != nil {
			t.Fatalf("put #%d: %v", i, err)
		}
	}

	st, err := store.PlayerStats(context.Background(), "ada")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := models.PlayerStats{Name: "ada", Played: 4, Wins: 2, Losses: 1, Draws: 1, FastestWin: 4}
	if st != want {
		t.Fatalf("stats = %+v, want %+v", st, want)
	}

	none, err := store.PlayerStats(context.Background(), "zed")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if none != (models.PlayerStats{Name: "zed"}) {
		t.Fatalf("stats for unknown player = %+v", none)
	}

	list, err := store.ListPlayerMatches(context.Background(), "ada", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "m-4" || list[1].ID != "m-3" {
		t.Fatalf("list = %+v", list)
	}
}
