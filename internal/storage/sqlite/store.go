// Package sqlite persists finished match records in SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/pefman/quantum-battleships/internal/models"
	"github.com/pefman/quantum-battleships/internal/storage/sqlite/migrations"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidRecord = errors.New("invalid match record")
)

// Store persists match records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the records database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

// PutMatch inserts one finished match.
func (s *Store) PutMatch(ctx context.Context, rec models.MatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	rec.ID = strings.TrimSpace(rec.ID)
	rec.Player1 = strings.TrimSpace(rec.Player1)
	rec.Player2 = strings.TrimSpace(rec.Player2)
	rec.Winner = strings.TrimSpace(rec.Winner)
	switch {
	case rec.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidRecord)
	case rec.Player1 == "" || rec.Player2 == "":
		return fmt.Errorf("%w: both player names are required", ErrInvalidRecord)
	case rec.Rounds < 0:
		return fmt.Errorf("%w: rounds must not be negative", ErrInvalidRecord)
	case rec.Draw && rec.Winner != "":
		return fmt.Errorf("%w: a draw has no winner", ErrInvalidRecord)
	case !rec.Draw && rec.Winner != rec.Player1 && rec.Winner != rec.Player2:
		return fmt.Errorf("%w: winner %q did not play", ErrInvalidRecord, rec.Winner)
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now().UTC()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.EndedAt
	}
	summaries := rec.Summaries
	if summaries == nil {
		summaries = []models.RoundSummary{}
	}
	summariesJSON, err := json.Marshal(summaries)
	if err != nil {
		return fmt.Errorf("encode summaries: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO matches (
		   id,
		   player1,
		   player2,
		   winner,
		   draw,
		   rounds,
		   bot,
		   started_at,
		   ended_at,
		   summaries,
		   snapshot
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Player1,
		rec.Player2,
		rec.Winner,
		boolInt(rec.Draw),
		rec.Rounds,
		boolInt(rec.Bot),
		toMillis(rec.StartedAt),
		toMillis(rec.EndedAt),
		string(summariesJSON),
		string(rec.Snapshot),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// GetMatch fetches one match by id.
func (s *Store) GetMatch(ctx context.Context, id string) (models.MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.MatchRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return models.MatchRecord{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, strings.TrimSpace(id))
	rec, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.MatchRecord{}, ErrNotFound
		}
		return models.MatchRecord{}, fmt.Errorf("get match: %w", err)
	}
	return rec, nil
}

// ListPlayerMatches returns up to limit matches involving name, newest first.
func (s *Store) ListPlayerMatches(ctx context.Context, name string, limit int) ([]models.MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE player1 = ? OR player2 = ?
		 ORDER BY ended_at DESC, id
		 LIMIT ?`,
		name, name, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []models.MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return out, nil
}

// PlayerStats aggregates every stored match of name.
func (s *Store) PlayerStats(ctx context.Context, name string) (models.PlayerStats, error) {
	if err := ctx.Err(); err != nil {
		return models.PlayerStats{}, err
	}
	if s == nil || s.sqlDB == nil {
		return models.PlayerStats{}, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	var (
		played, wins, draws int
		fastest             sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT
		   COUNT(*),
		   COALESCE(SUM(CASE WHEN draw = 0 AND winner = ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(draw), 0),
		   MIN(CASE WHEN draw = 0 AND winner = ? THEN rounds END)
		 FROM matches
		 WHERE player1 = ? OR player2 = ?`,
		name, name, name, name,
	).Scan(&played, &wins, &draws, &fastest)
	if err != nil {
		return models.PlayerStats{}, fmt.Errorf("player stats: %w", err)
	}
	st := models.PlayerStats{
		Name:   name,
		Played: played,
		Wins:   wins,
		Draws:  draws,
		Losses: played - wins - draws,
	}
	if fastest.Valid {
		st.FastestWin = int(fastest.Int64)
	}
	return st, nil
}

const matchColumns = `id, player1, player2, winner, draw, rounds, bot, started_at, ended_at, summaries, snapshot`

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(row scanner) (models.MatchRecord, error) {
	var (
		rec                models.MatchRecord
		draw, bot          int
		started, ended     int64
		summaries, snapRaw string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Player1,
		&rec.Player2,
		&rec.Winner,
		&draw,
		&rec.Rounds,
		&bot,
		&started,
		&ended,
		&summaries,
		&snapRaw,
	); err != nil {
		return models.MatchRecord{}, err
	}
	rec.Draw = draw != 0
	rec.Bot = bot != 0
	rec.StartedAt = fromMillis(started)
	rec.EndedAt = fromMillis(ended)
	if summaries != "" {
		if err := json.Unmarshal([]byte(summaries), &rec.Summaries); err != nil {
			return models.MatchRecord{}, fmt.Errorf("decode summaries: %w", err)
		}
	}
	if snapRaw != "" {
		rec.Snapshot = json.RawMessage(snapRaw)
	}
	return rec, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
