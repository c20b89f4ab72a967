package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/pefman/quantum-battleships/internal/models"
)

// Per-player tallies live in memory; the records API holds the durable copy.
var (
	statsMu   sync.Mutex
	userStats = make(map[string]*models.PlayerStats)
	// Fastest win of each day, keyed by date string YYYY-MM-DD UTC
	dailyBest = make(map[string]FastestWin)
)

// FastestWin is the quickest victory recorded on one day.
type FastestWin struct {
	Name     string    `json:"name"`
	Opponent string    `json:"opponent"`
	Rounds   int       `json:"rounds"`
	At       time.Time `json:"at"`
}

// RecordMatch updates both players' tallies. winner is empty on a draw.
func RecordMatch(player1, player2, winner string, rounds int) {
	statsMu.Lock()
	defer statsMu.Unlock()
	for _, name := range []string{player1, player2} {
		st := userStats[name]
		if st == nil {
			st = &models.PlayerStats{Name: name}
			userStats[name] = st
		}
		st.Played++
		switch {
		case winner == "":
			st.Draws++
		case winner == name:
			st.Wins++
			if st.FastestWin == 0 || rounds < st.FastestWin {
				st.FastestWin = rounds
			}
		default:
			st.Losses++
		}
	}
	if winner == "" {
		return
	}
	opponent := player1
	if winner == player1 {
		opponent = player2
	}
	now := time.Now().UTC()
	dateKey := now.Format("2006-01-02")
	if cur, ok := dailyBest[dateKey]; ok && cur.Rounds <= rounds {
		return
	}
	dailyBest[dateKey] = FastestWin{Name: winner, Opponent: opponent, Rounds: rounds, At: now}
}

func GetUserStats(username string) models.PlayerStats {
	statsMu.Lock()
	defer statsMu.Unlock()
	if s, ok := userStats[username]; ok {
		return *s
	}
	return models.PlayerStats{Name: username}
}

// Leaderboard returns up to limit players ordered by wins, then fewest
// losses, then name. limit <= 0 returns everyone.
func Leaderboard(limit int) []models.PlayerStats {
	statsMu.Lock()
	out := make([]models.PlayerStats, 0, len(userStats))
	for _, s := range userStats {
		out = append(out, *s)
	}
	statsMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		if out[i].Losses != out[j].Losses {
			return out[i].Losses < out[j].Losses
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FastestWinToday returns today's quickest win, if any.
func FastestWinToday() (FastestWin, bool) {
	dateKey := time.Now().UTC().Format("2006-01-02")
	statsMu.Lock()
	defer statsMu.Unlock()
	fw, ok := dailyBest[dateKey]
	return fw, ok
}
