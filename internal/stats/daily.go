package stats

// This file contains helpers around daily stats. It complements stats.go.

// ResetDaily clears the in-memory daily fastest-win map.
// Intended for tests and dev convenience.
func ResetDaily() {
	statsMu.Lock()
	defer statsMu.Unlock()
	for k := range dailyBest {
		delete(dailyBest, k)
	}
}

// Reset clears every tally. Intended for tests.
func Reset() {
	statsMu.Lock()
	for k := range userStats {
		delete(userStats, k)
	}
	statsMu.Unlock()
	ResetDaily()
}
