package daemon

import (
	"time"

	"volsignal/internal/config"
)

// InWindow reports whether now falls inside the evaluation window
// [start, end] on a weekday, in the market time zone.
func InWindow(cfg *config.Config, now time.Time) bool {
	wd := now.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	start, end := cfg.WindowClocks()
	m := now.Hour()*60 + now.Minute()
	return m >= start.Minutes() && m <= end.Minutes()
}

// PokeDue returns the poke minute slot due at now, or -1 when the
// current minute is not a poke slot inside the window.
func PokeDue(cfg *config.Config, now time.Time) int {
	if !InWindow(cfg, now) {
		return -1
	}
	for _, m := range cfg.Schedule.PokeMinutes {
		if now.Minute() == m {
			return m
		}
	}
	return -1
}

// slotKey identifies one poke slot on one day, for idempotent firing.
func slotKey(now time.Time) string {
	return now.Format("2006-01-02 15:04")
}
