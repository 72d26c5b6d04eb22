package engine

import (
	"context"
	"fmt"
	"time"

	"volsignal/internal/config"
	"volsignal/internal/journal"
	"volsignal/pkg/model"
)

// ApplyGates decides whether a signaled trade actually goes out. The
// gates run in a fixed order: the signal itself, the Friday block, the
// VIX level gate, then one-trade-per-day suppression. The returned
// marker is journaled so the validator can score signaled-but-blocked
// days against the no-trade threshold.
func ApplyGates(ctx context.Context, cfg config.GatesConfig, store journal.Store, sig model.Signal, now time.Time, vix float64) (string, error) {
	if !sig.ShouldTrade {
		return model.ExecutedNoSkip, nil
	}

	if cfg.BlockFriday && now.Weekday() == time.Friday {
		return model.ExecutedNoFriday, nil
	}

	if cfg.VIXThreshold > 0 && vix >= cfg.VIXThreshold {
		return model.ExecutedNoVIXGate, nil
	}

	done, err := store.ExecutedToday(ctx, now.Format("2006-01-02"))
	if err != nil {
		return "", fmt.Errorf("checking duplicate gate: %w", err)
	}
	if done {
		return model.ExecutedNoDuplicate, nil
	}

	return model.ExecutedYes, nil
}
