package daemon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"volsignal/internal/alert"
	"volsignal/internal/config"
	"volsignal/internal/engine"
)

// Daemon drives the evaluation window: a per-minute tick that fires each
// configured poke slot exactly once, plus an end-of-window health check.
type Daemon struct {
	cfg     *config.Config
	engine  *engine.Engine
	tracker *alert.Tracker
	loc     *time.Location
	cron    *cron.Cron
	now     func() time.Time

	mu    sync.Mutex
	fired map[string]bool
}

func New(cfg *config.Config, eng *engine.Engine, tracker *alert.Tracker, loc *time.Location) *Daemon {
	return &Daemon{
		cfg:     cfg,
		engine:  eng,
		tracker: tracker,
		loc:     loc,
		cron:    cron.New(cron.WithLocation(loc)),
		now:     time.Now,
		fired:   make(map[string]bool),
	}
}

// Start registers the cron entries and begins scheduling.
func (d *Daemon) Start(ctx context.Context) error {
	// One tick per minute on weekdays; the tick itself decides whether a
	// poke slot is due.
	if _, err := d.cron.AddFunc("* * * * 1-5", func() { d.tick(ctx) }); err != nil {
		return fmt.Errorf("register tick: %w", err)
	}

	_, end := d.cfg.WindowClocks()
	healthSpec := fmt.Sprintf("%d %d * * 1-5", (end.Minute+5)%60, end.Hour+(end.Minute+5)/60)
	if _, err := d.cron.AddFunc(healthSpec, func() { d.endOfWindow(ctx) }); err != nil {
		return fmt.Errorf("register end-of-window check: %w", err)
	}

	d.cron.Start()
	log.Info().
		Str("window", d.cfg.Schedule.WindowStart+"-"+d.cfg.Schedule.WindowEnd).
		Ints("poke_minutes", d.cfg.Schedule.PokeMinutes).
		Msg("daemon started")
	return nil
}

// Stop halts scheduling and waits for a running cycle to finish.
func (d *Daemon) Stop() {
	<-d.cron.Stop().Done()
	log.Info().Msg("daemon stopped")
}

func (d *Daemon) tick(ctx context.Context) {
	now := d.now().In(d.loc)
	poke := PokeDue(d.cfg, now)
	if poke < 0 {
		return
	}

	key := slotKey(now)
	d.mu.Lock()
	if d.fired[key] {
		d.mu.Unlock()
		return
	}
	d.fired[key] = true
	d.mu.Unlock()

	d.tracker.Poke()
	if _, err := d.engine.RunCycle(ctx, poke); err != nil {
		log.Error().Err(err).Int("poke", poke).Msg("poke cycle failed")
	}
}

func (d *Daemon) endOfWindow(ctx context.Context) {
	d.tracker.CheckEndOfWindow(ctx)
	d.tracker.CheckPokeHealth(ctx)

	// Keys from past days never fire again.
	today := d.now().In(d.loc).Format("2006-01-02")
	d.mu.Lock()
	for k := range d.fired {
		if k[:10] != today {
			delete(d.fired, k)
		}
	}
	d.mu.Unlock()
}
