package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// failureThreshold is the consecutive-failure count from one source that
// triggers an alert.
const failureThreshold = 2

// staleAfter is how long the window can go without a poke before the
// scheduler is considered stale.
const staleAfter = 30 * time.Minute

// alertRetries is how many extra delivery attempts follow a failed post.
const alertRetries = 2

// Severity levels for outgoing alerts.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Status is the tracker state exposed on the health endpoint.
type Status struct {
	LastSignalDate      string   `json:"last_signal_date,omitempty"`
	LastSignalTime      string   `json:"last_signal_time,omitempty"`
	LastPokeTime        string   `json:"last_poke_time,omitempty"`
	ConsecutiveFailures int      `json:"consecutive_api_failures"`
	FailureSource       string   `json:"api_failure_source,omitempty"`
	AlertsSentToday     []string `json:"alerts_sent_today"`
}

// Tracker watches signal health across the day: missing signals, repeated
// API failures from one source, and a stalled poke scheduler. Created at
// process start; all state lives behind one mutex and the per-day alert
// dedupe resets when the date rolls over. Alerts go to a Slack-style
// webhook, each type at most once per day.
type Tracker struct {
	webhookURL string
	loc        *time.Location
	client     *http.Client
	now        func() time.Time
	backoff    time.Duration

	mu              sync.Mutex
	day             string
	lastSignalDate  string
	lastSignalTime  time.Time
	lastPokeTime    time.Time
	failures        int
	failureSource   string
	sentToday       map[string]bool
}

// NewTracker creates a tracker. An empty webhookURL logs alerts instead
// of delivering them.
func NewTracker(webhookURL string, loc *time.Location) *Tracker {
	return &Tracker{
		webhookURL: webhookURL,
		loc:        loc,
		client:     &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
		backoff:    time.Second,
		sentToday:  map[string]bool{},
	}
}

// rollDay clears the per-day dedupe set when the date changes. Callers
// must hold the mutex.
func (t *Tracker) rollDay(now time.Time) {
	today := now.In(t.loc).Format("2006-01-02")
	if t.day != today {
		t.day = today
		t.sentToday = map[string]bool{}
	}
}

// SignalSuccess records a completed cycle and clears the failure streak.
func (t *Tracker) SignalSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now().In(t.loc)
	t.rollDay(now)
	t.lastSignalDate = now.Format("2006-01-02")
	t.lastSignalTime = now
	t.failures = 0
	t.failureSource = ""
}

// APIFailure records a failed call from one source and alerts once the
// streak from that source reaches the threshold.
func (t *Tracker) APIFailure(ctx context.Context, source string) {
	t.mu.Lock()
	now := t.now().In(t.loc)
	t.rollDay(now)
	if t.failureSource == source {
		t.failures++
	} else {
		t.failureSource = source
		t.failures = 1
	}
	count := t.failures
	key := fmt.Sprintf("api_failure_%s_%s", source, t.day)
	shouldSend := count >= failureThreshold && !t.sentToday[key]
	if shouldSend {
		t.sentToday[key] = true
	}
	t.mu.Unlock()

	if shouldSend {
		t.send(ctx, fmt.Sprintf("%s API Down", source),
			fmt.Sprintf("%s has failed %d consecutive times. Signal quality may be degraded.", source, count),
			LevelCritical)
	}
}

// Poke records a scheduler tick.
func (t *Tracker) Poke() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now().In(t.loc)
	t.rollDay(now)
	t.lastPokeTime = now
}

// CheckEndOfWindow alerts if the window passed on a weekday with no
// signal generated.
func (t *Tracker) CheckEndOfWindow(ctx context.Context) {
	now := t.now().In(t.loc)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return
	}

	t.mu.Lock()
	t.rollDay(now)
	key := "no_signal_" + t.day
	shouldSend := t.lastSignalDate != t.day && !t.sentToday[key]
	if shouldSend {
		t.sentToday[key] = true
	}
	t.mu.Unlock()

	if shouldSend {
		t.send(ctx, "No Signal Generated Today",
			"The trading window has ended and no signal was generated. Check service logs for errors.",
			LevelCritical)
	}
}

// CheckPokeHealth alerts if no poke has fired recently. Call only while
// inside the trading window.
func (t *Tracker) CheckPokeHealth(ctx context.Context) {
	now := t.now().In(t.loc)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return
	}

	t.mu.Lock()
	t.rollDay(now)
	key := "poke_stale_" + t.day
	stale := t.lastPokeTime.IsZero() || now.Sub(t.lastPokeTime) > staleAfter
	shouldSend := stale && !t.sentToday[key]
	if shouldSend {
		t.sentToday[key] = true
	}
	t.mu.Unlock()

	if shouldSend {
		t.send(ctx, "Poke Scheduler Stale",
			"No poke has fired in the last 30 minutes during the trading window.",
			LevelWarning)
	}
}

// Status returns the current state for the health endpoint.
func (t *Tracker) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{
		LastSignalDate:      t.lastSignalDate,
		ConsecutiveFailures: t.failures,
		FailureSource:       t.failureSource,
		AlertsSentToday:     make([]string, 0, len(t.sentToday)),
	}
	if !t.lastSignalTime.IsZero() {
		s.LastSignalTime = t.lastSignalTime.Format(time.RFC3339)
	}
	if !t.lastPokeTime.IsZero() {
		s.LastPokeTime = t.lastPokeTime.Format(time.RFC3339)
	}
	for k := range t.sentToday {
		s.AlertsSentToday = append(s.AlertsSentToday, k)
	}
	return s
}

var levelIcons = map[string]string{
	LevelInfo:     "information_source",
	LevelWarning:  "warning",
	LevelCritical: "rotating_light",
}

// send delivers one alert with exponential backoff across a bounded
// number of attempts.
func (t *Tracker) send(ctx context.Context, title, message, level string) {
	if t.webhookURL == "" {
		log.Warn().Str("level", level).Str("title", title).Msg(message)
		return
	}

	stamp := t.now().In(t.loc).Format("2006-01-02 03:04:05 PM MST")
	body, _ := json.Marshal(map[string]string{
		"text": fmt.Sprintf(":%s: *SPX Vol Signal  %s*\n%s\n_%s_", levelIcons[level], title, message, stamp),
	})

	var lastErr error
	for i := 0; i <= alertRetries; i++ {
		if err := t.post(ctx, body); err != nil {
			lastErr = err
			wait := time.Duration(1<<uint(i)) * t.backoff
			log.Warn().Err(err).Str("title", title).Dur("backoff", wait).Msg("alert delivery failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
				continue
			}
		}
		log.Info().Str("title", title).Msg("alert sent")
		return
	}
	log.Error().Err(lastErr).Str("title", title).Int("attempts", alertRetries+1).Msg("alert delivery abandoned")
}

func (t *Tracker) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", t.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
