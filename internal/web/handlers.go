package web

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"volsignal/internal/daemon"
)

type healthResponse struct {
	Status        string   `json:"status"`
	Time          string   `json:"time"`
	SignaledToday bool     `json:"signaled_today"`
	LastSignal    string   `json:"last_signal,omitempty"`
	LastPoke      string   `json:"last_poke,omitempty"`
	FailureStreak int      `json:"api_failure_streak"`
	FailureSource string   `json:"api_failure_source,omitempty"`
	AlertsToday   []string `json:"alerts_sent_today"`
}

type triggerResponse struct {
	Status    string  `json:"status"`
	Decision  string  `json:"decision,omitempty"`
	Composite float64 `json:"composite,omitempty"`
	Executed  string  `json:"executed,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func (s *Server) health(c echo.Context) error {
	now := s.now().In(s.loc)
	st := s.tracker.Status()
	return c.JSON(http.StatusOK, healthResponse{
		Status:        "ok",
		Time:          now.Format(time.RFC3339),
		SignaledToday: st.LastSignalDate == now.Format("2006-01-02"),
		LastSignal:    st.LastSignalTime,
		LastPoke:      st.LastPokeTime,
		FailureStreak: st.ConsecutiveFailures,
		FailureSource: st.FailureSource,
		AlertsToday:   st.AlertsSentToday,
	})
}

// trigger runs one cycle on demand. Outside the evaluation window it
// reports outside_window without evaluating.
func (s *Server) trigger(c echo.Context) error {
	now := s.now().In(s.loc)
	if !daemon.InWindow(s.cfg, now) {
		return c.JSON(http.StatusOK, triggerResponse{Status: "outside_window"})
	}

	entry, err := s.engine.RunCycle(c.Request().Context(), now.Minute())
	if err != nil {
		log.Error().Err(err).Msg("manual trigger failed")
		return c.JSON(http.StatusInternalServerError, triggerResponse{
			Status: "error", Error: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, triggerResponse{
		Status:    "ok",
		Decision:  string(entry.Signal.Decision),
		Composite: entry.Composite.Score,
		Executed:  entry.TradeExecuted,
	})
}
