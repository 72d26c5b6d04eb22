package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"volsignal/pkg/model"
)

// SQLiteStore persists the decision journal to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the journal database and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so the validator can read while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("journal opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id               TEXT PRIMARY KEY,
			timestamp        INTEGER NOT NULL,
			trade_date       TEXT NOT NULL,
			poke             INTEGER NOT NULL,
			spx              REAL,
			vix              REAL,
			vix1d            REAL,
			ivrv_score       INTEGER,
			realized_vol     REAL,
			implied_vol      REAL,
			ivrv_ratio       REAL,
			rv_change        REAL,
			term_structure   TEXT,
			trend_score      INTEGER,
			change_5d        REAL,
			intraday_range   REAL,
			news_score       INTEGER,
			news_raw_score   INTEGER,
			news_category    TEXT,
			news_reasoning   TEXT,
			news_key_risk    TEXT,
			news_direction   TEXT,
			contra_flags     TEXT,
			contra_override  TEXT,
			contra_adjust    REAL,
			composite        REAL,
			category         TEXT,
			signal           TEXT,
			should_trade     INTEGER,
			reason           TEXT,
			articles_raw     INTEGER,
			articles_unique  INTEGER,
			articles_sent    INTEGER,
			trade_executed   TEXT,
			webhook_success  INTEGER,
			exit_price       REAL,
			exit_source      TEXT,
			next_close       REAL,
			move_pct         REAL,
			outcome          TEXT,
			validated_at     INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_date ON cycles(trade_date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Append records one completed evaluation cycle
func (s *SQLiteStore) Append(ctx context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO cycles
		(id, timestamp, trade_date, poke, spx, vix, vix1d,
		 ivrv_score, realized_vol, implied_vol, ivrv_ratio, rv_change, term_structure,
		 trend_score, change_5d, intraday_range,
		 news_score, news_raw_score, news_category, news_reasoning, news_key_risk, news_direction,
		 contra_flags, contra_override, contra_adjust,
		 composite, category, signal, should_trade, reason,
		 articles_raw, articles_unique, articles_sent,
		 trade_executed, webhook_success)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Timestamp.Unix(), e.TradeDate, e.Poke, e.SPX, e.VIX, e.VIX1D,
		e.Volatility.Score, e.Volatility.RealizedVol, e.Volatility.ImpliedVol,
		e.Volatility.Ratio, e.Volatility.RVChange, e.Volatility.TermStructure,
		e.Trend.Score, e.Trend.Change5d, e.Trend.IntradayRange,
		e.NewsRisk.Score, e.NewsRisk.RawScore, e.NewsRisk.Category,
		truncate(e.NewsRisk.Reasoning, 500), e.NewsRisk.KeyRisk, e.NewsRisk.DirectionRisk,
		strings.Join(e.Contra.Flags, ","), string(e.Contra.OverrideDecision), e.Contra.ScoreAdjustment,
		e.Composite.Score, e.Composite.Category,
		string(e.Signal.Decision), boolToInt(e.Signal.ShouldTrade), e.Signal.Reason,
		e.ArticlesRaw, e.ArticlesUnique, e.ArticlesSent,
		e.TradeExecuted, boolToInt(e.WebhookSuccess),
	)
	if err != nil {
		return fmt.Errorf("append cycle: %w", err)
	}
	return nil
}

const selectColumns = `id, timestamp, trade_date, poke, spx, vix, vix1d,
	ivrv_score, realized_vol, implied_vol, ivrv_ratio, rv_change, term_structure,
	trend_score, change_5d, intraday_range,
	news_score, news_raw_score, news_category, news_reasoning, news_key_risk, news_direction,
	contra_flags, contra_override, contra_adjust,
	composite, category, signal, should_trade, reason,
	articles_raw, articles_unique, articles_sent,
	trade_executed, webhook_success,
	exit_price, exit_source, next_close, move_pct, outcome, validated_at`

// Pending returns entries that have no outcome yet, oldest first
func (s *SQLiteStore) Pending(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM cycles
		WHERE outcome IS NULL OR outcome = '' ORDER BY timestamp`)
}

// All returns every entry ordered by timestamp
func (s *SQLiteStore) All(ctx context.Context) ([]Entry, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM cycles ORDER BY timestamp`)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e           Entry
		ts          int64
		shouldTrade int
		webhookOK   int
		flags       string
		override    string
		exitPrice   sql.NullFloat64
		exitSource  sql.NullString
		nextClose   sql.NullFloat64
		movePct     sql.NullFloat64
		outcome     sql.NullString
		validatedAt sql.NullInt64
	)

	err := rows.Scan(
		&e.ID, &ts, &e.TradeDate, &e.Poke, &e.SPX, &e.VIX, &e.VIX1D,
		&e.Volatility.Score, &e.Volatility.RealizedVol, &e.Volatility.ImpliedVol,
		&e.Volatility.Ratio, &e.Volatility.RVChange, &e.Volatility.TermStructure,
		&e.Trend.Score, &e.Trend.Change5d, &e.Trend.IntradayRange,
		&e.NewsRisk.Score, &e.NewsRisk.RawScore, &e.NewsRisk.Category,
		&e.NewsRisk.Reasoning, &e.NewsRisk.KeyRisk, &e.NewsRisk.DirectionRisk,
		&flags, &override, &e.Contra.ScoreAdjustment,
		&e.Composite.Score, &e.Composite.Category,
		(*string)(&e.Signal.Decision), &shouldTrade, &e.Signal.Reason,
		&e.ArticlesRaw, &e.ArticlesUnique, &e.ArticlesSent,
		&e.TradeExecuted, &webhookOK,
		&exitPrice, &exitSource, &nextClose, &movePct, &outcome, &validatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("scan cycle: %w", err)
	}

	e.Timestamp = time.Unix(ts, 0).UTC()
	e.Signal.ShouldTrade = shouldTrade != 0
	e.WebhookSuccess = webhookOK != 0
	if flags != "" {
		e.Contra.Flags = strings.Split(flags, ",")
	} else {
		e.Contra.Flags = []string{}
	}
	e.Contra.OverrideDecision = model.Decision(override)

	if outcome.Valid && outcome.String != "" {
		e.Outcome = &Outcome{
			ExitPrice:   exitPrice.Float64,
			ExitSource:  exitSource.String,
			NextClose:   nextClose.Float64,
			MovePct:     movePct.Float64,
			Verdict:     outcome.String,
			ValidatedAt: time.Unix(validatedAt.Int64, 0).UTC(),
		}
	}
	return e, nil
}

// RecordOutcome backfills the outcome for one entry. Rows that already
// carry an outcome are left untouched, which makes concurrent backfill
// runs safe without locking.
func (s *SQLiteStore) RecordOutcome(ctx context.Context, id string, o Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE cycles
		SET exit_price = ?, exit_source = ?, next_close = ?, move_pct = ?, outcome = ?, validated_at = ?
		WHERE id = ? AND (outcome IS NULL OR outcome = '')`,
		o.ExitPrice, o.ExitSource, o.NextClose, o.MovePct, o.Verdict, o.ValidatedAt.Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// ExecutedToday reports whether a webhook was already dispatched for the
// given trade date
func (s *SQLiteStore) ExecutedToday(ctx context.Context, tradeDate string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cycles WHERE trade_date = ? AND trade_executed = ?`,
		tradeDate, model.ExecutedYes,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query executed: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) Close() error {
	log.Info().Msg("closing journal")
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// truncate bounds free-text columns so one verbose assessor response
// cannot bloat the journal.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
