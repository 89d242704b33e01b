package storage

// sqlite.go: registro persistente de trades y estado de riesgo.
//
// Estrategia:
//   - `trades`: una fila por ejecución terminal (success/partial/aborted).
//   - `dailies`: agregado por día via UPSERT, para stats baratas sin
//     escanear todo el histórico.
//   - `risk_state`: una única fila con los contadores del risk manager,
//     para que un reinicio conserve cooldowns y racha de pérdidas.
//   - Prune automático al arrancar: trades > 90d.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/areebasiddiqi/triarb/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por ejecución terminal
CREATE TABLE IF NOT EXISTS trades (
    id              TEXT PRIMARY KEY,
    path_id         TEXT     NOT NULL,
    status          TEXT     NOT NULL,
    legs_executed   INTEGER  NOT NULL DEFAULT 0,
    input_amount    REAL     NOT NULL DEFAULT 0,
    final_amount    REAL     NOT NULL DEFAULT 0,
    realized_profit REAL     NOT NULL DEFAULT 0,
    error           TEXT     NOT NULL DEFAULT '',
    started_at      DATETIME NOT NULL,
    completed_at    DATETIME NOT NULL
);

-- Agregado por día (UPSERT en cada trade)
CREATE TABLE IF NOT EXISTS dailies (
    day          TEXT PRIMARY KEY,
    trades       INTEGER NOT NULL DEFAULT 0,
    successful   INTEGER NOT NULL DEFAULT 0,
    total_profit REAL    NOT NULL DEFAULT 0
);

-- Una única fila con el estado del risk manager
CREATE TABLE IF NOT EXISTS risk_state (
    id                 INTEGER PRIMARY KEY CHECK (id = 1),
    day                TEXT    NOT NULL,
    trades_today       INTEGER NOT NULL DEFAULT 0,
    exposure_today     REAL    NOT NULL DEFAULT 0,
    consecutive_losses INTEGER NOT NULL DEFAULT 0,
    last_trade_by_path TEXT    NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_trades_completed ON trades(completed_at DESC);
CREATE INDEX IF NOT EXISTS idx_trades_path      ON trades(path_id);
`

const retentionTrades = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveTrade persiste un trade terminal y actualiza el agregado diario.
func (s *SQLiteStorage) SaveTrade(ctx context.Context, rec domain.TradeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO trades
			(id, path_id, status, legs_executed, input_amount, final_amount,
			 realized_profit, error, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PathID, string(rec.Status), rec.LegsExecuted,
		rec.InputAmount, rec.FinalAmount, rec.RealizedProfit, rec.Error,
		rec.StartedAt.UTC(), rec.CompletedAt.UTC(),
	); err != nil {
		return fmt.Errorf("storage.SaveTrade: insert trade: %w", err)
	}

	successful := 0
	if rec.Status == domain.TradeSuccess {
		successful = 1
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO dailies (day, trades, successful, total_profit)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			trades       = trades + 1,
			successful   = successful + excluded.successful,
			total_profit = total_profit + excluded.total_profit`,
		rec.CompletedAt.UTC().Format("2006-01-02"), successful, rec.RealizedProfit,
	); err != nil {
		return fmt.Errorf("storage.SaveTrade: upsert daily: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveTrade: commit: %w", err)
	}
	return nil
}

// GetTrades devuelve los trades completados dentro del rango, más recientes
// primero.
func (s *SQLiteStorage) GetTrades(ctx context.Context, from, to time.Time) ([]domain.TradeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path_id, status, legs_executed, input_amount, final_amount,
		       realized_profit, error, started_at, completed_at
		FROM trades
		WHERE completed_at >= ? AND completed_at < ?
		ORDER BY completed_at DESC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrades: query: %w", err)
	}
	defer rows.Close()

	var out []domain.TradeRecord
	for rows.Next() {
		var rec domain.TradeRecord
		var status string
		if err := rows.Scan(
			&rec.ID, &rec.PathID, &status, &rec.LegsExecuted,
			&rec.InputAmount, &rec.FinalAmount, &rec.RealizedProfit,
			&rec.Error, &rec.StartedAt, &rec.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.GetTrades: scan: %w", err)
		}
		rec.Status = domain.TradeStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetStats agrega el rendimiento de los últimos N días desde `dailies`.
func (s *SQLiteStorage) GetStats(ctx context.Context, days int) (domain.Stats, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02")

	var stats domain.Stats
	stats.PeriodDays = days
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(trades), 0),
		       COALESCE(SUM(successful), 0),
		       COALESCE(SUM(total_profit), 0)
		FROM dailies
		WHERE day >= ?`,
		since,
	).Scan(&stats.TotalTrades, &stats.SuccessfulTrades, &stats.TotalProfit)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("storage.GetStats: query: %w", err)
	}

	if stats.TotalTrades > 0 {
		stats.SuccessRate = float64(stats.SuccessfulTrades) / float64(stats.TotalTrades) * 100
		stats.AvgProfitPerTrade = stats.TotalProfit / float64(stats.TotalTrades)
	}
	return stats, nil
}

// SaveRiskState escribe la fila única de estado de riesgo.
func (s *SQLiteStorage) SaveRiskState(ctx context.Context, state domain.RiskState) error {
	byPath, err := json.Marshal(state.LastTradeByPath)
	if err != nil {
		return fmt.Errorf("storage.SaveRiskState: marshal cooldowns: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_state (id, day, trades_today, exposure_today,
		                        consecutive_losses, last_trade_by_path)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			day                = excluded.day,
			trades_today       = excluded.trades_today,
			exposure_today     = excluded.exposure_today,
			consecutive_losses = excluded.consecutive_losses,
			last_trade_by_path = excluded.last_trade_by_path`,
		state.Day.UTC().Format(time.RFC3339), state.TradesToday,
		state.ExposureToday, state.ConsecutiveLosses, string(byPath),
	); err != nil {
		return fmt.Errorf("storage.SaveRiskState: upsert: %w", err)
	}
	return nil
}

// LoadRiskState lee el estado de riesgo persistido. Si no hay fila devuelve
// un estado limpio para hoy.
func (s *SQLiteStorage) LoadRiskState(ctx context.Context) (domain.RiskState, error) {
	var day, byPath string
	state := domain.NewRiskState(time.Now().UTC())

	err := s.db.QueryRowContext(ctx, `
		SELECT day, trades_today, exposure_today, consecutive_losses, last_trade_by_path
		FROM risk_state WHERE id = 1`,
	).Scan(&day, &state.TradesToday, &state.ExposureToday,
		&state.ConsecutiveLosses, &byPath)
	if err == sql.ErrNoRows {
		return domain.NewRiskState(time.Now().UTC()), nil
	}
	if err != nil {
		return domain.RiskState{}, fmt.Errorf("storage.LoadRiskState: query: %w", err)
	}

	if t, perr := time.Parse(time.RFC3339, day); perr == nil {
		state.Day = t
	}
	if err := json.Unmarshal([]byte(byPath), &state.LastTradeByPath); err != nil {
		state.LastTradeByPath = make(map[string]time.Time)
	}
	return state, nil
}

// pruneOld borra trades fuera de la ventana de retención. Best-effort.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionTrades)
	res, err := s.db.ExecContext(ctx, `DELETE FROM trades WHERE completed_at < ?`, cutoff)
	if err != nil {
		slog.Warn("storage: prune failed", "err", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("storage: pruned old trades", "rows", n)
	}
}

// Close cierra la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
