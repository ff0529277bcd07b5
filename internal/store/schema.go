package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Tables owned by the monitor, in dependency order.
var Tables = []string{"bonds", "price_ticks", "signals", "trades", "system_snapshots"}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bonds (
		id               SERIAL PRIMARY KEY,
		ts_code          VARCHAR(20) UNIQUE NOT NULL,
		bond_name        VARCHAR(100),
		stock_code       VARCHAR(20),
		stock_name       VARCHAR(100),
		conversion_price NUMERIC(10, 2),
		maturity_date    DATE,
		bond_rating      VARCHAR(10),
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS price_ticks (
		id          BIGSERIAL PRIMARY KEY,
		code        VARCHAR(20) NOT NULL,
		price       NUMERIC(10, 2) NOT NULL,
		change_pct  NUMERIC(8, 2),
		volume      BIGINT,
		amount      NUMERIC(18, 2),
		trade_date  VARCHAR(8),
		data_source VARCHAR(20) NOT NULL DEFAULT 'tushare',
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS signals (
		id            BIGSERIAL PRIMARY KEY,
		stock_code    VARCHAR(20) NOT NULL,
		bond_code     VARCHAR(20),
		signal_type   VARCHAR(20),
		trigger_value NUMERIC(10, 2),
		trigger_price NUMERIC(10, 2),
		status        VARCHAR(20) NOT NULL DEFAULT 'pending',
		retry_count   INTEGER NOT NULL DEFAULT 0,
		error_message VARCHAR(500),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at  TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id              BIGSERIAL PRIMARY KEY,
		signal_id       BIGINT REFERENCES signals(id) ON DELETE SET NULL,
		bond_code       VARCHAR(20),
		order_id        VARCHAR(50),
		order_type      VARCHAR(10),
		order_volume    INTEGER,
		order_price     NUMERIC(10, 2),
		order_status    VARCHAR(20),
		executed_volume INTEGER,
		executed_price  NUMERIC(10, 2),
		executed_at     TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS system_snapshots (
		id            BIGSERIAL PRIMARY KEY,
		snapshot_type VARCHAR(50) NOT NULL,
		snapshot_data JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_price_ticks_code_time ON price_ticks (code, recorded_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_status_created ON signals (status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_signals_stock_created ON signals (stock_code, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_signal ON trades (signal_id)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades (order_status)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_type_created ON system_snapshots (snapshot_type, created_at DESC)`,
}

// Migrate creates the tables and indexes if they do not exist.
func (s *HybridStore) Migrate(ctx context.Context) error {
	if s.PG == nil {
		return nil
	}
	for i, stmt := range schema {
		if _, err := s.PG.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	s.logger.Info("store.pg.migrated", zap.Int("statements", len(schema)))
	return nil
}
