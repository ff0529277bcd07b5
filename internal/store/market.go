package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

const (
	// LatestPairsKey holds the most recent monitoring snapshot in Redis.
	LatestPairsKey = "monitor:pairs:latest"

	snapshotTypePairs = "monitoring_pairs"
)

// UpsertBonds refreshes the bonds reference table from a universe fetch.
func (s *HybridStore) UpsertBonds(ctx context.Context, bonds []model.BondMetadata) error {
	if s.PG == nil || len(bonds) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, b := range bonds {
		var maturity *time.Time
		if t, ok := b.Maturity(); ok {
			maturity = &t
		}
		batch.Queue(`
			INSERT INTO bonds (ts_code, bond_name, stock_code, stock_name, conversion_price, maturity_date, bond_rating)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (ts_code)
			DO UPDATE SET
				bond_name = EXCLUDED.bond_name,
				stock_code = EXCLUDED.stock_code,
				stock_name = EXCLUDED.stock_name,
				conversion_price = EXCLUDED.conversion_price,
				maturity_date = EXCLUDED.maturity_date,
				bond_rating = EXCLUDED.bond_rating,
				updated_at = NOW();
		`, b.Code, b.Name, b.StockCode, b.StockName, b.ConversionPrice, maturity, b.Rating)
	}
	if err := s.sendBatch(ctx, batch); err != nil {
		s.logger.Error("store.pg.upsert_bonds_failed", zap.Int("bonds", len(bonds)), zap.Error(err))
		return err
	}
	return nil
}

// RecordPriceTicks appends provider-sourced snapshots. Synthetic snapshots
// are never persisted.
func (s *HybridStore) RecordPriceTicks(ctx context.Context, ticks []model.PriceSnapshot) error {
	if s.PG == nil {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range ticks {
		if t.IsSynthetic() {
			continue
		}
		batch.Queue(`
			INSERT INTO price_ticks (code, price, change_pct, volume, amount, trade_date, data_source, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, t.Code, t.Price, t.Change, t.Volume, t.Amount, t.TradeDate, "tushare", t.Timestamp)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.sendBatch(ctx, batch); err != nil {
		s.logger.Error("store.pg.insert_ticks_failed", zap.Int("ticks", batch.Len()), zap.Error(err))
		return err
	}
	return nil
}

// RecordSignals inserts detected signals.
func (s *HybridStore) RecordSignals(ctx context.Context, signals []model.Signal) error {
	if s.PG == nil || len(signals) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, sig := range signals {
		status := sig.Status
		if status == "" {
			status = model.SignalPending
		}
		batch.Queue(`
			INSERT INTO signals (stock_code, bond_code, signal_type, trigger_value, trigger_price, status, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, sig.StockCode, sig.BondCode, string(sig.Type), sig.TriggerValue, sig.TriggerPrice, string(status), sig.CreatedAt)
	}
	if err := s.sendBatch(ctx, batch); err != nil {
		s.logger.Error("store.pg.insert_signals_failed", zap.Int("signals", len(signals)), zap.Error(err))
		return err
	}
	return nil
}

func (s *HybridStore) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := s.PG.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return nil
}

// SaveSnapshot caches snap as the latest pairs view and appends it to
// system_snapshots when Postgres is configured.
func (s *HybridStore) SaveSnapshot(ctx context.Context, snap model.PairsSnapshotEvent, ttl time.Duration) error {
	if err := s.SetJSON(ctx, LatestPairsKey, snap, ttl); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	if s.PG == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if _, err := s.PG.Exec(ctx, `
		INSERT INTO system_snapshots (snapshot_type, snapshot_data, created_at)
		VALUES ($1, $2, $3)
	`, snapshotTypePairs, data, snap.GeneratedAt); err != nil {
		s.logger.Error("store.pg.insert_snapshot_failed", zap.Error(err))
		return err
	}
	return nil
}

// LatestPairs returns the cached snapshot, or nil when none is live.
func (s *HybridStore) LatestPairs(ctx context.Context) (*model.PairsSnapshotEvent, error) {
	var snap model.PairsSnapshotEvent
	err := s.GetJSON(ctx, LatestPairsKey, &snap)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &snap, nil
}
