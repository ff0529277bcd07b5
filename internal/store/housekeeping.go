package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

// ErrInvalidCleanup marks a cleanup request that cannot be executed.
var ErrInvalidCleanup = errors.New("invalid cleanup request")

// cleanupStmt is one parameterised DELETE of a cleanup run.
type cleanupStmt struct {
	dataType string
	sql      string
	args     []any
}

var cleanupTargets = map[string]struct{ table, timeColumn string }{
	model.CleanupSignals:    {"signals", "created_at"},
	model.CleanupTrades:     {"trades", "created_at"},
	model.CleanupPriceCache: {"price_ticks", "recorded_at"},
}

// parseBound accepts RFC 3339 timestamps or plain YYYY-MM-DD dates.
func parseBound(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation(time.DateOnly, v, time.Local)
}

// buildCleanup turns a request into DELETE statements. Trades and prices
// need a time range; signals may instead be scoped by status alone.
func buildCleanup(req model.CleanupRequest) ([]cleanupStmt, error) {
	if len(req.DataTypes) == 0 {
		return nil, fmt.Errorf("%w: no data types", ErrInvalidCleanup)
	}

	var (
		timeCond string
		timeArgs []any
	)
	tr := req.TimeRange
	switch {
	case tr.Hours < 0:
		return nil, fmt.Errorf("%w: hours must be positive", ErrInvalidCleanup)
	case tr.Hours > 0:
		timeCond = "%s < NOW() - make_interval(hours => $1)"
		timeArgs = []any{tr.Hours}
	case tr.StartDate != "" && tr.EndDate != "":
		start, err := parseBound(tr.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date: %v", ErrInvalidCleanup, err)
		}
		end, err := parseBound(tr.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: end_date: %v", ErrInvalidCleanup, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("%w: end_date before start_date", ErrInvalidCleanup)
		}
		timeCond = "%s BETWEEN $1 AND $2"
		timeArgs = []any{start, end}
	}

	var stmts []cleanupStmt
	seen := map[string]bool{}
	for _, dt := range req.DataTypes {
		target, ok := cleanupTargets[dt]
		if !ok {
			return nil, fmt.Errorf("%w: unknown data type %q", ErrInvalidCleanup, dt)
		}
		if seen[dt] {
			continue
		}
		seen[dt] = true

		var conds []string
		args := append([]any(nil), timeArgs...)
		if timeCond != "" {
			conds = append(conds, fmt.Sprintf(timeCond, target.timeColumn))
		}
		if dt == model.CleanupSignals {
			if statuses := signalStatuses(req.SignalFilters); len(statuses) > 0 {
				args = append(args, statuses)
				conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
			}
		}
		if len(conds) == 0 {
			continue
		}
		stmts = append(stmts, cleanupStmt{
			dataType: dt,
			sql:      fmt.Sprintf("DELETE FROM %s WHERE %s", target.table, strings.Join(conds, " AND ")),
			args:     args,
		})
	}
	return stmts, nil
}

func signalStatuses(f *model.SignalFilters) []string {
	if f == nil {
		return nil
	}
	var out []string
	if f.Executed {
		out = append(out, string(model.SignalExecuted))
	}
	if f.Failed {
		out = append(out, string(model.SignalFailed))
	}
	if f.Pending {
		out = append(out, string(model.SignalPending))
	}
	return out
}

// Cleanup deletes rows in one transaction. In preview mode the deletions are
// counted then rolled back.
func (s *HybridStore) Cleanup(ctx context.Context, req model.CleanupRequest) (*model.CleanupResult, error) {
	stmts, err := buildCleanup(req)
	if err != nil {
		return nil, err
	}
	if s.PG == nil {
		return nil, ErrPostgresUnavailable
	}

	tx, err := s.PG.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cleanup: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	counts := map[string]int64{}
	for _, st := range stmts {
		tag, err := tx.Exec(ctx, st.sql, st.args...)
		if err != nil {
			return nil, fmt.Errorf("cleanup %s: %w", st.dataType, err)
		}
		counts[st.dataType] = tag.RowsAffected()
	}

	preview := req.IsPreview()
	res := &model.CleanupResult{}
	if preview {
		res.PreviewData = &model.CleanupPreview{
			SignalsToDelete: counts[model.CleanupSignals],
			TradesToDelete:  counts[model.CleanupTrades],
			PricesToDelete:  counts[model.CleanupPriceCache],
		}
		if err := tx.Rollback(ctx); err != nil {
			return nil, fmt.Errorf("rollback preview: %w", err)
		}
	} else {
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit cleanup: %w", err)
		}
		res.SignalsDeleted = counts[model.CleanupSignals]
		res.TradesDeleted = counts[model.CleanupTrades]
		res.PricesDeleted = counts[model.CleanupPriceCache]
		if clearsSnapshot(req) {
			if err := s.redis.Del(ctx, LatestPairsKey).Err(); err != nil {
				s.logger.Warn("store.redis.snapshot_clear_failed", zap.Error(err))
			}
			res.CacheCleared = true
		}
	}

	s.logger.Info("store.cleanup",
		zap.Bool("preview", preview),
		zap.Int64("signals", counts[model.CleanupSignals]),
		zap.Int64("trades", counts[model.CleanupTrades]),
		zap.Int64("prices", counts[model.CleanupPriceCache]))
	return res, nil
}

// clearsSnapshot reports whether a committed cleanup drops the Redis latest snapshot.
func clearsSnapshot(req model.CleanupRequest) bool {
	return !req.IsPreview() && req.Includes(model.CleanupPriceCache) && !req.KeepSnapshot
}

const bytesPerMB = 1024 * 1024

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// databaseInfo derives usage figures against a size budget of limitMB.
func databaseInfo(name, pretty string, sizeBytes int64, limitMB float64) model.DatabaseInfo {
	usedMB := float64(sizeBytes) / bytesPerMB
	info := model.DatabaseInfo{
		Name:        name,
		Size:        pretty,
		SizeBytes:   sizeBytes,
		SizeMB:      round2(usedMB),
		LimitMB:     limitMB,
		RemainingMB: round2(limitMB - usedMB),
	}
	if limitMB > 0 {
		info.UsagePercentage = round2(usedMB / limitMB * 100)
	}
	return info
}

// DatabaseUsage reports database, per-table size and row counts.
func (s *HybridStore) DatabaseUsage(ctx context.Context, limitMB float64) (*model.DatabaseUsage, error) {
	if s.PG == nil {
		return nil, ErrPostgresUnavailable
	}

	var (
		name, pretty string
		size         int64
	)
	if err := s.PG.QueryRow(ctx, `
		SELECT current_database(),
		       pg_size_pretty(pg_database_size(current_database())),
		       pg_database_size(current_database())
	`).Scan(&name, &pretty, &size); err != nil {
		return nil, fmt.Errorf("database size: %w", err)
	}

	rows, err := s.PG.Query(ctx, `
		SELECT relname,
		       pg_size_pretty(pg_total_relation_size(relid)),
		       pg_total_relation_size(relid)
		FROM pg_catalog.pg_statio_user_tables
		ORDER BY pg_total_relation_size(relid) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("table sizes: %w", err)
	}
	defer rows.Close()

	usage := &model.DatabaseUsage{
		Database:    databaseInfo(name, pretty, size, limitMB),
		LastUpdated: time.Now().Format(time.RFC3339),
	}
	for rows.Next() {
		var t model.TableUsage
		if err := rows.Scan(&t.Name, &t.Size, &t.SizeBytes); err != nil {
			return nil, err
		}
		t.SizeMB = round2(float64(t.SizeBytes) / bytesPerMB)
		usage.Tables = append(usage.Tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, table := range Tables {
		var n int64
		// table names come from the fixed schema list
		if err := s.PG.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		usage.RecordCounts = append(usage.RecordCounts, model.RecordCount{Table: table, Count: n})
	}
	return usage, nil
}

// SystemCounts returns today's signal and filled-trade counts plus the
// backlog of pending signals.
func (s *HybridStore) SystemCounts(ctx context.Context) (*model.SystemCounts, error) {
	if s.PG == nil {
		return nil, ErrPostgresUnavailable
	}
	var c model.SystemCounts
	if err := s.PG.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM signals WHERE created_at::date = CURRENT_DATE),
			(SELECT COUNT(*) FROM trades WHERE created_at::date = CURRENT_DATE AND order_status = 'filled'),
			(SELECT COUNT(*) FROM signals WHERE status = 'pending')
	`).Scan(&c.SignalsToday, &c.ExecutedTradesToday, &c.PendingSignals); err != nil {
		return nil, fmt.Errorf("system counts: %w", err)
	}
	return &c, nil
}
