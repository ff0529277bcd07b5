package api

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Checker-Finance/bond-monitor/internal/monitor"
	"github.com/Checker-Finance/bond-monitor/pkg/model"
)

const (
	defaultPairsLimit = 50
	maxPairsLimit     = 200
	defaultHistory    = 30
	maxHistoryDays    = 365
)

// PairsQuery is the parsed query of GET /api/monitoring/pairs.
type PairsQuery struct {
	Limit        int
	SortBy       string
	SortOrder    string
	SignalFilter string
}

// parsePairsQuery reads and validates the pairs listing parameters.
func parsePairsQuery(c *fiber.Ctx) (PairsQuery, error) {
	q := PairsQuery{
		Limit:        defaultPairsLimit,
		SortBy:       c.Query("sort_by", monitor.SortStockChange),
		SortOrder:    c.Query("sort_order", monitor.SortDesc),
		SignalFilter: c.Query("signal_filter"),
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return q, fmt.Errorf("limit must be an integer")
		}
		q.Limit = n
	}
	return q, q.Validate()
}

func (q PairsQuery) Validate() error {
	if q.Limit < 1 || q.Limit > maxPairsLimit {
		return fmt.Errorf("limit must be between 1 and %d", maxPairsLimit)
	}
	if !monitor.ValidSortField(q.SortBy) {
		return fmt.Errorf("unsupported sort_by %q", q.SortBy)
	}
	if q.SortOrder != monitor.SortAsc && q.SortOrder != monitor.SortDesc {
		return errors.New("sort_order must be asc or desc")
	}
	return nil
}

// PairsResponse is the body of GET /api/monitoring/pairs.
type PairsResponse struct {
	Data     []model.MonitoringPair `json:"data"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}

// HistoryResponse is the body of GET /api/monitoring/history/:code.
type HistoryResponse struct {
	Code string           `json:"code"`
	Days int              `json:"days"`
	Data []model.PriceBar `json:"data"`
}

// SearchResponse is the body of GET /api/monitoring/search.
type SearchResponse struct {
	Keyword string             `json:"keyword"`
	Data    []model.Instrument `json:"data"`
}
