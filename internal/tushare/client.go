package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/internal/httpclient"
	"github.com/Checker-Finance/bond-monitor/internal/metrics"
)

// Provider API names.
const (
	APIBondBasic  = "cb_basic"
	APIDaily      = "daily"
	APIBondDaily  = "cb_daily"
	APIIndexDaily = "index_daily"
	APIStockBasic = "stock_basic"
)

// ErrNoData is returned when a call succeeds but yields no rows.
var ErrNoData = errors.New("tushare: no data")

// ErrMalformed is returned when the response envelope is structurally invalid.
var ErrMalformed = errors.New("tushare: malformed response")

// APIError is a business error reported in the response envelope (code != 0).
type APIError struct {
	API  string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tushare %s returned code %d: %s", e.API, e.Code, e.Msg)
}

// ClientConfig configures the wire client.
type ClientConfig struct {
	BaseURL  string
	Token    string
	RetryMax int

	// Observer, when set, also sees every HTTP attempt.
	Observer httpclient.Observer
}

// Client performs Tushare Pro queries over HTTP.
type Client struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	baseURL string
	token   string
}

// NewClient constructs a new Tushare client. httpClient may be nil.
func NewClient(logger *zap.Logger, httpClient *http.Client, cfg ClientConfig) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	exec := httpclient.New(logger, httpClient, cfg.RetryMax, "tushare", func(status int, body []byte) error {
		var resp Response
		_ = json.Unmarshal(body, &resp)

		logger.Warn("tushare.client_error",
			zap.Int("status", status),
			zap.Int("code", resp.Code),
			zap.String("message", resp.Msg))

		msg := resp.Msg
		if msg == "" {
			msg = string(body)
		}
		return fmt.Errorf("tushare returned %d: %s", status, msg)
	}).WithObserver(func(status string, elapsed time.Duration) {
		metrics.ObserveUpstreamAttempt(status, elapsed)
		if cfg.Observer != nil {
			cfg.Observer(status, elapsed)
		}
	})
	return &Client{
		logger:  logger,
		exec:    exec,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
	}
}

// Query calls api with params and returns the requested fields.
// An empty result is reported as ErrNoData.
func (c *Client) Query(ctx context.Context, api string, params map[string]string, fields []string) (*Table, error) {
	if params == nil {
		params = map[string]string{}
	}
	data, err := json.Marshal(Request{
		APIName: api,
		Token:   c.token,
		Params:  params,
		Fields:  strings.Join(fields, ","),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	// end-to-end latency per api, retries included
	start := time.Now()
	var resp Response
	err = c.exec.DoJSON(ctx, req, &resp)
	metrics.ObserveUpstream(api, time.Since(start))
	if err != nil {
		metrics.IncUpstreamRequest(api, "error")
		return nil, fmt.Errorf("%s: %w", api, err)
	}
	if resp.Code != 0 {
		metrics.IncUpstreamRequest(api, "api_error")
		return nil, &APIError{API: api, Code: resp.Code, Msg: resp.Msg}
	}
	metrics.IncUpstreamRequest(api, "ok")

	if resp.Data == nil || resp.Data.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", api, ErrNoData)
	}
	for i, item := range resp.Data.Items {
		if len(item) != len(resp.Data.Fields) {
			return nil, fmt.Errorf("%s row %d has %d values for %d fields: %w",
				api, i, len(item), len(resp.Data.Fields), ErrMalformed)
		}
	}

	c.logger.Debug("tushare.query_ok",
		zap.String("api", api),
		zap.String("request_id", resp.RequestID),
		zap.Int("rows", resp.Data.Len()))
	return resp.Data, nil
}
