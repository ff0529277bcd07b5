package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// ErrDecode marks a 2xx response whose body could not be decoded.
var ErrDecode = errors.New("decode failed")

// Backoff returns the retry sleep duration for the given attempt number.
func Backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// Observer receives the outcome label ("200", "503", "transport_error", ...)
// and latency of every HTTP attempt.
type Observer func(status string, elapsed time.Duration)

// Executor handles retrying HTTP execution with JSON decoding. Numbers in
// untyped destinations decode as json.Number so decimals survive intact.
type Executor struct {
	logger       *zap.Logger
	http         *http.Client
	retryMax     int
	tag          string
	errorHandler func(status int, body []byte) error
	observe      Observer
}

// New creates an Executor. errorHandler is called on 4xx failure responses to produce a
// provider-specific error. If nil, a default error is returned.
func New(
	logger *zap.Logger,
	httpClient *http.Client,
	retryMax int,
	tag string,
	errorHandler func(status int, body []byte) error,
) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Executor{
		logger:       logger,
		http:         httpClient,
		retryMax:     retryMax,
		tag:          tag,
		errorHandler: errorHandler,
	}
}

// WithObserver installs a per-attempt observer and returns the executor.
func (e *Executor) WithObserver(o Observer) *Executor {
	e.observe = o
	return e
}

// DoJSON executes req, retrying transport failures and 5xx responses up to
// retryMax times, then JSON-decodes a 2xx body into out.
func (e *Executor) DoJSON(ctx context.Context, req *http.Request, out any) error {
	var lastErr error
	for attempt := 0; attempt <= e.retryMax; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, Backoff(attempt-1)); err != nil {
				return fmt.Errorf("%s request canceled: %w", e.tag, err)
			}
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return fmt.Errorf("rewind body: %w", err)
				}
				req.Body = body
			}
		}

		start := time.Now()
		resp, err := e.http.Do(req)
		if err != nil {
			e.record("transport_error", time.Since(start))
			lastErr = err
			e.logger.Warn(e.tag+".http_failed",
				zap.String("url", req.URL.String()),
				zap.Error(err),
				zap.Int("attempt", attempt))
			if ctx.Err() != nil {
				return fmt.Errorf("%s request canceled: %w", e.tag, ctx.Err())
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		elapsed := time.Since(start)
		e.record(strconv.Itoa(resp.StatusCode), elapsed)

		if readErr != nil {
			lastErr = fmt.Errorf("read body: %w", readErr)
			continue
		}

		if resp.StatusCode >= 500 {
			e.logger.Warn(e.tag+".server_error",
				zap.Int("status", resp.StatusCode),
				zap.String("url", req.URL.String()),
				zap.Duration("latency", elapsed))
			lastErr = fmt.Errorf("%s server error: %d", e.tag, resp.StatusCode)
			continue
		}

		if resp.StatusCode >= 400 {
			if e.errorHandler != nil {
				return e.errorHandler(resp.StatusCode, body)
			}
			return fmt.Errorf("%s returned %d", e.tag, resp.StatusCode)
		}

		if out != nil && len(body) > 0 {
			dec := json.NewDecoder(bytes.NewReader(body))
			dec.UseNumber()
			if err := dec.Decode(out); err != nil {
				e.logger.Warn(e.tag+".decode_failed",
					zap.Error(err),
					zap.String("url", req.URL.String()),
					zap.Int("body_bytes", len(body)))
				return fmt.Errorf("%w: %w", ErrDecode, err)
			}
		}

		e.logger.Debug(e.tag+".http_success",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed))

		return nil
	}

	return fmt.Errorf("%s request failed after %d attempts: %w", e.tag, e.retryMax, lastErr)
}

func (e *Executor) record(status string, elapsed time.Duration) {
	if e.observe != nil {
		e.observe(status, elapsed)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
