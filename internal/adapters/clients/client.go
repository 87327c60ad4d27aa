// Package clients provides the instrumented HTTP client used to reach a
// speech-recognition server on the local network.
package clients

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebox/internal/platform/config"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

// ErrMaxRetriesExceeded wraps the last attempt's error once every retry has failed.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

const (
	instrumentationName = "github.com/jsamuelsen/quotebox/internal/adapters/clients"

	// HeaderCycleID carries the session cycle id so server logs can be matched
	// to the button press that caused them.
	HeaderCycleID = "X-Quotebox-Cycle"

	httpStatusCategoryDivisor = 100

	// A 5xx body is read this far before closing so the connection can be reused.
	maxDrainBytes = 4 << 10

	defaultTimeout         = 30 * time.Second
	defaultMaxIdleConns    = 4
	defaultIdleConnTimeout = 90 * time.Second

	// jitterRangeMultiplier converts rand [0,1) to [-1,1) for symmetric jitter.
	jitterRangeMultiplier = 2
)

// Config configures an HTTP client instance.
type Config struct {
	// BaseURL is the server root, e.g. "http://speechbox.local:8080".
	BaseURL string

	// ServiceName identifies the server in logs, spans and metrics.
	ServiceName string

	// Timeout is the per-attempt request timeout. Transcribing a long
	// utterance on a small server can take several seconds.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// Logger is an optional logger. If nil, slog.Default is used.
	Logger *slog.Logger
}

// Client is an instrumented HTTP client with retry, a circuit breaker,
// OpenTelemetry tracing and structured logging.
type Client struct {
	http        *http.Client
	baseURL     string
	serviceName string
	cfg         *Config
	logger      *slog.Logger
	cb          *CircuitBreaker

	tracer trace.Tracer

	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
}

// New builds a client for one speech server. Zero timeouts and pool sizes
// in cfg are replaced with defaults; cfg is modified in place.
func New(cfg *Config) (*Client, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("config is required")
	case cfg.ServiceName == "":
		return nil, errors.New("service name is required")
	}

	cfg.Timeout = positive(cfg.Timeout, defaultTimeout)
	cfg.Retry.MaxAttempts = max(cfg.Retry.MaxAttempts, 1)
	cfg.Transport.MaxIdleConns = positive(cfg.Transport.MaxIdleConns, defaultMaxIdleConns)
	cfg.Transport.IdleConnTimeout = positive(cfg.Transport.IdleConnTimeout, defaultIdleConnTimeout)

	logger := cmp.Or(cfg.Logger, slog.Default()).With(
		slog.String("component", "clients.Client"),
		slog.String("downstream", cfg.ServiceName),
	)

	c := &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceName: cfg.ServiceName,
		cfg:         cfg,
		logger:      logger,
		tracer:      otel.Tracer(instrumentationName),
		cb: NewCircuitBreaker(CircuitBreakerConfig{
			MaxFailures:   cfg.Circuit.MaxFailures,
			Timeout:       cfg.Circuit.Timeout,
			HalfOpenLimit: cfg.Circuit.HalfOpenLimit,
		}),
		// One server, so the per-host limit is the whole pool.
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Transport.MaxIdleConns,
				MaxIdleConnsPerHost: cfg.Transport.MaxIdleConns,
				IdleConnTimeout:     cfg.Transport.IdleConnTimeout,
			},
		},
	}

	c.cb.OnStateChange(func(from, to State) {
		logger.Warn("speech server circuit changed", slog.String("from", from.String()), slog.String("to", to.String()))
	})

	if err := c.instrument(otel.Meter(instrumentationName)); err != nil {
		return nil, err
	}

	return c, nil
}

func positive[T int | time.Duration](v, fallback T) T {
	if v <= 0 {
		return fallback
	}
	return v
}

func (c *Client) instrument(meter metric.Meter) error {
	var err error

	c.requestDuration, err = meter.Float64Histogram("quotebox.speech_server.request.duration",
		metric.WithDescription("Duration of speech server requests, retries included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("creating duration metric: %w", err)
	}

	c.requestTotal, err = meter.Int64Counter("quotebox.speech_server.requests",
		metric.WithDescription("Speech server requests by outcome"),
	)
	if err != nil {
		return fmt.Errorf("creating request counter: %w", err)
	}

	return nil
}

// Do sends req through the circuit breaker with retries, a client span and
// the cycle id header.
//
// Retries need a rewindable body: requests built by Get and PostBytes set
// GetBody; callers building their own streaming request should keep
// Retry.MaxAttempts at 1.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("downstream", c.serviceName),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if !c.cb.Allow() {
		c.observe(ctx, req.Method, 0, start, "circuit_open")
		logger.WarnContext(ctx, "speech server skipped, circuit open", slog.Duration("retry_after", c.cb.RetryAfter()))
		return nil, ErrCircuitOpen
	}

	if cycleID := logging.CycleID(ctx); cycleID != "" {
		req.Header.Set(HeaderCycleID, cycleID)
	}

	ctx, span := c.tracer.Start(ctx, req.Method+" "+c.serviceName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.serviceName),
		),
	)
	defer span.End()

	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, attempts, err := c.send(ctx, req, logger)
	span.SetAttributes(attribute.Int("http.attempts", attempts))

	if err != nil {
		c.cb.RecordFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.observe(ctx, req.Method, 0, start, "error")
		logger.ErrorContext(ctx, "request failed",
			slog.Int("attempts", attempts),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err),
		)
		return nil, err
	}

	c.cb.RecordSuccess()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}

	c.observe(ctx, req.Method, resp.StatusCode, start, fmt.Sprintf("%dxx", resp.StatusCode/httpStatusCategoryDivisor))
	logger.DebugContext(ctx, "request completed",
		slog.Int("status", resp.StatusCode),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
	)

	return resp, nil
}

// send makes up to Retry.MaxAttempts attempts and reports how many it made.
// Retryable network errors and 5xx responses are retried after a backoff;
// any other outcome is returned as is. Running out of attempts wraps the
// last failure in ErrMaxRetriesExceeded.
func (c *Client) send(ctx context.Context, req *http.Request, logger *slog.Logger) (*http.Response, int, error) {
	var lastErr error

	for attempt := range c.cfg.Retry.MaxAttempts {
		if attempt > 0 {
			if err := c.pause(ctx, req, attempt, logger); err != nil {
				return nil, attempt, err
			}
		}

		resp, err := c.http.Do(req.WithContext(ctx))

		switch {
		case err != nil && !isRetryableError(err):
			return nil, attempt + 1, fmt.Errorf("request failed: %w", err)

		case err != nil:
			lastErr = err

		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			drain(resp, logger)

		default:
			return resp, attempt + 1, nil
		}

		logger.DebugContext(ctx, "attempt failed",
			slog.Int("attempt", attempt+1),
			slog.Any("error", lastErr),
		)
	}

	return nil, c.cfg.Retry.MaxAttempts, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

// pause waits out the backoff before attempt and rewinds the request body.
func (c *Client) pause(ctx context.Context, req *http.Request, attempt int, logger *slog.Logger) error {
	backoff := c.calculateBackoff(attempt)
	logger.DebugContext(ctx, "retrying request",
		slog.Int("attempt", attempt+1),
		slog.Duration("backoff", backoff),
	)

	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if req.GetBody == nil {
		return nil
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewinding request body: %w", err)
	}
	req.Body = body

	return nil
}

func drain(resp *http.Response, logger *slog.Logger) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	if err := resp.Body.Close(); err != nil {
		logger.Debug("failed to close response body", slog.Any("error", err))
	}
}

// Get performs an HTTP GET request.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(path), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return c.Do(ctx, req)
}

// PostBytes performs an HTTP POST with an in-memory body that can be
// replayed on retry.
func (c *Client) PostBytes(ctx context.Context, path, contentType string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	req.Header.Set("Content-Type", contentType)

	return c.Do(ctx, req)
}

// CircuitState returns the current state of the circuit breaker.
func (c *Client) CircuitState() State {
	return c.cb.State()
}

func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

// calculateBackoff returns initial * multiplier^attempt, capped at the max
// interval, with symmetric jitter of JitterFactor.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	r := c.cfg.Retry
	backoff := min(float64(r.InitialInterval)*math.Pow(r.Multiplier, float64(attempt)), float64(r.MaxInterval))

	spread := rand.Float64()*jitterRangeMultiplier - 1 //nolint:gosec // jitter only
	backoff *= 1 + c.cfg.Retry.JitterFactor*spread

	return time.Duration(backoff)
}

func (c *Client) observe(ctx context.Context, method string, status int, start time.Time, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.serviceName),
		attribute.String("result", result),
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	set := metric.WithAttributes(attrs...)
	c.requestDuration.Record(ctx, time.Since(start).Seconds(), set)
	c.requestTotal.Add(ctx, 1, set)
}

// isRetryableError reports whether err is a network failure worth retrying.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
