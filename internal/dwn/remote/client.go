// Package remote talks to DWN endpoints over their JSON-RPC interface.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"vctodwn/internal/dwn"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/platform/tracer"
	"vctodwn/pkg/platform/circuit"
)

const (
	// RequestHeader carries the JSON-RPC request; the body carries record data.
	RequestHeader = "dwn-request"

	methodProcessMessage = "dwn.processMessage"
	maxReplyBytes        = 4 << 20
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BreakerObserver is notified when an endpoint's circuit opens or closes.
type BreakerObserver interface {
	BreakerStateChanged(endpoint string, state circuit.State)
}

// Client sends messages to DWN endpoints. Transport failures are retried with
// exponential backoff; each endpoint sits behind its own circuit breaker.
type Client struct {
	http        HTTPDoer
	logger      *slog.Logger
	tracer      tracer.Tracer
	observer    BreakerObserver
	maxTries    uint
	maxElapsed  time.Duration
	initialWait time.Duration
	breakerOpts []circuit.Option

	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(d HTTPDoer) Option {
	return func(c *Client) { c.http = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

func WithBreakerObserver(o BreakerObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithRetry bounds retries by attempt count and total elapsed time.
func WithRetry(maxTries uint, maxElapsed time.Duration) Option {
	return func(c *Client) {
		if maxTries > 0 {
			c.maxTries = maxTries
		}
		if maxElapsed > 0 {
			c.maxElapsed = maxElapsed
		}
	}
}

// WithInitialInterval sets the first backoff wait. Tests use a tiny value.
func WithInitialInterval(d time.Duration) Option {
	return func(c *Client) { c.initialWait = d }
}

// WithBreaker configures the per-endpoint circuit breakers.
func WithBreaker(opts ...circuit.Option) Option {
	return func(c *Client) { c.breakerOpts = opts }
}

// New creates a client. Defaults: 3 tries within 30s, 10s HTTP timeout.
func New(opts ...Option) *Client {
	c := &Client{
		logger:      slog.Default(),
		tracer:      tracer.NewNoop(),
		maxTries:    3,
		maxElapsed:  30 * time.Second,
		initialWait: 200 * time.Millisecond,
		breakers:    make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	return c
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	Target  string `json:"target"`
	Message any    `json:"message"`
}

type rpcResponse struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      string     `json:"id"`
	Result  *rpcResult `json:"result,omitempty"`
	Error   *rpcError  `json:"error,omitempty"`
}

type rpcResult struct {
	Reply models.Reply `json:"reply"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ProcessMessage delivers message (and optional record data) to target's DWN at
// endpoint and returns the node's reply. A reply with a non-2xx status is not an
// error; errors mean the exchange itself failed.
func (c *Client) ProcessMessage(ctx context.Context, endpoint, target string, message any, data []byte) (models.Reply, error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanRemoteProcess,
		tracer.String(tracer.AttrEndpoint, endpoint),
		tracer.String(tracer.AttrTarget, target),
	)

	header, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  methodProcessMessage,
		Params:  rpcParams{Target: target, Message: message},
	})
	if err != nil {
		err = dwn.NewStoreError(dwn.ErrorInternal, "process_message", "failed to encode request", err)
		span.End(err)
		return models.Reply{}, err
	}

	reply, err := withRetry(ctx, c, endpoint, span, func() (models.Reply, error) {
		return c.processOnce(ctx, endpoint, header, data)
	})
	if err == nil {
		span.SetAttributes(tracer.Int(tracer.AttrStatusCode, reply.Status.Code))
	}
	span.End(err)
	return reply, err
}

func (c *Client) processOnce(ctx context.Context, endpoint string, header, data []byte) (models.Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(endpoint, "/"), bytes.NewReader(data))
	if err != nil {
		return models.Reply{}, dwn.NewStoreError(dwn.ErrorInternal, "process_message", "failed to create request", err)
	}
	req.Header.Set(RequestHeader, string(header))
	req.Header.Set("Content-Type", "application/octet-stream")

	body, err := c.do(ctx, req, "process_message")
	if err != nil {
		return models.Reply{}, err
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.Reply{}, dwn.NewStoreError(dwn.ErrorBadReply, "process_message", "failed to parse reply", err)
	}
	if resp.Error != nil {
		return models.Reply{}, dwn.NewStoreError(dwn.ErrorRejected, "process_message",
			fmt.Sprintf("rpc error %d: %s", resp.Error.Code, resp.Error.Message), nil)
	}
	if resp.Result == nil || resp.Result.Reply.Status.Code == 0 {
		return models.Reply{}, dwn.NewStoreError(dwn.ErrorBadReply, "process_message", "reply has no status", nil)
	}
	return resp.Result.Reply, nil
}

// Register announces tenant to the endpoint so it accepts messages targeting it.
func (c *Client) Register(ctx context.Context, endpoint, tenant string) error {
	ctx, span := c.tracer.Start(ctx, tracer.SpanRemoteRegister,
		tracer.String(tracer.AttrEndpoint, endpoint),
		tracer.String(tracer.AttrTenant, tenant),
	)

	payload, err := json.Marshal(map[string]string{"did": tenant})
	if err != nil {
		span.End(err)
		return err
	}
	_, err = withRetry(ctx, c, endpoint, span, func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(endpoint, "/")+"/registration", bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, dwn.NewStoreError(dwn.ErrorInternal, "register", "failed to create request", err)
		}
		req.Header.Set("Content-Type", "application/json")
		_, err = c.do(ctx, req, "register")
		return struct{}{}, err
	})
	span.End(err)
	return err
}

// do executes req and classifies transport and HTTP failures.
func (c *Client) do(ctx context.Context, req *http.Request, op string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, dwn.NewStoreError(dwn.ErrorTimeout, op, "request timeout", err)
		}
		return nil, dwn.NewStoreError(dwn.ErrorUnreachable, op, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, dwn.NewStoreError(dwn.ErrorUnreachable, op, "failed to read reply", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, dwn.NewStoreError(dwn.ErrorUnauthorized, op, fmt.Sprintf("endpoint refused: %d", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, dwn.NewStoreError(dwn.ErrorNotFound, op, "endpoint not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		se := dwn.NewStoreError(dwn.ErrorRejected, op, "rate limit exceeded", nil)
		se.Retryable = true
		return nil, se
	case resp.StatusCode >= 500:
		return nil, dwn.NewStoreError(dwn.ErrorUnreachable, op, fmt.Sprintf("endpoint unavailable: %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return nil, dwn.NewStoreError(dwn.ErrorRejected, op, fmt.Sprintf("endpoint rejected request: %d", resp.StatusCode), nil)
	}
	return body, nil
}

func (c *Client) breaker(endpoint string) *circuit.Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.breakers[endpoint]
	if !ok {
		b = circuit.New(endpoint, c.breakerOpts...)
		c.breakers[endpoint] = b
	}
	return b
}

// BreakerState reports the circuit state for endpoint.
func (c *Client) BreakerState(endpoint string) circuit.State {
	return c.breaker(endpoint).State()
}

// withRetry runs op behind the endpoint breaker, retrying retryable failures.
func withRetry[T any](ctx context.Context, c *Client, endpoint string, span tracer.Span, op func() (T, error)) (T, error) {
	b := c.breaker(endpoint)
	attempt := 0

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialWait

	return backoff.Retry(ctx, func() (T, error) {
		var zero T
		attempt++
		if !b.Allow() {
			span.SetAttributes(tracer.Bool(tracer.AttrBreakerOpen, true))
			return zero, backoff.Permanent(dwn.NewStoreError(dwn.ErrorUnreachable, "circuit", "circuit open for "+endpoint, nil))
		}

		result, err := op()
		if err != nil && dwn.IsRetryable(err) {
			c.recordState(endpoint, span, b.RecordFailure(), circuit.StateOpen)
			return zero, err
		}
		// the endpoint answered, even if it said no
		c.recordState(endpoint, span, b.RecordSuccess(), circuit.StateClosed)
		if err != nil {
			return zero, backoff.Permanent(err)
		}
		return result, nil
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithMaxElapsedTime(c.maxElapsed),
		backoff.WithNotify(func(err error, wait time.Duration) {
			span.AddEvent(tracer.EventRetry,
				tracer.Int(tracer.AttrAttempt, attempt),
				tracer.Duration("wait_ms", wait),
			)
			c.logger.WarnContext(ctx, "retrying dwn request",
				"endpoint", endpoint,
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		}),
	)
}

func (c *Client) recordState(endpoint string, span tracer.Span, change circuit.StateChange, state circuit.State) {
	if !change.Opened && !change.Closed {
		return
	}
	span.AddEvent(tracer.EventBreakerState, tracer.String("state", state.String()))
	c.logger.Warn("dwn endpoint circuit "+state.String(), "endpoint", endpoint)
	if c.observer != nil {
		c.observer.BreakerStateChanged(endpoint, state)
	}
}
