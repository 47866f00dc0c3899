// Package dispatch forwards confirmed agent changes to the per-product
// change services and resolves which service handles a product.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"accai/internal/fpchange/faults"
	"accai/internal/fpchange/models"
	"accai/internal/platform/logger"
)

// ChangePath is the endpoint every product change service exposes.
const ChangePath = "/api/CambioFp"

// DefaultTimeout bounds a single outbound change request.
const DefaultTimeout = 30 * time.Second

// Dispatcher sends one change request to a product's change service.
//
// Implementations signal failure either by returning a *faults.Fault or,
// for soft dispatchers, by returning false with a nil error.
type Dispatcher interface {
	Send(ctx context.Context, req models.ChangeRequest) (bool, error)
}

// Mode selects how a dispatcher reports a non-2xx answer.
type Mode int

const (
	// Strict returns a KindNonSuccess fault carrying the status code.
	Strict Mode = iota
	// Soft returns false with no error.
	Soft
)

// HTTPDispatcher posts change requests as JSON to a product change service.
type HTTPDispatcher struct {
	product models.Product
	baseURL string
	mode    Mode
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// Option configures an HTTPDispatcher.
type Option func(*HTTPDispatcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *HTTPDispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithTimeout sets the client timeout for outbound requests.
func WithTimeout(timeout time.Duration) Option {
	return func(d *HTTPDispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithMode selects strict or soft failure signalling.
func WithMode(mode Mode) Option {
	return func(d *HTTPDispatcher) {
		d.mode = mode
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *HTTPDispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewHTTPDispatcher creates a dispatcher for product rooted at baseURL.
func NewHTTPDispatcher(product models.Product, baseURL string, opts ...Option) (*HTTPDispatcher, error) {
	if product == "" {
		return nil, fmt.Errorf("product is required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required for %s", product)
	}
	d := &HTTPDispatcher{
		product: product,
		baseURL: baseURL,
		mode:    Strict,
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.timeout > 0 {
		client := *d.client
		client.Timeout = d.timeout
		d.client = &client
	}
	return d, nil
}

// Product returns the product this dispatcher serves.
func (d *HTTPDispatcher) Product() models.Product {
	return d.product
}

// Send posts req to the change endpoint.
func (d *HTTPDispatcher) Send(ctx context.Context, req models.ChangeRequest) (bool, error) {
	target := d.product.String()
	body, err := json.Marshal(req)
	if err != nil {
		return false, faults.New(faults.KindUnexpected, target, fmt.Errorf("encode change request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+ChangePath, bytes.NewReader(body))
	if err != nil {
		return false, faults.New(faults.KindUnexpected, target, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return false, faults.FromTransport(err, target)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return true, nil
	}

	d.logger.WarnContext(ctx, "change service answered non-2xx",
		"product", target,
		"contract", req.ContractNumber,
		"status", resp.StatusCode,
	)
	if d.mode == Soft {
		return false, nil
	}
	return false, faults.NonSuccess(target, resp.StatusCode)
}
