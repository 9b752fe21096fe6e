// Package dolarapi provides a client for the dolarapi.com exchange-rate API.
package dolarapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/cartera/internal/common"
	"github.com/bobmcallan/cartera/internal/interfaces"
)

const (
	DefaultBaseURL   = "https://dolarapi.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 1 // requests per second

	// cclPath is the "contado con liquidación" quote.
	cclPath = "/v1/dolares/contadoconliqui"
)

// Client implements interfaces.RateClient
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new dolarapi client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type dolarResponse struct {
	Moneda             string   `json:"moneda"`
	Casa               string   `json:"casa"`
	Nombre             string   `json:"nombre"`
	Compra             *float64 `json:"compra"`
	Venta              *float64 `json:"venta"`
	FechaActualizacion string   `json:"fechaActualizacion"`
}

// GetReferenceRate returns the CCL sell rate.
func (c *Client) GetReferenceRate(ctx context.Context) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+cclPath, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("url", c.baseURL+cclPath).Msg("dolarapi request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("dolarapi error: %s (status: %d)", strings.TrimSpace(string(body)), resp.StatusCode)
	}

	var dr dolarResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if dr.Venta == nil || *dr.Venta <= 0 {
		return 0, fmt.Errorf("dolarapi returned no sell rate")
	}

	c.logger.Debug().Float64("venta", *dr.Venta).Str("updated", dr.FechaActualizacion).Msg("CCL rate fetched")
	return *dr.Venta, nil
}

var _ interfaces.RateClient = (*Client)(nil)
