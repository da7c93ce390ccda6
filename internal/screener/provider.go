package screener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gtiscan/screener-api/internal/ratelimit"
)

// Candle is one daily price bar.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// QuoteProvider fetches daily price history for a symbol. Implementations
// must be safe for concurrent use; callers are expected to go through the
// shared rate limiter.
type QuoteProvider interface {
	History(ctx context.Context, symbol string, days int) ([]Candle, error)
}

// HTTPProvider talks to the upstream market-data API over JSON.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPProvider creates a provider for the given base URL.
func NewHTTPProvider(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPProvider {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// History fetches up to days daily bars for symbol, oldest first.
// An HTTP 429 is reported as a rate-limit error so the limiter backs off.
func (p *HTTPProvider) History(ctx context.Context, symbol string, days int) ([]Candle, error) {
	endpoint := fmt.Sprintf("%s/v1/history?%s", p.baseURL, url.Values{
		"symbol": {symbol},
		"days":   {strconv.Itoa(days)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request for %s: %w", symbol, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", symbol, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			p.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("history for %s: %w", symbol, ratelimit.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("history for %s: unexpected status %d", symbol, resp.StatusCode)
	}

	var candles []Candle
	if err := json.NewDecoder(resp.Body).Decode(&candles); err != nil {
		return nil, fmt.Errorf("decode history for %s: %w", symbol, err)
	}

	return candles, nil
}
