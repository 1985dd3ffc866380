package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CoinGecko reads prices from the public simple/price endpoint.
type CoinGecko struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewCoinGecko creates an oracle for baseURL, e.g. https://api.coingecko.com/api.
func NewCoinGecko(baseURL string, logger *zap.Logger) *CoinGecko {
	return &CoinGecko{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// GetPrice returns the USD price of the CoinGecko coin id.
func (c *CoinGecko) GetPrice(ctx context.Context, id string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", "usd")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v3/simple/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("coingecko read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decimal.Zero, fmt.Errorf("CoinGecko API error: %d", resp.StatusCode)
	}

	// decimal.Decimal unmarshals JSON numbers without going through float64
	var data map[string]map[string]*decimal.Decimal
	if err := json.Unmarshal(body, &data); err != nil {
		return decimal.Zero, fmt.Errorf("coingecko decode: %w", err)
	}
	usd := data[id]["usd"]
	if usd == nil {
		return decimal.Zero, fmt.Errorf("%w: coingecko has no usd price for %q", ErrPriceNotFound, id)
	}

	c.logger.Info("CoinGecko price", zap.String("id", id), zap.String("usd", usd.String()))
	return *usd, nil
}
