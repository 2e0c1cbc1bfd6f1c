package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// ErrPriceUnavailable means no validated fresh price could be produced. The
// caller must fail closed: intake rejects the trade, settlement retries on a
// later pass. There is no fallback to a stale or default price.
var ErrPriceUnavailable = errors.New("validated price unavailable")

const (
	SourceStream = "stream"
	SourceREST   = "rest"
)

// PriceQuote is one validated observation of an asset price.
type PriceQuote struct {
	Symbol     string
	Price      decimal.Decimal
	Source     string
	ObservedAt time.Time
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// Client is the price oracle adapter. It prefers the live websocket stream
// when it holds a quote younger than MaxPriceAge and falls back to the REST
// ticker endpoint; both paths validate the price before returning it.
type Client struct {
	http        *resty.Client
	stream      *Stream
	maxPriceAge time.Duration
	now         func() time.Time
}

func NewClient(cfg Config) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)

	return &Client{
		http:        httpClient,
		maxPriceAge: cfg.MaxPriceAge,
		now:         time.Now,
	}
}

// WithStream attaches a running ticker stream as the preferred price source.
func (c *Client) WithStream(s *Stream) *Client {
	c.stream = s
	return c
}

// GetValidatedPrice returns a fresh validated quote for symbol or fails.
func (c *Client) GetValidatedPrice(ctx context.Context, symbol string) (*PriceQuote, error) {
	if c.stream != nil {
		if price, observedAt, ok := c.stream.Quote(symbol); ok {
			age := c.now().Sub(observedAt)
			if age <= c.maxPriceAge && price.IsPositive() {
				return &PriceQuote{
					Symbol:     symbol,
					Price:      price,
					Source:     SourceStream,
					ObservedAt: observedAt,
				}, nil
			}
			logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"age":    age.String(),
			}).Debug("Stream quote too old, falling back to REST")
		}
	}

	return c.fetchREST(ctx, symbol)
}

// GetCurrentPrice returns only the price, for settlement-time resolution.
func (c *Client) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	quote, err := c.GetValidatedPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return quote.Price, nil
}

func (c *Client) fetchREST(ctx context.Context, symbol string) (*PriceQuote, error) {
	var body tickerPriceResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&body).
		Get("/api/v3/ticker/price")

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"symbol": symbol,
		}).WithError(err).Warn("Price oracle request failed")
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	if resp.StatusCode() != 200 {
		logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"status": resp.StatusCode(),
		}).Warn("Price oracle returned non-200")
		return nil, fmt.Errorf("%w: status %d", ErrPriceUnavailable, resp.StatusCode())
	}

	price, err := decimal.NewFromString(body.Price)
	if err != nil || !price.IsPositive() {
		logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"price":  body.Price,
		}).Warn("Price oracle returned invalid price")
		return nil, fmt.Errorf("%w: invalid price %q", ErrPriceUnavailable, body.Price)
	}

	return &PriceQuote{
		Symbol:     symbol,
		Price:      price,
		Source:     SourceREST,
		ObservedAt: c.now(),
	}, nil
}
