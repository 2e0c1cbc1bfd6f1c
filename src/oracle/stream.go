package oracle

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const streamReconnectDelay = 3 * time.Second

type streamQuote struct {
	price      decimal.Decimal
	observedAt time.Time
}

// Stream maintains the latest ticker price per subscribed symbol over a
// combined miniTicker websocket feed. It only ever serves as a freshness
// optimization: consumers check the quote age and fall back to REST.
type Stream struct {
	url     string
	symbols []string
	now     func() time.Time

	mu     sync.RWMutex
	quotes map[string]streamQuote
}

func NewStream(cfg Config, symbols []string) *Stream {
	return &Stream{
		url:     cfg.StreamURL,
		symbols: symbols,
		now:     time.Now,
		quotes:  make(map[string]streamQuote),
	}
}

// Quote returns the last observed price and its timestamp for symbol.
func (s *Stream) Quote(symbol string) (decimal.Decimal, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[strings.ToUpper(symbol)]
	return q.price, q.observedAt, ok
}

// Run connects and consumes ticker messages until the context is cancelled,
// reconnecting with a fixed delay on any failure.
func (s *Stream) Run(ctx context.Context) {
	if len(s.symbols) == 0 {
		logger.Warn("Price stream started without symbols, nothing to do")
		return
	}

	endpoint := s.endpoint()
	for {
		if ctx.Err() != nil {
			return
		}

		if err := s.consume(ctx, endpoint); err != nil && ctx.Err() == nil {
			logger.WithError(err).Warn("Price stream disconnected, will reconnect")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(streamReconnectDelay):
		}
	}
}

func (s *Stream) endpoint() string {
	streams := make([]string, 0, len(s.symbols))
	for _, symbol := range s.symbols {
		streams = append(streams, strings.ToLower(symbol)+"@miniTicker")
	}
	return s.url + "?streams=" + strings.Join(streams, "/")
}

type combinedStreamMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Close  string `json:"c"`
	} `json:"data"`
}

func (s *Stream) consume(ctx context.Context, endpoint string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	logger.WithFields(map[string]interface{}{
		"symbols": s.symbols,
	}).Info("Price stream connected")

	// The watcher must not outlive this call: a dropped connection returns
	// below while ctx stays live across the reconnect loop.
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg combinedStreamMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			logger.WithError(err).Debug("Skipping unparsable stream message")
			continue
		}
		if msg.Data.Symbol == "" {
			continue
		}

		price, err := decimal.NewFromString(msg.Data.Close)
		if err != nil || !price.IsPositive() {
			continue
		}

		s.update(msg.Data.Symbol, price, s.now())
	}
}

func (s *Stream) update(symbol string, price decimal.Decimal, observedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[strings.ToUpper(symbol)] = streamQuote{price: price, observedAt: observedAt}
}
