package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"optiondesk/src/auth"
	"optiondesk/src/intake"
	"optiondesk/src/model"
	"optiondesk/src/repository"
)

type stubCreator struct {
	trade *model.Trade
	err   error
	got   intake.CreateTradeRequest
}

func (s *stubCreator) CreateTrade(ctx context.Context, req intake.CreateTradeRequest) (*model.Trade, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return s.trade, nil
}

type stubSearcher struct {
	trades []model.Trade
	err    error
	got    repository.TradeSearchOptions
}

func (s *stubSearcher) Search(ctx context.Context, options repository.TradeSearchOptions) ([]model.Trade, error) {
	s.got = options
	return s.trades, s.err
}

func requestWithAccount(r *http.Request, account *model.Account) *http.Request {
	return r.WithContext(auth.WithAccount(r.Context(), account))
}

func TestCreateTradeHandler(t *testing.T) {
	body := `{"symbol":"BTCUSDT","side":"long","stake":"100","duration":"5m","profit_percent":"80"}`

	t.Run("creates trade for authenticated account", func(t *testing.T) {
		creator := &stubCreator{trade: &model.Trade{ID: 42, Symbol: "BTCUSDT", Status: model.TradeStatusActive}}
		handler := CreateTradeHandler(creator)

		req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(body))
		req = requestWithAccount(req, &model.Account{ID: 7})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if creator.got.AccountID != 7 {
			t.Fatalf("expected account 7 on request, got %d", creator.got.AccountID)
		}
		if !creator.got.Stake.Equal(decimal.RequireFromString("100")) {
			t.Fatalf("unexpected stake %s", creator.got.Stake)
		}

		var returned model.Trade
		if err := json.Unmarshal(rec.Body.Bytes(), &returned); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if returned.ID != 42 {
			t.Fatalf("expected trade id 42, got %d", returned.ID)
		}
	})

	t.Run("rejects unauthenticated request", func(t *testing.T) {
		handler := CreateTradeHandler(&stubCreator{})

		req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(body))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown payload fields", func(t *testing.T) {
		handler := CreateTradeHandler(&stubCreator{})

		req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(`{"bogus":true}`))
		req = requestWithAccount(req, &model.Account{ID: 7})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps intake errors to statuses", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{intake.ErrInvalidSide, http.StatusBadRequest},
			{intake.ErrInvalidDuration, http.StatusBadRequest},
			{intake.ErrStakeBelowMinimum, http.StatusBadRequest},
			{intake.ErrAssetDisabled, http.StatusBadRequest},
			{intake.ErrUnknownAsset, http.StatusNotFound},
			{intake.ErrQuotaExhausted, http.StatusTooManyRequests},
			{intake.ErrInsufficientBalance, http.StatusUnprocessableEntity},
			{intake.ErrPriceUnavailable, http.StatusServiceUnavailable},
			{errors.New("db exploded"), http.StatusInternalServerError},
		}

		for _, tt := range tests {
			handler := CreateTradeHandler(&stubCreator{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/trades", strings.NewReader(body))
			req = requestWithAccount(req, &model.Account{ID: 7})
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("error %v: expected %d, got %d", tt.err, tt.want, rec.Code)
			}
		}
	})
}

func TestSearchTradesHandler(t *testing.T) {
	t.Run("lists trades with status filter and pagination", func(t *testing.T) {
		searcher := &stubSearcher{trades: []model.Trade{{ID: 2}, {ID: 1}}}
		handler := SearchTradesHandler(searcher)

		req := httptest.NewRequest(http.MethodGet, "/api/trades?status=active&page=2&pageSize=10", nil)
		req = requestWithAccount(req, &model.Account{ID: 7})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if searcher.got.AccountID != 7 {
			t.Fatalf("expected account 7, got %d", searcher.got.AccountID)
		}
		if searcher.got.Status == nil || *searcher.got.Status != model.TradeStatusActive {
			t.Fatalf("expected active status filter, got %v", searcher.got.Status)
		}
		if searcher.got.Limit != 10 || searcher.got.Offset != 10 {
			t.Fatalf("unexpected pagination: limit %d offset %d", searcher.got.Limit, searcher.got.Offset)
		}

		var returned []model.Trade
		if err := json.Unmarshal(rec.Body.Bytes(), &returned); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(returned) != 2 {
			t.Fatalf("expected 2 trades, got %d", len(returned))
		}
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		handler := SearchTradesHandler(&stubSearcher{})

		req := httptest.NewRequest(http.MethodGet, "/api/trades?status=open", nil)
		req = requestWithAccount(req, &model.Account{ID: 7})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects unauthenticated request", func(t *testing.T) {
		handler := SearchTradesHandler(&stubSearcher{})

		req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
