package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"optiondesk/src/model"
)

type stubPresetter struct {
	trade      *model.Trade
	findErr    error
	ok         bool
	setErr     error
	gotID      uint
	gotOutcome string
}

func (s *stubPresetter) FindByID(ctx context.Context, id uint) (*model.Trade, error) {
	return s.trade, s.findErr
}

func (s *stubPresetter) SetManualOutcome(ctx context.Context, tradeID uint, outcome string, now time.Time) (bool, error) {
	s.gotID = tradeID
	s.gotOutcome = outcome
	return s.ok, s.setErr
}

func patchOutcome(t *testing.T, repo *stubPresetter, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Patch("/api/trades/{id}/outcome", SetManualOutcomeHandler(repo))

	req := httptest.NewRequest(http.MethodPatch, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSetManualOutcomeHandler(t *testing.T) {
	activeTrade := &model.Trade{ID: 42, Status: model.TradeStatusActive}

	t.Run("stores preset on active trade", func(t *testing.T) {
		repo := &stubPresetter{trade: activeTrade, ok: true}

		rec := patchOutcome(t, repo, "/api/trades/42/outcome", `{"outcome":"win"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if repo.gotID != 42 || repo.gotOutcome != model.TradeResultWin {
			t.Fatalf("unexpected preset call: id %d outcome %s", repo.gotID, repo.gotOutcome)
		}
	})

	t.Run("rejects invalid outcome value", func(t *testing.T) {
		rec := patchOutcome(t, &stubPresetter{trade: activeTrade}, "/api/trades/42/outcome", `{"outcome":"draw"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects invalid trade id", func(t *testing.T) {
		rec := patchOutcome(t, &stubPresetter{}, "/api/trades/abc/outcome", `{"outcome":"win"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns not found for missing trade", func(t *testing.T) {
		rec := patchOutcome(t, &stubPresetter{trade: nil}, "/api/trades/42/outcome", `{"outcome":"loss"}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("conflicts on finished or expired trade", func(t *testing.T) {
		repo := &stubPresetter{trade: activeTrade, ok: false}

		rec := patchOutcome(t, repo, "/api/trades/42/outcome", `{"outcome":"loss"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}
