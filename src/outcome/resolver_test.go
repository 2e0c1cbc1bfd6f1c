package outcome

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"optiondesk/src/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}

func fixedResolver(winPct string) *Resolver {
	return NewResolverWithWinPercent(func() decimal.Decimal {
		return decimal.RequireFromString(winPct)
	})
}

func testTrade(side, entry string) *model.Trade {
	return &model.Trade{
		ID:            1,
		Symbol:        "BTCUSDT",
		Side:          side,
		Stake:         dec("100"),
		EntryPrice:    dec(entry),
		ProfitPercent: dec("80"),
		ExpiresAt:     time.Now().Add(-time.Second),
		Status:        model.TradeStatusActive,
	}
}

func staticPrice(p string) PriceFunc {
	return func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		return dec(p), nil
	}
}

func noPrice(t *testing.T) PriceFunc {
	return func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		t.Fatalf("price oracle should not be consulted")
		return decimal.Zero, nil
	}
}

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		trade      *model.Trade
		user       *model.UserTradeSetting
		global     *model.TradeSetting
		price      PriceFunc
		wantResult string
		wantExit   string
		wantPnl    string
	}{
		{
			name:       "global win forces result with global win percent (scenario A)",
			trade:      testTrade(model.TradeSideLong, "50000"),
			global:     &model.TradeSetting{Mode: model.TradeModeWin, WinPercent: decPtr("2.5")},
			wantResult: model.TradeResultWin,
			wantExit:   "51250",
			wantPnl:    "80",
		},
		{
			name:       "per-user loss under disabled global (scenario B)",
			trade:      testTrade(model.TradeSideShort, "100"),
			user:       &model.UserTradeSetting{Mode: model.TradeModeLoss, LossPercent: decPtr("0.002")},
			global:     &model.TradeSetting{Mode: model.TradeModeDisabled},
			wantResult: model.TradeResultLoss,
			wantExit:   "100.002",
			wantPnl:    "-80",
		},
		{
			name:       "manual preset beats global loss",
			trade:      func() *model.Trade { tr := testTrade(model.TradeSideLong, "1000"); tr.ManualOutcome = strPtr("win"); return tr }(),
			global:     &model.TradeSetting{Mode: model.TradeModeLoss, WinPercent: decPtr("4"), LossPercent: decPtr("1")},
			wantResult: model.TradeResultWin,
			wantExit:   "1040",
			wantPnl:    "80",
		},
		{
			name:       "manual preset loss moves short favorable inverse",
			trade:      func() *model.Trade { tr := testTrade(model.TradeSideShort, "1000"); tr.ManualOutcome = strPtr("loss"); return tr }(),
			global:     &model.TradeSetting{Mode: model.TradeModeDisabled, LossPercent: decPtr("2")},
			wantResult: model.TradeResultLoss,
			wantExit:   "1020",
			wantPnl:    "-80",
		},
		{
			name:       "global win without configured percent uses sampled default",
			trade:      testTrade(model.TradeSideLong, "200"),
			global:     &model.TradeSetting{Mode: model.TradeModeWin},
			wantResult: model.TradeResultWin,
			wantExit:   "206", // fixed sampler returns 3
			wantPnl:    "80",
		},
		{
			name:       "global loss beats per-user win",
			trade:      testTrade(model.TradeSideLong, "500"),
			user:       &model.UserTradeSetting{Mode: model.TradeModeWin, WinPercent: decPtr("10")},
			global:     &model.TradeSetting{Mode: model.TradeModeLoss, LossPercent: decPtr("1")},
			wantResult: model.TradeResultLoss,
			wantExit:   "495",
			wantPnl:    "-80",
		},
		{
			name:       "global automatic overrides per-user win with market data",
			trade:      testTrade(model.TradeSideLong, "100"),
			user:       &model.UserTradeSetting{Mode: model.TradeModeWin, WinPercent: decPtr("10")},
			global:     &model.TradeSetting{Mode: model.TradeModeAutomatic},
			price:      staticPrice("99"),
			wantResult: model.TradeResultLoss,
			wantExit:   "99",
			wantPnl:    "-80",
		},
		{
			name:       "global custom keeps per-user win but uses global percent",
			trade:      testTrade(model.TradeSideLong, "100"),
			user:       &model.UserTradeSetting{Mode: model.TradeModeWin, WinPercent: decPtr("10")},
			global:     &model.TradeSetting{Mode: model.TradeModeCustom, WinPercent: decPtr("2"), LossPercent: decPtr("1")},
			wantResult: model.TradeResultWin,
			wantExit:   "102",
			wantPnl:    "80",
		},
		{
			name:       "global custom with per-user custom falls back to market data",
			trade:      testTrade(model.TradeSideShort, "100"),
			user:       &model.UserTradeSetting{Mode: model.TradeModeCustom, WinPercent: decPtr("9"), LossPercent: decPtr("9")},
			global:     &model.TradeSetting{Mode: model.TradeModeCustom, WinPercent: decPtr("2"), LossPercent: decPtr("1")},
			price:      staticPrice("98"),
			wantResult: model.TradeResultWin,
			wantExit:   "98",
			wantPnl:    "80",
		},
		{
			name:       "per-user win with configured percent",
			trade:      testTrade(model.TradeSideShort, "100"),
			user:       &model.UserTradeSetting{Mode: model.TradeModeWin, WinPercent: decPtr("5")},
			global:     &model.TradeSetting{Mode: model.TradeModeDisabled},
			wantResult: model.TradeResultWin,
			wantExit:   "95", // short favorable direction is down
			wantPnl:    "80",
		},
		{
			name:       "no settings at all resolves by market",
			trade:      testTrade(model.TradeSideLong, "100"),
			global:     &model.TradeSetting{Mode: model.TradeModeDisabled},
			price:      staticPrice("100.5"),
			wantResult: model.TradeResultWin,
			wantExit:   "100.5",
			wantPnl:    "80",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := fixedResolver("3")
			price := tt.price
			if price == nil {
				price = noPrice(t)
			}

			res, err := r.Resolve(context.Background(), tt.trade, tt.user, tt.global, price)
			if err != nil {
				t.Fatalf("unexpected resolve error: %v", err)
			}

			if res.Result != tt.wantResult {
				t.Fatalf("expected result %s, got %s", tt.wantResult, res.Result)
			}
			if !res.ExitPrice.Equal(dec(tt.wantExit)) {
				t.Fatalf("expected exit price %s, got %s", tt.wantExit, res.ExitPrice)
			}
			if !res.Pnl.Equal(dec(tt.wantPnl)) {
				t.Fatalf("expected pnl %s, got %s", tt.wantPnl, res.Pnl)
			}
		})
	}
}

func TestResolveMarketTieIsAlwaysLoss(t *testing.T) {
	tests := []struct {
		name     string
		side     string
		lossPct  *decimal.Decimal
		wantExit string
	}{
		{name: "long tie nudged down by default percent", side: model.TradeSideLong, wantExit: "99.998"},
		{name: "short tie nudged up by default percent", side: model.TradeSideShort, wantExit: "100.002"},
		{name: "long tie nudged down by user percent", side: model.TradeSideLong, lossPct: decPtr("1"), wantExit: "99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			trade := testTrade(tt.side, "100")
			user := &model.UserTradeSetting{Mode: model.TradeModeAutomatic, LossPercent: tt.lossPct}
			global := &model.TradeSetting{Mode: model.TradeModeDisabled}

			res, err := r.Resolve(context.Background(), trade, user, global, staticPrice("100"))
			if err != nil {
				t.Fatalf("unexpected resolve error: %v", err)
			}

			if res.Result != model.TradeResultLoss {
				t.Fatalf("tie must resolve to loss, got %s", res.Result)
			}
			if !res.ExitPrice.Equal(dec(tt.wantExit)) {
				t.Fatalf("expected exit price %s, got %s", tt.wantExit, res.ExitPrice)
			}
		})
	}
}

func TestResolvePriceUnavailable(t *testing.T) {
	r := NewResolver()
	trade := testTrade(model.TradeSideLong, "100")
	global := &model.TradeSetting{Mode: model.TradeModeAutomatic}

	failing := func(ctx context.Context, symbol string) (decimal.Decimal, error) {
		return decimal.Zero, errors.New("oracle down")
	}

	_, err := r.Resolve(context.Background(), trade, nil, global, failing)
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	trade := testTrade(model.TradeSideLong, "12345.6789")
	global := &model.TradeSetting{Mode: model.TradeModeWin, WinPercent: decPtr("3.3")}

	var first *Resolution
	for i := 0; i < 50; i++ {
		r := fixedResolver("2")
		res, err := r.Resolve(context.Background(), trade, nil, global, noPrice(t))
		if err != nil {
			t.Fatalf("unexpected resolve error: %v", err)
		}
		if first == nil {
			first = res
			continue
		}
		if res.Result != first.Result || !res.ExitPrice.Equal(first.ExitPrice) || !res.Pnl.Equal(first.Pnl) {
			t.Fatalf("resolution not deterministic: %+v vs %+v", res, first)
		}
	}
}

func TestRandomDefaultWinPercentStaysInRange(t *testing.T) {
	one := decimal.NewFromInt(1)
	five := decimal.NewFromInt(5)

	for i := 0; i < 200; i++ {
		pct := randomWinPercent()
		if pct.LessThan(one) || pct.GreaterThan(five) {
			t.Fatalf("default win percent %s outside [1,5]", pct)
		}
	}
}
