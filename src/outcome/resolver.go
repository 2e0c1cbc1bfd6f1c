package outcome

import (
	"context"
	"errors"
	"math/rand"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"optiondesk/src/model"
)

// ErrPriceUnavailable signals that market-data resolution was required but no
// price could be obtained. The trade stays active and is retried on the next
// settlement pass.
var ErrPriceUnavailable = errors.New("market price unavailable, cannot settle now")

// PriceFunc supplies the current market price for a symbol.
type PriceFunc func(ctx context.Context, symbol string) (decimal.Decimal, error)

// Resolution is the resolver's verdict for one expired trade.
type Resolution struct {
	Result    string
	ExitPrice decimal.Decimal
	Pnl       decimal.Decimal
}

var (
	hundred        = decimal.NewFromInt(100)
	defaultLossPct = decimal.RequireFromString("0.002")
)

// Resolver decides win/loss for expired trades. The default win percent used
// for synthesized exit prices is sampled from [1,5]; the sampler is injected
// so tests stay deterministic.
type Resolver struct {
	winPctFn func() decimal.Decimal
}

func NewResolver() *Resolver {
	return &Resolver{winPctFn: randomWinPercent}
}

// NewResolverWithWinPercent fixes the default win percent sampler.
func NewResolverWithWinPercent(fn func() decimal.Decimal) *Resolver {
	return &Resolver{winPctFn: fn}
}

func randomWinPercent() decimal.Decimal {
	// uniform in [1,5]
	return decimal.NewFromFloat(1 + rand.Float64()*4)
}

// Resolve walks the policy layers in precedence order and returns the
// outcome, or ErrPriceUnavailable when the market-data branch could not get a
// price. It is pure apart from the injected price source and win-percent
// sampler: identical inputs always yield an identical verdict.
//
// Precedence: manual preset > global win/loss/automatic > global custom
// (magnitude only) > per-user setting > market data. A market price exactly
// equal to the entry price is always a loss.
func (r *Resolver) Resolve(
	ctx context.Context,
	trade *model.Trade,
	userSetting *model.UserTradeSetting,
	globalSetting *model.TradeSetting,
	price PriceFunc,
) (*Resolution, error) {

	if trade.ManualOutcome != nil {
		result := *trade.ManualOutcome
		pct := r.forcedPercent(result, globalSetting.WinPercent, globalSetting.LossPercent)
		return r.forced(trade, result, pct), nil
	}

	switch globalSetting.Mode {
	case model.TradeModeWin:
		pct := r.forcedPercent(model.TradeResultWin, globalSetting.WinPercent, globalSetting.LossPercent)
		return r.forced(trade, model.TradeResultWin, pct), nil

	case model.TradeModeLoss:
		pct := r.forcedPercent(model.TradeResultLoss, globalSetting.WinPercent, globalSetting.LossPercent)
		return r.forced(trade, model.TradeResultLoss, pct), nil

	case model.TradeModeAutomatic:
		return r.byMarket(ctx, trade, r.applicableLossPercent(userSetting, globalSetting), price)

	case model.TradeModeCustom:
		// Global custom supplies the percentages but the per-user mode still
		// decides the result. A per-user custom mode has no outcome branch of
		// its own and falls back to market data.
		switch userMode(userSetting) {
		case model.TradeModeWin:
			pct := r.forcedPercent(model.TradeResultWin, globalSetting.WinPercent, globalSetting.LossPercent)
			return r.forced(trade, model.TradeResultWin, pct), nil
		case model.TradeModeLoss:
			pct := r.forcedPercent(model.TradeResultLoss, globalSetting.WinPercent, globalSetting.LossPercent)
			return r.forced(trade, model.TradeResultLoss, pct), nil
		default:
			return r.byMarket(ctx, trade, r.applicableLossPercent(userSetting, globalSetting), price)
		}
	}

	// Global mode disabled: the per-user setting governs entirely.
	switch userMode(userSetting) {
	case model.TradeModeWin:
		pct := r.forcedPercent(model.TradeResultWin, userSetting.WinPercent, userSetting.LossPercent)
		return r.forced(trade, model.TradeResultWin, pct), nil
	case model.TradeModeLoss:
		pct := r.forcedPercent(model.TradeResultLoss, userSetting.WinPercent, userSetting.LossPercent)
		return r.forced(trade, model.TradeResultLoss, pct), nil
	}

	return r.byMarket(ctx, trade, r.applicableLossPercent(userSetting, globalSetting), price)
}

func userMode(s *model.UserTradeSetting) string {
	if s == nil {
		return model.TradeModeAutomatic
	}
	return s.Mode
}

// forcedPercent picks the outcome-movement percent for a forced result:
// configured win/loss percent when present, otherwise the sampled default win
// percent or the fixed default loss percent.
func (r *Resolver) forcedPercent(result string, winPct, lossPct *decimal.Decimal) decimal.Decimal {
	if result == model.TradeResultWin {
		if winPct != nil && winPct.IsPositive() {
			return *winPct
		}
		return r.winPctFn()
	}
	if lossPct != nil && lossPct.IsPositive() {
		return *lossPct
	}
	return defaultLossPct
}

// applicableLossPercent is the loss percent used to nudge a tied price away
// from entry: global custom percentages take precedence, then the user's
// configured percent, then the default.
func (r *Resolver) applicableLossPercent(userSetting *model.UserTradeSetting, globalSetting *model.TradeSetting) decimal.Decimal {
	if globalSetting.Mode == model.TradeModeCustom && globalSetting.LossPercent != nil && globalSetting.LossPercent.IsPositive() {
		return *globalSetting.LossPercent
	}
	if userSetting != nil && userSetting.LossPercent != nil && userSetting.LossPercent.IsPositive() {
		return *userSetting.LossPercent
	}
	return defaultLossPct
}

// forced synthesizes an exit price by moving the entry price in the
// favorable direction for a win, unfavorable for a loss. A long position's
// favorable direction is up, a short position's is down.
func (r *Resolver) forced(trade *model.Trade, result string, pct decimal.Decimal) *Resolution {
	up := result == model.TradeResultWin
	if trade.Side == model.TradeSideShort {
		up = !up
	}
	return &Resolution{
		Result:    result,
		ExitPrice: movePrice(trade.EntryPrice, pct, up),
		Pnl:       pnlFor(trade, result),
	}
}

func (r *Resolver) byMarket(ctx context.Context, trade *model.Trade, lossPct decimal.Decimal, price PriceFunc) (*Resolution, error) {
	current, err := price(ctx, trade.Symbol)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"trade_id": trade.ID,
			"symbol":   trade.Symbol,
		}).WithError(err).Warn("market price unavailable for settlement")
		return nil, ErrPriceUnavailable
	}

	cmp := current.Cmp(trade.EntryPrice)
	if cmp == 0 {
		// Ties are never wins: move the exit price away from entry in the
		// adverse direction.
		adverseUp := trade.Side == model.TradeSideShort
		return &Resolution{
			Result:    model.TradeResultLoss,
			ExitPrice: movePrice(trade.EntryPrice, lossPct, adverseUp),
			Pnl:       pnlFor(trade, model.TradeResultLoss),
		}, nil
	}

	won := cmp > 0
	if trade.Side == model.TradeSideShort {
		won = !won
	}

	result := model.TradeResultLoss
	if won {
		result = model.TradeResultWin
	}

	return &Resolution{
		Result:    result,
		ExitPrice: current,
		Pnl:       pnlFor(trade, result),
	}, nil
}

func movePrice(entry, pct decimal.Decimal, up bool) decimal.Decimal {
	delta := entry.Mul(pct).Div(hundred)
	if up {
		return entry.Add(delta)
	}
	return entry.Sub(delta)
}

// pnlFor computes the signed money outcome from the contractual profit
// percent fixed on the trade at open time. The outcome-movement percent only
// shapes the displayed exit price; it never changes how much money moves.
func pnlFor(trade *model.Trade, result string) decimal.Decimal {
	magnitude := trade.Stake.Mul(trade.ProfitPercent).Div(hundred)
	if result == model.TradeResultWin {
		return magnitude
	}
	return magnitude.Neg()
}
