package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"optiondesk/src/cache"
	"optiondesk/src/events"
	"optiondesk/src/ledger"
	"optiondesk/src/model"
	"optiondesk/src/outcome"
	"optiondesk/src/repository"
)

const settingsCacheKey = "global-trade-settings"

// PriceSource supplies the current market price at settlement time.
type PriceSource interface {
	GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// PassResult reports what one settlement pass accomplished.
type PassResult struct {
	SettledCount int    `json:"settled_count"`
	SettledIDs   []uint `json:"settled_ids"`
}

// Processor settles expired active trades. It holds no internal timer:
// callers invoke RunSettlementPass repeatedly and passes may overlap. The
// conditional status update (active -> finished) is the only concurrency
// gate; a pass that loses the race on a trade treats it as a successful
// no-op.
type Processor struct {
	db       *gorm.DB
	trades   *repository.TradeRepository
	settings *repository.SettingsRepository
	activity *repository.ActivityRepository
	ledger   *ledger.Ledger
	resolver *outcome.Resolver
	prices   PriceSource
	events   events.Publisher
	cache    *cache.Cache
	config   Config
	now      func() time.Time
}

func NewProcessor(db *gorm.DB, prices PriceSource, publisher events.Publisher, resolver *outcome.Resolver, config Config) *Processor {
	return &Processor{
		db:       db,
		trades:   (&repository.TradeRepository{}).WithDB(db),
		settings: (&repository.SettingsRepository{}).WithDB(db),
		activity: (&repository.ActivityRepository{}).WithDB(db),
		ledger:   ledger.New(db),
		resolver: resolver,
		prices:   prices,
		events:   publisher,
		cache:    cache.New(),
		config:   config,
		now:      time.Now,
	}
}

// RunSettlementPass finds expired active trades and settles each one in its
// own transaction. Safe to call repeatedly and concurrently.
func (p *Processor) RunSettlementPass(ctx context.Context) (*PassResult, error) {
	global, err := p.globalSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global trade settings: %w", err)
	}

	expired, err := p.trades.FindExpiredActive(ctx, p.now())
	if err != nil {
		return nil, fmt.Errorf("failed to query expired trades: %w", err)
	}

	result := &PassResult{SettledIDs: []uint{}}
	if len(expired) == 0 {
		return result, nil
	}

	logger.WithFields(map[string]interface{}{
		"expired": len(expired),
	}).Debug("Settlement pass starting")

	var mu sync.Mutex

	for start := 0; start < len(expired); start += p.config.BatchSize {
		end := start + p.config.BatchSize
		if end > len(expired) {
			end = len(expired)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, trade := range expired[start:end] {
			trade := trade
			g.Go(func() error {
				settled := p.settleOne(gctx, &trade, global)
				if settled {
					mu.Lock()
					result.SettledCount++
					result.SettledIDs = append(result.SettledIDs, trade.ID)
					mu.Unlock()
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return result, err
		}
	}

	if result.SettledCount > 0 {
		logger.WithFields(map[string]interface{}{
			"settled": result.SettledCount,
		}).Info("Settlement pass finished")
	}

	return result, nil
}

func (p *Processor) globalSettings(ctx context.Context) (*model.TradeSetting, error) {
	value, err := p.cache.Get(settingsCacheKey, p.config.SettingsTTL, func() (interface{}, error) {
		return p.settings.GetGlobal(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.(*model.TradeSetting), nil
}

// settleOne resolves and finishes a single trade. Every failure path is
// isolated: it logs and reports "not settled", leaving the trade active for
// the next pass. Returns true only when this invocation won the
// active -> finished transition and the ledger credit committed.
func (p *Processor) settleOne(ctx context.Context, trade *model.Trade, global *model.TradeSetting) (settled bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(map[string]interface{}{
				"trade_id": trade.ID,
				"panic":    fmt.Sprintf("%v", r),
			}).Error("Settlement of trade panicked")
			settled = false
		}
	}()

	userSetting, err := p.settings.GetForAccount(ctx, trade.AccountID)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"trade_id": trade.ID,
		}).WithError(err).Error("Failed to load user settings, trade left for retry")
		return false
	}

	resolution, err := p.resolver.Resolve(ctx, trade, userSetting, global, p.currentPrice)
	if err != nil {
		if errors.Is(err, outcome.ErrPriceUnavailable) {
			logger.WithFields(map[string]interface{}{
				"trade_id": trade.ID,
				"symbol":   trade.Symbol,
			}).Debug("Price unavailable, trade left for retry")
		} else {
			logger.WithFields(map[string]interface{}{
				"trade_id": trade.ID,
			}).WithError(err).Error("Outcome resolution failed, trade left for retry")
		}
		return false
	}

	settledAt := p.now()
	won := false

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		won, err = p.trades.WithDB(tx).Finish(ctx, trade.ID, resolution.Result, resolution.ExitPrice, resolution.Pnl, settledAt)
		if err != nil {
			return err
		}
		if !won {
			// Another pass already settled this trade; nothing to do.
			return nil
		}

		txLedger := p.ledger.WithDB(tx)
		if resolution.Result == model.TradeResultWin {
			_, err = txLedger.CreditWin(ctx, trade.AccountID, trade.Currency, trade.Stake, resolution.Pnl)
		} else {
			_, err = txLedger.CreditLoss(ctx, trade.AccountID, trade.Currency, trade.Stake, resolution.Pnl)
		}
		if err != nil {
			return err
		}

		return p.activity.WithDB(tx).Create(ctx, &model.ActivityLog{
			AccountID: trade.AccountID,
			TradeID:   &trade.ID,
			Kind:      "trade.settled",
			Message:   fmt.Sprintf("%s %s settled as %s", trade.Side, trade.Symbol, resolution.Result),
			Metadata: map[string]any{
				"exit_price": resolution.ExitPrice.String(),
				"pnl":        resolution.Pnl.String(),
			},
		})
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"trade_id": trade.ID,
		}).WithError(err).Error("Settlement transaction failed, trade left for retry")
		return false
	}

	if !won {
		return false
	}

	p.publishSettled(ctx, trade, resolution, settledAt)
	return true
}

func (p *Processor) currentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	priceCtx, cancel := context.WithTimeout(ctx, p.config.PriceTimeout)
	defer cancel()
	return p.prices.GetCurrentPrice(priceCtx, symbol)
}

func (p *Processor) publishSettled(ctx context.Context, trade *model.Trade, resolution *outcome.Resolution, settledAt time.Time) {
	stake := trade.Stake
	pnl := resolution.Pnl

	if err := p.events.Publish(ctx, events.Event{
		Type:      events.EventTradeSettled,
		AccountID: trade.AccountID,
		TradeID:   trade.ID,
		TradeRef:  trade.Ref,
		Symbol:    trade.Symbol,
		Currency:  trade.Currency,
		Stake:     &stake,
		Pnl:       &pnl,
		Status:    model.TradeStatusFinished,
		Result:    resolution.Result,
		At:        settledAt,
	}); err != nil {
		logger.WithError(err).Warn("Failed to publish trade.settled event")
	}

	balance, err := p.ledger.GetOrCreate(ctx, trade.AccountID, trade.Currency)
	if err != nil {
		return
	}
	total := balance.Total
	if err := p.events.Publish(ctx, events.Event{
		Type:      events.EventBalanceUpdated,
		AccountID: trade.AccountID,
		Currency:  trade.Currency,
		Total:     &total,
		At:        settledAt,
	}); err != nil {
		logger.WithError(err).Warn("Failed to publish balance.updated event")
	}
}
