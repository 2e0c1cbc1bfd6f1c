package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optiondesk/src/events"
	"optiondesk/src/ledger"
	"optiondesk/src/model"
	"optiondesk/src/oracle"
	"optiondesk/src/repository"
	"optiondesk/src/utils"
)

var (
	ErrUnknownAsset       = errors.New("unknown asset")
	ErrAssetDisabled      = errors.New("asset is disabled for trading")
	ErrInvalidSide        = errors.New("side must be long or short")
	ErrInvalidDuration    = errors.New("invalid duration token")
	ErrInvalidProfitLevel = errors.New("no profit level matches the given duration and percent")
	ErrStakeBelowMinimum  = errors.New("stake below the configured minimum")
	ErrQuotaExhausted     = errors.New("trade quota exhausted")
	ErrPriceUnavailable   = errors.New("entry price unavailable")

	// ErrInsufficientBalance mirrors the ledger sentinel so callers only
	// import this package.
	ErrInsufficientBalance = ledger.ErrInsufficientBalance
)

// PriceSource supplies a validated fresh entry price. There is no fallback:
// when it fails, intake fails.
type PriceSource interface {
	GetValidatedPrice(ctx context.Context, symbol string) (*oracle.PriceQuote, error)
}

// CreateTradeRequest is the validated-by-us input for opening a position.
type CreateTradeRequest struct {
	AccountID     uint
	Symbol        string
	Side          string
	Stake         decimal.Decimal
	Duration      string
	ProfitPercent decimal.Decimal
	Currency      string
}

// Service validates and atomically creates trades: the trade insert, the
// ledger debit and the quota decrement commit or roll back as one unit.
type Service struct {
	db       *gorm.DB
	assets   *repository.AssetRepository
	accounts *repository.AccountRepository
	trades   *repository.TradeRepository
	activity *repository.ActivityRepository
	ledger   *ledger.Ledger
	prices   PriceSource
	events   events.Publisher
	now      func() time.Time
}

func NewService(db *gorm.DB, prices PriceSource, publisher events.Publisher) *Service {
	return &Service{
		db:       db,
		assets:   (&repository.AssetRepository{}).WithDB(db),
		accounts: (&repository.AccountRepository{}).WithDB(db),
		trades:   (&repository.TradeRepository{}).WithDB(db),
		activity: (&repository.ActivityRepository{}).WithDB(db),
		ledger:   ledger.New(db),
		prices:   prices,
		events:   publisher,
		now:      time.Now,
	}
}

// CreateTrade runs the full intake contract. Validation and resource errors
// return before any side effect; the oracle is only consulted once the
// request is otherwise acceptable.
func (s *Service) CreateTrade(ctx context.Context, req CreateTradeRequest) (*model.Trade, error) {
	if req.Side != model.TradeSideLong && req.Side != model.TradeSideShort {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidSide, req.Side)
	}
	if !req.Stake.IsPositive() {
		return nil, fmt.Errorf("%w: stake must be positive", ErrStakeBelowMinimum)
	}
	if req.Currency == "" {
		req.Currency = "USDT"
	}

	duration, err := utils.ParseDurationToken(req.Duration)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDuration, req.Duration)
	}

	asset, err := s.assets.FindBySymbol(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAsset, req.Symbol)
	}
	if !asset.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrAssetDisabled, asset.Symbol)
	}

	level, err := s.assets.FindProfitLevel(ctx, req.Duration, req.ProfitPercent)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, fmt.Errorf("%w: duration %s percent %s", ErrInvalidProfitLevel, req.Duration, req.ProfitPercent)
	}
	if req.Stake.LessThan(level.MinStake) {
		return nil, fmt.Errorf("%w: minimum stake for %s is %s", ErrStakeBelowMinimum, req.Duration, level.MinStake)
	}

	quote, err := s.prices.GetValidatedPrice(ctx, req.Symbol)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"account_id": req.AccountID,
			"symbol":     req.Symbol,
		}).WithError(err).Warn("Intake rejected, no validated entry price")
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	openedAt := s.now()
	trade := &model.Trade{
		Ref:           uuid.NewString(),
		AccountID:     req.AccountID,
		Symbol:        asset.Symbol,
		Side:          req.Side,
		Currency:      req.Currency,
		Stake:         req.Stake,
		Duration:      req.Duration,
		EntryPrice:    quote.Price,
		ProfitPercent: level.ProfitPercent,
		ExpiresAt:     openedAt.Add(duration),
		Status:        model.TradeStatusActive,
	}

	var balance *model.Balance

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.accounts.WithDB(tx).DecrementTradeQuota(ctx, req.AccountID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrQuotaExhausted
		}

		balance, err = s.ledger.WithDB(tx).Debit(ctx, req.AccountID, req.Currency, req.Stake)
		if err != nil {
			return err
		}

		return s.trades.WithDB(tx).Create(ctx, trade)
	})
	if err != nil {
		return nil, err
	}

	s.afterCreate(ctx, trade, balance, quote)

	return trade, nil
}

// afterCreate emits the post-commit side effects. They are best-effort and
// never fail the already-committed trade.
func (s *Service) afterCreate(ctx context.Context, trade *model.Trade, balance *model.Balance, quote *oracle.PriceQuote) {
	entry := &model.ActivityLog{
		AccountID: trade.AccountID,
		TradeID:   &trade.ID,
		Kind:      "trade.created",
		Message:   fmt.Sprintf("opened %s %s for %s %s", trade.Side, trade.Symbol, trade.Stake, trade.Currency),
		Metadata: map[string]any{
			"entry_price":  trade.EntryPrice.String(),
			"price_source": quote.Source,
			"expires_at":   trade.ExpiresAt,
		},
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		logger.WithError(err).Warn("Failed to write trade.created activity entry")
	}

	stake := trade.Stake
	if err := s.events.Publish(ctx, events.Event{
		Type:      events.EventTradeCreated,
		AccountID: trade.AccountID,
		TradeID:   trade.ID,
		TradeRef:  trade.Ref,
		Symbol:    trade.Symbol,
		Currency:  trade.Currency,
		Stake:     &stake,
		Status:    trade.Status,
	}); err != nil {
		logger.WithError(err).Warn("Failed to publish trade.created event")
	}

	total := balance.Total
	if err := s.events.Publish(ctx, events.Event{
		Type:      events.EventBalanceUpdated,
		AccountID: trade.AccountID,
		Currency:  balance.Currency,
		Total:     &total,
	}); err != nil {
		logger.WithError(err).Warn("Failed to publish balance.updated event")
	}
}
