package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optiondesk/src/database"
	"optiondesk/src/model"
)

// TradeRepository handles read/write operations for trades.
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository creates a new repository instance using the main
// read/write database.
func NewTradeRepository() *TradeRepository {
	return &TradeRepository{db: database.MainDB}
}

// WithDB allows overriding the underlying *gorm.DB instance. Useful for
// tests or when running inside a specific transaction.
func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// Create inserts a new trade. The given trade is updated with the generated
// ID and timestamps.
func (r *TradeRepository) Create(ctx context.Context, trade *model.Trade) error {
	err := r.db.WithContext(ctx).Create(trade).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "TradeRepository",
			"op":         "Create",
			"account_id": trade.AccountID,
			"symbol":     trade.Symbol,
		}).WithError(err).Error("Failed to create trade")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":     "TradeRepository",
		"op":       "Create",
		"trade_id": trade.ID,
		"symbol":   trade.Symbol,
		"side":     trade.Side,
		"stake":    trade.Stake,
	}).Info("Trade created")

	return nil
}

// FindByID fetches a single trade by its primary ID.
// Returns (nil, nil) if the trade is not found.
func (r *TradeRepository) FindByID(ctx context.Context, id uint) (*model.Trade, error) {
	var trade model.Trade

	err := r.db.WithContext(ctx).First(&trade, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch trade by ID")
		return nil, err
	}

	return &trade, nil
}

// FindExpiredActive returns all active trades whose expiry has passed.
func (r *TradeRepository) FindExpiredActive(ctx context.Context, now time.Time) ([]model.Trade, error) {
	var trades []model.Trade

	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", model.TradeStatusActive, now).
		Order("expires_at ASC").
		Find(&trades).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "TradeRepository",
			"op":   "FindExpiredActive",
		}).WithError(err).Error("Failed to fetch expired active trades")
		return nil, err
	}

	return trades, nil
}

// TradeSearchOptions filters the Search listing.
type TradeSearchOptions struct {
	AccountID uint
	Status    *string
	Limit     int
	Offset    int
}

// Search lists an account's trades newest first.
func (r *TradeRepository) Search(ctx context.Context, options TradeSearchOptions) ([]model.Trade, error) {
	query := r.db.WithContext(ctx).
		Where("account_id = ?", options.AccountID)

	if options.Status != nil {
		query = query.Where("status = ?", *options.Status)
	}

	query = query.Order("created_at DESC, id DESC")

	if options.Limit > 0 {
		query = query.Limit(options.Limit)
	}
	if options.Offset > 0 {
		query = query.Offset(options.Offset)
	}

	var trades []model.Trade
	if err := query.Find(&trades).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "TradeRepository",
			"op":         "Search",
			"account_id": options.AccountID,
		}).WithError(err).Error("Failed to search trades")
		return nil, err
	}

	return trades, nil
}

// Finish transitions a trade to finished and records its outcome, but only
// if the status is still active. The returned bool reports whether this call
// won the transition; false means another settlement pass already finished
// the trade and the caller must treat the whole unit as a no-op.
func (r *TradeRepository) Finish(
	ctx context.Context,
	tradeID uint,
	result string,
	exitPrice, pnl decimal.Decimal,
	settledAt time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("id = ? AND status = ?", tradeID, model.TradeStatusActive).
		Updates(map[string]interface{}{
			"status":     model.TradeStatusFinished,
			"result":     result,
			"exit_price": exitPrice,
			"pnl":        pnl,
			"settled_at": settledAt,
		})

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "Finish",
			"trade_id": tradeID,
		}).WithError(res.Error).Error("Failed to finish trade")
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}

// SetManualOutcome stores the administrator preset on an active trade that is
// still unexpired as of now. Returns false when the trade is already finished
// or expired.
func (r *TradeRepository) SetManualOutcome(ctx context.Context, tradeID uint, outcome string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("id = ? AND status = ? AND expires_at > ?", tradeID, model.TradeStatusActive, now).
		Update("manual_outcome", outcome)

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "SetManualOutcome",
			"trade_id": tradeID,
			"outcome":  outcome,
		}).WithError(res.Error).Error("Failed to set manual outcome")
		return false, res.Error
	}

	if res.RowsAffected == 1 {
		logger.WithFields(map[string]interface{}{
			"repo":     "TradeRepository",
			"op":       "SetManualOutcome",
			"trade_id": tradeID,
			"outcome":  outcome,
		}).Info("Manual outcome preset stored")
	}

	return res.RowsAffected == 1, nil
}
