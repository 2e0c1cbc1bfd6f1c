package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeSideLong  = "long"
	TradeSideShort = "short"

	TradeStatusActive   = "active"
	TradeStatusFinished = "finished"

	TradeResultWin  = "win"
	TradeResultLoss = "loss"
)

// Trade represents one time-boxed directional position with a fixed stake.
// Status is the only field mutated concurrently: active -> finished, set by
// the settlement pass through a conditional update. Every other field is
// written once at creation or once at settlement.
type Trade struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Ref       string `gorm:"size:36;uniqueIndex" json:"ref"`
	AccountID uint   `gorm:"index" json:"account_id"`

	Symbol        string          `gorm:"size:20;not null" json:"symbol"`
	Side          string          `gorm:"size:10;not null" json:"side"`
	Currency      string          `gorm:"size:10;not null;default:USDT" json:"currency"`
	Stake         decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"stake"`
	Duration      string          `gorm:"size:10;not null" json:"duration"`
	EntryPrice    decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"entry_price"`
	ProfitPercent decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"profit_percent"`
	ExpiresAt     time.Time       `gorm:"index" json:"expires_at"`

	// ManualOutcome is an administrator preset ("win"/"loss") that forces the
	// result at settlement. Settable only while the trade is active.
	ManualOutcome *string `gorm:"size:10" json:"manual_outcome,omitempty"`

	ExitPrice *decimal.Decimal `gorm:"type:decimal(20,8)" json:"exit_price,omitempty"`
	Result    *string          `gorm:"size:10" json:"result,omitempty"`
	Pnl       *decimal.Decimal `gorm:"type:decimal(20,8)" json:"pnl,omitempty"`
	SettledAt *time.Time       `json:"settled_at,omitempty"`

	Status    string    `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Trade) TableName() string {
	return "trades"
}
