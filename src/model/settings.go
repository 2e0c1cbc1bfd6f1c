package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeModeDisabled  = "disabled"
	TradeModeAutomatic = "automatic"
	TradeModeWin       = "win"
	TradeModeLoss      = "loss"
	TradeModeCustom    = "custom"
)

// TradeSetting is the single platform-wide outcome policy record. It is read
// on every settlement tick through the settings cache and written rarely.
// WinPercent/LossPercent are only meaningful when configured (custom mode, or
// as the magnitude source for forced outcomes).
type TradeSetting struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Mode        string           `gorm:"size:20;not null;default:disabled" json:"mode"`
	WinPercent  *decimal.Decimal `gorm:"type:decimal(10,4)" json:"win_percent,omitempty"`
	LossPercent *decimal.Decimal `gorm:"type:decimal(10,4)" json:"loss_percent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TradeSetting) TableName() string {
	return "trade_settings"
}

// UserTradeSetting is one account's outcome policy, subordinate to the global
// setting. Percentages may be configured independently of the mode; when the
// mode is win/loss they drive exit-price synthesis.
type UserTradeSetting struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	AccountID   uint             `gorm:"uniqueIndex" json:"account_id"`
	Mode        string           `gorm:"size:20;not null;default:automatic" json:"mode"`
	WinPercent  *decimal.Decimal `gorm:"type:decimal(10,4)" json:"win_percent,omitempty"`
	LossPercent *decimal.Decimal `gorm:"type:decimal(10,4)" json:"loss_percent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserTradeSetting) TableName() string {
	return "user_trade_settings"
}
