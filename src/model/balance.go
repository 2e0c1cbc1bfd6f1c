package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance is the per-(account, currency) ledger record. Total is split into
// two buckets: Deposited (externally funded) and Earnings (won trades), and
// total = deposited + earnings is maintained by every ledger operation.
// Frozen is the amount held against pending withdrawals; the spendable part
// is total - frozen and must never go negative.
type Balance struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	AccountID uint   `gorm:"uniqueIndex:idx_balances_account_currency" json:"account_id"`
	Currency  string `gorm:"size:10;not null;uniqueIndex:idx_balances_account_currency" json:"currency"`

	Total     decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"total"`
	Deposited decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"deposited"`
	Earnings  decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"earnings"`
	Frozen    decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"frozen"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Balance) TableName() string {
	return "balances"
}

// Available returns the portion usable for new trades or withdrawals.
func (b *Balance) Available() decimal.Decimal {
	return b.Total.Sub(b.Frozen)
}
