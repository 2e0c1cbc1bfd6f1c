package model

import "time"

// Account is the owner of trades and balances. Authentication lives outside
// this service; PasswordHash exists so seeded demo environments carry a
// usable credential. TradesRemaining is the per-account trade-count quota
// decremented on every accepted trade.
type Account struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	UserName        string `gorm:"size:60;uniqueIndex" json:"user_name"`
	Email           string `gorm:"size:120" json:"email,omitempty"`
	PasswordHash    string `gorm:"size:120" json:"-"`
	TradesRemaining int    `gorm:"not null;default:0" json:"trades_remaining"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
