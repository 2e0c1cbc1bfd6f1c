package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one tradeable symbol from the catalog. Disabled assets reject
// intake.
type Asset struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Symbol  string `gorm:"size:20;uniqueIndex" json:"symbol"`
	Name    string `gorm:"size:60" json:"name"`
	Enabled bool   `gorm:"not null;default:true" json:"enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Asset) TableName() string {
	return "assets"
}

// ProfitLevel is one configured (duration, profit percent) pair. Intake only
// accepts trades whose claimed percent matches a level exactly; the level
// supplies the authoritative percent and the minimum stake.
type ProfitLevel struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Duration      string          `gorm:"size:10;not null;uniqueIndex:idx_profit_levels_duration_pct" json:"duration"`
	ProfitPercent decimal.Decimal `gorm:"type:decimal(10,4);not null;uniqueIndex:idx_profit_levels_duration_pct" json:"profit_percent"`
	MinStake      decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"min_stake"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ProfitLevel) TableName() string {
	return "profit_levels"
}
