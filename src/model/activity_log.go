package model

import "time"

type ActivityLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	AccountID uint           `gorm:"index" json:"account_id"`
	TradeID   *uint          `gorm:"index" json:"trade_id,omitempty"`
	Kind      string         `gorm:"size:40;not null" json:"kind"`
	Message   string         `gorm:"size:1024;not null" json:"message"`
	Metadata  map[string]any `gorm:"serializer:json" json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
