package migrations

import (
	"gorm.io/gorm"

	"optiondesk/src/model"
)

// seedGlobalTradeSettings inserts the platform-wide trade-control record on
// first boot. Mode starts disabled so per-user settings and market data
// govern outcomes until an operator changes it.
func seedGlobalTradeSettings(tx *gorm.DB) error {
	var count int64
	if err := tx.Model(&model.TradeSetting{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return tx.Create(&model.TradeSetting{Mode: model.TradeModeDisabled}).Error
}
