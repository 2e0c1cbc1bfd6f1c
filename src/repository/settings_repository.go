package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optiondesk/src/database"
	"optiondesk/src/model"
)

// SettingsRepository reads the global and per-account trade-control
// settings. The global record is read through the settings cache on every
// settlement tick, so loads here must stay cheap.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository() *SettingsRepository {
	return &SettingsRepository{db: database.MainDB}
}

func (r *SettingsRepository) WithDB(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetGlobal returns the single platform-wide setting row, creating the
// default (mode disabled) on first access.
func (r *SettingsRepository) GetGlobal(ctx context.Context) (*model.TradeSetting, error) {
	var setting model.TradeSetting

	err := r.db.WithContext(ctx).
		Order("id ASC").
		First(&setting).Error
	if err == nil {
		return &setting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WithFields(map[string]interface{}{
			"repo": "SettingsRepository",
			"op":   "GetGlobal",
		}).WithError(err).Error("Failed to load global trade settings")
		return nil, err
	}

	setting = model.TradeSetting{Mode: model.TradeModeDisabled}
	if err := r.db.WithContext(ctx).Create(&setting).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SettingsRepository",
			"op":   "GetGlobal",
		}).WithError(err).Error("Failed to create default global trade settings")
		return nil, err
	}

	return &setting, nil
}

// GetForAccount returns the per-account setting, or (nil, nil) when the
// account has none configured (treated as automatic by the resolver).
func (r *SettingsRepository) GetForAccount(ctx context.Context, accountID uint) (*model.UserTradeSetting, error) {
	var setting model.UserTradeSetting

	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":       "SettingsRepository",
			"op":         "GetForAccount",
			"account_id": accountID,
		}).WithError(err).Error("Failed to load user trade settings")
		return nil, err
	}

	return &setting, nil
}
