package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optiondesk/src/database"
	"optiondesk/src/model"
)

// AssetRepository serves the asset and profit-level catalogs consulted by
// trade intake.
type AssetRepository struct {
	db *gorm.DB
}

func NewAssetRepository() *AssetRepository {
	return &AssetRepository{db: database.MainDB}
}

func (r *AssetRepository) WithDB(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// FindBySymbol returns (nil, nil) if the asset is not in the catalog.
func (r *AssetRepository) FindBySymbol(ctx context.Context, symbol string) (*model.Asset, error) {
	var asset model.Asset

	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":   "AssetRepository",
			"op":     "FindBySymbol",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch asset")
		return nil, err
	}

	return &asset, nil
}

// ListEnabled returns the assets currently open for trading.
func (r *AssetRepository) ListEnabled(ctx context.Context) ([]model.Asset, error) {
	var assets []model.Asset

	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("symbol ASC").
		Find(&assets).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "AssetRepository",
			"op":   "ListEnabled",
		}).WithError(err).Error("Failed to list enabled assets")
		return nil, err
	}

	return assets, nil
}

// FindProfitLevel matches a (duration token, claimed percent) pair against
// the catalog. Returns (nil, nil) when no entry matches; the caller treats
// that as an invalid profit level.
func (r *AssetRepository) FindProfitLevel(ctx context.Context, duration string, profitPercent decimal.Decimal) (*model.ProfitLevel, error) {
	var level model.ProfitLevel

	err := r.db.WithContext(ctx).
		Where("duration = ? AND profit_percent = ?", duration, profitPercent).
		First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":     "AssetRepository",
			"op":       "FindProfitLevel",
			"duration": duration,
			"percent":  profitPercent,
		}).WithError(err).Error("Failed to fetch profit level")
		return nil, err
	}

	return &level, nil
}
