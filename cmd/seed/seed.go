package seed

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"optiondesk/src/database"
	"optiondesk/src/model"
)

// Seed provisions a demo account with a funded balance plus the asset and
// profit-level catalogs. Idempotent: existing rows are left alone.
type Seed struct{}

func (s *Seed) Start() error {
	config := GetConfig()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	ctx := context.Background()
	db := database.MainDB.WithContext(ctx)

	return db.Transaction(func(tx *gorm.DB) error {
		account, err := seedAccount(tx, config)
		if err != nil {
			return err
		}

		if err := seedBalance(tx, account.ID, config.Deposit); err != nil {
			return err
		}

		if err := seedCatalogs(tx); err != nil {
			return err
		}

		logrus.WithFields(map[string]interface{}{
			"account_id": account.ID,
			"user_name":  account.UserName,
		}).Info("Demo data seeded")
		return nil
	})
}

func seedAccount(tx *gorm.DB, config *Config) (*model.Account, error) {
	var account model.Account
	err := tx.Where("user_name = ?", config.UserName).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(config.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account = model.Account{
		UserName:        config.UserName,
		PasswordHash:    string(hashed),
		TradesRemaining: config.TradesRemaining,
	}
	if err := tx.Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func seedBalance(tx *gorm.DB, accountID uint, deposit string) error {
	amount, err := decimal.NewFromString(deposit)
	if err != nil {
		return err
	}

	var balance model.Balance
	return tx.Where(model.Balance{AccountID: accountID, Currency: "USDT"}).
		Attrs(model.Balance{Total: amount, Deposited: amount}).
		FirstOrCreate(&balance).Error
}

func seedCatalogs(tx *gorm.DB) error {
	assets := []model.Asset{
		{Symbol: "BTCUSDT", Enabled: true},
		{Symbol: "ETHUSDT", Enabled: true},
		{Symbol: "SOLUSDT", Enabled: true},
	}
	for _, asset := range assets {
		var existing model.Asset
		err := tx.Where(model.Asset{Symbol: asset.Symbol}).
			Attrs(asset).
			FirstOrCreate(&existing).Error
		if err != nil {
			return err
		}
	}

	levels := []model.ProfitLevel{
		{Duration: "1m", ProfitPercent: decimal.RequireFromString("85"), MinStake: decimal.RequireFromString("1")},
		{Duration: "5m", ProfitPercent: decimal.RequireFromString("80"), MinStake: decimal.RequireFromString("1")},
		{Duration: "15m", ProfitPercent: decimal.RequireFromString("75"), MinStake: decimal.RequireFromString("5")},
		{Duration: "1h", ProfitPercent: decimal.RequireFromString("70"), MinStake: decimal.RequireFromString("10")},
		{Duration: "1d", ProfitPercent: decimal.RequireFromString("60"), MinStake: decimal.RequireFromString("25")},
	}
	for _, level := range levels {
		var existing model.ProfitLevel
		err := tx.Where(model.ProfitLevel{Duration: level.Duration, ProfitPercent: level.ProfitPercent}).
			Attrs(level).
			FirstOrCreate(&existing).Error
		if err != nil {
			return err
		}
	}

	return nil
}
