package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optiondesk/src/database"
	"optiondesk/src/model"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{db: database.MainDB}
}

func (r *AccountRepository) WithDB(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByID returns (nil, nil) if the account is not found.
func (r *AccountRepository) FindByID(ctx context.Context, id uint) (*model.Account, error) {
	var account model.Account

	err := r.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo": "AccountRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch account")
		return nil, err
	}

	return &account, nil
}

func (r *AccountRepository) FindByUserName(ctx context.Context, userName string) (*model.Account, error) {
	var account model.Account

	err := r.db.WithContext(ctx).
		Where("user_name = ?", userName).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &account, nil
}

// DecrementTradeQuota takes one unit off the account's remaining trade
// count. The precondition lives in the WHERE clause, so a false return means
// the quota was already exhausted (or racing intakes drained it).
func (r *AccountRepository) DecrementTradeQuota(ctx context.Context, accountID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Account{}).
		Where("id = ? AND trades_remaining > 0", accountID).
		Update("trades_remaining", gorm.Expr("trades_remaining - 1"))

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "AccountRepository",
			"op":         "DecrementTradeQuota",
			"account_id": accountID,
		}).WithError(res.Error).Error("Failed to decrement trade quota")
		return false, res.Error
	}

	return res.RowsAffected == 1, nil
}
