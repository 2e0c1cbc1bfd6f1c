package repository

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"optiondesk/src/database"
	"optiondesk/src/model"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository() *ActivityRepository {
	return &ActivityRepository{db: database.MainDB}
}

func (r *ActivityRepository) WithDB(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, entry *model.ActivityLog) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":       "ActivityRepository",
			"op":         "Create",
			"account_id": entry.AccountID,
			"kind":       entry.Kind,
		}).WithError(err).Error("Failed to create activity log entry")
		return err
	}

	return nil
}
