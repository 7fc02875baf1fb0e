// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"

	"github.com/crestvault/crestvault/models"
	"gorm.io/gorm"
)

// SettingsRepositoryImpl implements SettingsRepository
type SettingsRepositoryImpl struct {
	db *gorm.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &SettingsRepositoryImpl{db: db}
}

func (r *SettingsRepositoryImpl) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// Get returns the singleton settings row, creating the default one on
// first access.
func (r *SettingsRepositoryImpl) Get(ctx context.Context) (*models.AdminSettings, error) {
	db := r.getDB(ctx)
	var s models.AdminSettings
	err := db.First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s = models.AdminSettings{
			BrandName:     "CrestVault",
			MinDeposit:    50,
			MaxDeposit:    100000,
			MinWithdrawal: 10,
		}
		if err := db.Create(&s).Error; err != nil {
			return nil, err
		}
		return &s, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SettingsRepositoryImpl) Update(ctx context.Context, settings *models.AdminSettings) error {
	db := r.getDB(ctx)
	return db.Save(settings).Error
}
