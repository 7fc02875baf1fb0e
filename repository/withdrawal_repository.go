// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"

	"github.com/crestvault/crestvault/models"
	"gorm.io/gorm"
)

// WithdrawalRepositoryImpl implements WithdrawalRepository
type WithdrawalRepositoryImpl struct {
	*BaseRepository[models.Withdrawal, models.WithdrawalFilter]
}

// NewWithdrawalRepository creates a new withdrawal repository
func NewWithdrawalRepository(db *gorm.DB) WithdrawalRepository {
	return &WithdrawalRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Withdrawal, models.WithdrawalFilter](db),
	}
}

func (r *WithdrawalRepositoryImpl) ByUUID(ctx context.Context, u string) (*models.Withdrawal, error) {
	db := r.getDB(ctx)
	var w models.Withdrawal
	if err := db.Where("uuid = ?", u).Last(&w).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (r *WithdrawalRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Withdrawal, error) {
	return r.ByFilter(ctx, models.WithdrawalFilter{UserID: &userID}, "created_at DESC", limit, offset)
}

func (r *WithdrawalRepositoryImpl) ByFilter(ctx context.Context, filter models.WithdrawalFilter, orderBy string, limit, offset int) ([]*models.Withdrawal, error) {
	db := r.getDB(ctx)
	var ws []*models.Withdrawal
	q := r.applyFilter(db.Model(&models.Withdrawal{}), filter)
	if orderBy != "" {
		q = q.Order(orderBy)
	} else {
		q = q.Order("created_at DESC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&ws).Error; err != nil {
		return nil, err
	}
	return ws, nil
}

func (r *WithdrawalRepositoryImpl) Count(ctx context.Context, filter models.WithdrawalFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	q := r.applyFilter(db.Model(&models.Withdrawal{}), filter)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *WithdrawalRepositoryImpl) applyFilter(q *gorm.DB, filter models.WithdrawalFilter) *gorm.DB {
	if filter.ID != nil {
		q = q.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		q = q.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Processor != nil {
		q = q.Where("processor = ?", *filter.Processor)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		q = q.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return q
}
