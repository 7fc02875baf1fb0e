// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"

	"github.com/crestvault/crestvault/models"
	"gorm.io/gorm"
)

// DepositRepositoryImpl implements DepositRepository
type DepositRepositoryImpl struct {
	*BaseRepository[models.Deposit, models.DepositFilter]
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *gorm.DB) DepositRepository {
	return &DepositRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Deposit, models.DepositFilter](db),
	}
}

func (r *DepositRepositoryImpl) ByUUID(ctx context.Context, u string) (*models.Deposit, error) {
	return r.one(ctx, "uuid = ?", u)
}

func (r *DepositRepositoryImpl) ByInvoiceID(ctx context.Context, invoiceID string) (*models.Deposit, error) {
	if invoiceID == "" {
		return nil, nil
	}
	return r.one(ctx, "invoice_id = ?", invoiceID)
}

func (r *DepositRepositoryImpl) ByPaymentID(ctx context.Context, paymentID string) (*models.Deposit, error) {
	if paymentID == "" {
		return nil, nil
	}
	return r.one(ctx, "payment_id = ?", paymentID)
}

func (r *DepositRepositoryImpl) ByPaymentAddress(ctx context.Context, address string) (*models.Deposit, error) {
	if address == "" {
		return nil, nil
	}
	return r.one(ctx, "payment_address = ?", address)
}

func (r *DepositRepositoryImpl) one(ctx context.Context, cond string, arg any) (*models.Deposit, error) {
	db := r.getDB(ctx)
	var dep models.Deposit
	if err := db.Where(cond, arg).Last(&dep).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dep, nil
}

func (r *DepositRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Deposit, error) {
	return r.ByFilter(ctx, models.DepositFilter{UserID: &userID}, "created_at DESC", limit, offset)
}

func (r *DepositRepositoryImpl) CountCreditedForUser(ctx context.Context, userID uint, excludeDepositID uint) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.Deposit{}).
		Where("user_id = ?", userID).
		Where("status IN ?", []models.DepositStatus{models.DepositStatusApproved, models.DepositStatusCompleted}).
		Where("id <> ?", excludeDepositID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DepositRepositoryImpl) SumCreditedForUser(ctx context.Context, userID uint) (float64, error) {
	db := r.getDB(ctx)
	var sum float64
	err := db.Model(&models.Deposit{}).
		Where("user_id = ?", userID).
		Where("status IN ?", []models.DepositStatus{models.DepositStatusApproved, models.DepositStatusCompleted}).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *DepositRepositoryImpl) Delete(ctx context.Context, id uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}
	err = db.Delete(&models.Deposit{}, id).Error
	return err
}

func (r *DepositRepositoryImpl) ByFilter(ctx context.Context, filter models.DepositFilter, orderBy string, limit, offset int) ([]*models.Deposit, error) {
	db := r.getDB(ctx)
	var deps []*models.Deposit
	q := r.applyFilter(db.Model(&models.Deposit{}), filter)
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
	if err := q.Find(&deps).Error; err != nil {
		return nil, err
	}
	return deps, nil
}

func (r *DepositRepositoryImpl) Count(ctx context.Context, filter models.DepositFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	q := r.applyFilter(db.Model(&models.Deposit{}), filter)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DepositRepositoryImpl) applyFilter(q *gorm.DB, filter models.DepositFilter) *gorm.DB {
	if filter.ID != nil {
		q = q.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		q = q.Where("uuid = ?", *filter.UUID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Plan != nil {
		q = q.Where("plan = ?", *filter.Plan)
	}
	if filter.Method != nil {
		q = q.Where("method = ?", *filter.Method)
	}
	if filter.InvoiceID != nil {
		q = q.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.PaymentID != nil {
		q = q.Where("payment_id = ?", *filter.PaymentID)
	}
	if filter.PaymentAddress != nil {
		q = q.Where("payment_address = ?", *filter.PaymentAddress)
	}
	if filter.CreatedAfter != nil {
		q = q.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		q = q.Where("created_at <= ?", *filter.CreatedBefore)
	}
	return q
}
