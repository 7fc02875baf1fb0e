// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/crestvault/crestvault/models"
	"gorm.io/gorm"
)

// NotificationRepositoryImpl implements NotificationRepository
type NotificationRepositoryImpl struct {
	*BaseRepository[models.Notification, models.NotificationFilter]
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Notification, models.NotificationFilter](db),
	}
}

func (r *NotificationRepositoryImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	return r.ByFilter(ctx, models.NotificationFilter{UserID: &userID}, "created_at DESC", limit, offset)
}

func (r *NotificationRepositoryImpl) MarkRead(ctx context.Context, id uint, userID uint) error {
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
	err = db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true).Error
	return err
}

func (r *NotificationRepositoryImpl) ByFilter(ctx context.Context, filter models.NotificationFilter, orderBy string, limit, offset int) ([]*models.Notification, error) {
	db := r.getDB(ctx)
	var ns []*models.Notification
	q := r.applyFilter(db.Model(&models.Notification{}), filter)
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
	if err := q.Find(&ns).Error; err != nil {
		return nil, err
	}
	return ns, nil
}

func (r *NotificationRepositoryImpl) Count(ctx context.Context, filter models.NotificationFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	q := r.applyFilter(db.Model(&models.Notification{}), filter)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *NotificationRepositoryImpl) applyFilter(q *gorm.DB, filter models.NotificationFilter) *gorm.DB {
	if filter.ID != nil {
		q = q.Where("id = ?", *filter.ID)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	if filter.Type != nil {
		q = q.Where("type = ?", *filter.Type)
	}
	if filter.Read != nil {
		q = q.Where("read = ?", *filter.Read)
	}
	return q
}
