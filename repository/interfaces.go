// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/crestvault/crestvault/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Count(ctx context.Context, filter F) (int64, error)
}

// UserRepository defines operations for platform accounts and their ledger
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// DepositRepository defines operations for deposits, including the
// correlation lookups used by processor webhooks
type DepositRepository interface {
	Repository[models.Deposit, models.DepositFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Deposit, error)
	ByInvoiceID(ctx context.Context, invoiceID string) (*models.Deposit, error)
	ByPaymentID(ctx context.Context, paymentID string) (*models.Deposit, error)
	ByPaymentAddress(ctx context.Context, address string) (*models.Deposit, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Deposit, error)
	// CountCreditedForUser counts approved/completed deposits for a user,
	// excluding the given deposit; the referral payout uses it to decide
	// whether the deposit being credited is the user's first.
	CountCreditedForUser(ctx context.Context, userID uint, excludeDepositID uint) (int64, error)
	// SumCreditedForUser sums approved/completed deposit amounts for a user
	SumCreditedForUser(ctx context.Context, userID uint) (float64, error)
	Delete(ctx context.Context, id uint) error
}

// WithdrawalRepository defines operations for withdrawal requests
type WithdrawalRepository interface {
	Repository[models.Withdrawal, models.WithdrawalFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Withdrawal, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Withdrawal, error)
}

// NotificationRepository defines operations for the notification sink
type NotificationRepository interface {
	Repository[models.Notification, models.NotificationFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id uint, userID uint) error
}

// SettingsRepository manages the singleton admin settings row
type SettingsRepository interface {
	Get(ctx context.Context) (*models.AdminSettings, error)
	Update(ctx context.Context, settings *models.AdminSettings) error
}
