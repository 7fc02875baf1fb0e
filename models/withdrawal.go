package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WithdrawalStatus represents the current status of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Withdrawal represents one payout request. The per-method wallet
// sub-balance is debited at creation time, before any admin review;
// rejection does not refund the debit.
type Withdrawal struct {
	ID     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	UserID uint      `gorm:"not null;index" json:"user_id"`

	Processor     string           `gorm:"type:varchar(40);not null;index" json:"processor"`
	Amount        float64          `gorm:"not null" json:"amount"`
	WalletAddress string           `gorm:"type:varchar(255);not null" json:"wallet_address"`
	Status        WithdrawalStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Note          string           `gorm:"type:text" json:"note"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// BeforeCreate ensures UUID is set
func (w *Withdrawal) BeforeCreate(tx *gorm.DB) error {
	if w.UUID == uuid.Nil {
		w.UUID = uuid.New()
	}
	return nil
}

// IsDecided returns true once an admin has approved or rejected the request
func (w *Withdrawal) IsDecided() bool {
	return w.Status == WithdrawalStatusApproved || w.Status == WithdrawalStatusRejected
}

// WithdrawalFilter represents filter criteria for withdrawal queries
type WithdrawalFilter struct {
	ID            *uint             `json:"id,omitempty"`
	UUID          *uuid.UUID        `json:"uuid,omitempty"`
	UserID        *uint             `json:"user_id,omitempty"`
	Processor     *string           `json:"processor,omitempty"`
	Status        *WithdrawalStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time        `json:"created_after,omitempty"`
	CreatedBefore *time.Time        `json:"created_before,omitempty"`
}
