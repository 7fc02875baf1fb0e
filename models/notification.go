package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType categorizes user-facing messages
type NotificationType string

const (
	NotificationTypeDeposit    NotificationType = "deposit"
	NotificationTypeWithdrawal NotificationType = "withdrawal"
	NotificationTypeReferral   NotificationType = "referral"
	NotificationTypeBonus      NotificationType = "bonus"
	NotificationTypeAccount    NotificationType = "account"
)

// Notification is an append-only message addressed to one user. It is
// created as a side effect of other flows and never drives further logic;
// Read is the only mutable field.
type Notification struct {
	ID     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	UserID uint      `gorm:"not null;index" json:"user_id"`

	Type    NotificationType `gorm:"type:varchar(20);not null;index" json:"type"`
	Title   string           `gorm:"type:varchar(255);not null" json:"title"`
	Message string           `gorm:"type:text;not null" json:"message"`
	Read    bool             `gorm:"not null;default:false;index" json:"read"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// BeforeCreate ensures UUID is set
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.UUID == uuid.Nil {
		n.UUID = uuid.New()
	}
	return nil
}

// NotificationFilter represents filter criteria for notification queries
type NotificationFilter struct {
	ID     *uint             `json:"id,omitempty"`
	UserID *uint             `json:"user_id,omitempty"`
	Type   *NotificationType `json:"type,omitempty"`
	Read   *bool             `json:"read,omitempty"`
}
