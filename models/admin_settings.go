package models

import (
	"time"
)

// AdminSettings is the singleton platform configuration row. It is simple
// config storage; a default row is created on first read.
type AdminSettings struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	BrandName     string  `gorm:"type:varchar(255);not null;default:'CrestVault'" json:"brand_name"`
	MinDeposit    float64 `gorm:"not null;default:50" json:"min_deposit"`
	MaxDeposit    float64 `gorm:"not null;default:100000" json:"max_deposit"`
	MinWithdrawal float64 `gorm:"not null;default:10" json:"min_withdrawal"`
	TwoFAEnabled  bool    `gorm:"not null;default:false" json:"two_fa_enabled"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
