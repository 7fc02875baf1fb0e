package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole represents the role of a platform account
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User represents a platform account together with its ledger fields.
// Balance is the aggregate spendable figure; Wallets holds the per-method
// spendable sub-balances that withdrawals debit; WalletAddresses holds the
// user's payout destinations keyed by the same method keys.
type User struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	// Identity
	Email        string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string   `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string   `gorm:"type:varchar(255)" json:"full_name"`
	Role         UserRole `gorm:"type:varchar(10);not null;default:'user';index" json:"role"`
	IsVerified   bool     `gorm:"not null;default:false" json:"is_verified"`
	VerifyCode   string   `gorm:"type:varchar(255)" json:"-"` // SHA-256 of the emailed code

	// Ledger
	Balance          float64            `gorm:"not null;default:0" json:"balance"`
	Wallets          map[string]float64 `gorm:"type:jsonb;serializer:json;default:'{}'" json:"wallets"`
	WalletAddresses  map[string]string  `gorm:"type:jsonb;serializer:json;default:'{}'" json:"wallet_addresses"`
	ActiveDeposit    float64            `gorm:"not null;default:0" json:"active_deposit"`
	TotalDeposits    float64            `gorm:"not null;default:0" json:"total_deposits"`
	EarnedTotal      float64            `gorm:"not null;default:0" json:"earned_total"`
	DailyProfit      float64            `gorm:"not null;default:0" json:"daily_profit"` // most recent run only, overwritten daily
	LastProfitUpdate *time.Time         `json:"last_profit_update,omitempty"`

	// Referral
	ReferredBy        *uint   `gorm:"index" json:"referred_by,omitempty"`
	ReferralEarnings  float64 `gorm:"not null;default:0" json:"referral_earnings"`
	ReferralBonusPaid bool    `gorm:"not null;default:false" json:"referral_bonus_paid"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Referrer    *User        `gorm:"foreignKey:ReferredBy" json:"referrer,omitempty"`
	Deposits    []Deposit    `gorm:"foreignKey:UserID" json:"deposits,omitempty"`
	Withdrawals []Withdrawal `gorm:"foreignKey:UserID" json:"withdrawals,omitempty"`
}

// BeforeCreate ensures UUID is set and the jsonb maps are never nil
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.Wallets == nil {
		u.Wallets = map[string]float64{}
	}
	if u.WalletAddresses == nil {
		u.WalletAddresses = map[string]string{}
	}
	return nil
}

// IsAdmin returns true for admin accounts
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

// WalletBalance returns the spendable sub-balance for a payment method
func (u *User) WalletBalance(method string) float64 {
	if u.Wallets == nil {
		return 0
	}
	return u.Wallets[method]
}

// CreditWallet adds amount to the per-method sub-balance
func (u *User) CreditWallet(method string, amount float64) {
	if u.Wallets == nil {
		u.Wallets = map[string]float64{}
	}
	u.Wallets[method] += amount
}

// DebitWallet subtracts amount from the per-method sub-balance.
// Callers check sufficiency first; the model does not.
func (u *User) DebitWallet(method string, amount float64) {
	if u.Wallets == nil {
		u.Wallets = map[string]float64{}
	}
	u.Wallets[method] -= amount
}

// BonusBase returns the base figure for percentage bonuses: the first
// non-zero of active deposit, total deposits, balance.
func (u *User) BonusBase() float64 {
	if u.ActiveDeposit > 0 {
		return u.ActiveDeposit
	}
	if u.TotalDeposits > 0 {
		return u.TotalDeposits
	}
	return u.Balance
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Role          *UserRole  `json:"role,omitempty"`
	IsVerified    *bool      `json:"is_verified,omitempty"`
	ReferredBy    *uint      `json:"referred_by,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
