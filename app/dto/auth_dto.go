// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"

	"github.com/crestvault/crestvault/models"
)

// RegisterRequest represents the request payload for account registration
type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password     string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	FullName     string `json:"full_name" validate:"omitempty,max=255" example:"John Doe"`
	ReferralCode string `json:"referral_code" validate:"omitempty,uuid4" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// RegisterResponse represents the successful registration response
type RegisterResponse struct {
	UserUUID string `json:"user_uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email    string `json:"email" example:"user@example.com"`
}

// VerifyRequest represents the email verification payload
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email" example:"user@example.com"`
	Code  string `json:"code" validate:"required,len=6,numeric" example:"123456"`
}

// LoginRequest represents the request payload for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	User         UserDTO `json:"user"`
}

// RefreshRequest represents the token refresh payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ProfileResponse wraps the authenticated user's account view
type ProfileResponse struct {
	User UserDTO `json:"user"`
}

// UpdateWalletAddressesRequest merges payout addresses into the profile.
// An empty address removes the entry for that method.
type UpdateWalletAddressesRequest struct {
	UserID    uint              `json:"-"`
	Addresses map[string]string `json:"addresses" validate:"required"`
}

// UserDTO represents an account as exposed over the API
type UserDTO struct {
	ID                uint               `json:"id" example:"123"`
	UUID              string             `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Email             string             `json:"email" example:"user@example.com"`
	FullName          string             `json:"full_name" example:"John Doe"`
	Role              string             `json:"role" example:"user"`
	IsVerified        bool               `json:"is_verified" example:"true"`
	Balance           float64            `json:"balance" example:"1250.50"`
	Wallets           map[string]float64 `json:"wallets"`
	WalletAddresses   map[string]string  `json:"wallet_addresses"`
	ActiveDeposit     float64            `json:"active_deposit" example:"1000"`
	TotalDeposits     float64            `json:"total_deposits" example:"1000"`
	EarnedTotal       float64            `json:"earned_total" example:"250.50"`
	DailyProfit       float64            `json:"daily_profit" example:"30"`
	LastProfitUpdate  *time.Time         `json:"last_profit_update,omitempty"`
	ReferralEarnings  float64            `json:"referral_earnings" example:"35"`
	ReferralBonusPaid bool               `json:"referral_bonus_paid" example:"false"`
	CreatedAt         time.Time          `json:"created_at"`
}

// ToUserDTO maps a user model to its API representation
func ToUserDTO(u *models.User) UserDTO {
	return UserDTO{
		ID:                u.ID,
		UUID:              u.UUID.String(),
		Email:             u.Email,
		FullName:          u.FullName,
		Role:              string(u.Role),
		IsVerified:        u.IsVerified,
		Balance:           u.Balance,
		Wallets:           u.Wallets,
		WalletAddresses:   u.WalletAddresses,
		ActiveDeposit:     u.ActiveDeposit,
		TotalDeposits:     u.TotalDeposits,
		EarnedTotal:       u.EarnedTotal,
		DailyProfit:       u.DailyProfit,
		LastProfitUpdate:  u.LastProfitUpdate,
		ReferralEarnings:  u.ReferralEarnings,
		ReferralBonusPaid: u.ReferralBonusPaid,
		CreatedAt:         u.CreatedAt,
	}
}
