// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"

	"github.com/crestvault/crestvault/models"
)

// CreateWithdrawalRequest represents the request payload for a withdrawal.
// WalletAddress may be omitted when the profile stores a payout address
// for the processor.
type CreateWithdrawalRequest struct {
	UserID        uint    `json:"-"`
	Processor     string  `json:"processor" validate:"required,max=50" example:"btc"`
	Amount        float64 `json:"amount" validate:"required,gt=0" example:"200"`
	WalletAddress string  `json:"wallet_address" validate:"omitempty,max=255" example:"bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"`
}

// WithdrawalDecisionRequest represents an admin approve/reject decision
type WithdrawalDecisionRequest struct {
	WithdrawalID uint   `json:"-"`
	Status       string `json:"status" validate:"required,oneof=approved rejected" example:"approved"`
}

// WithdrawalDTO represents a withdrawal as exposed over the API
type WithdrawalDTO struct {
	ID            uint      `json:"id" example:"7"`
	UUID          string    `json:"uuid"`
	UserID        uint      `json:"user_id" example:"123"`
	Processor     string    `json:"processor" example:"btc"`
	Amount        float64   `json:"amount" example:"200"`
	WalletAddress string    `json:"wallet_address"`
	Status        string    `json:"status" example:"pending"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToWithdrawalDTO maps a withdrawal model to its API representation
func ToWithdrawalDTO(w *models.Withdrawal) WithdrawalDTO {
	return WithdrawalDTO{
		ID:            w.ID,
		UUID:          w.UUID.String(),
		UserID:        w.UserID,
		Processor:     w.Processor,
		Amount:        w.Amount,
		WalletAddress: w.WalletAddress,
		Status:        string(w.Status),
		Note:          w.Note,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}
