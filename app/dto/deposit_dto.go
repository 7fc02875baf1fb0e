// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"

	"github.com/crestvault/crestvault/models"
)

// CreateDepositRequest represents the request payload for creating a deposit
type CreateDepositRequest struct {
	UserID uint    `json:"-"`
	Amount float64 `json:"amount" validate:"required,gt=0" example:"1000"`
	Plan   string  `json:"plan" validate:"required,max=50" example:"gold"`
	Method string  `json:"method" validate:"required,max=50" example:"btc"`
	Note   string  `json:"note" validate:"omitempty,max=500"`
}

// CreateDepositResponse carries the pending deposit plus, for automated
// methods, the processor pay-in details
type CreateDepositResponse struct {
	DepositUUID    string  `json:"deposit_uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status         string  `json:"status" example:"pending"`
	Amount         float64 `json:"amount" example:"1000"`
	Plan           string  `json:"plan" example:"gold"`
	Method         string  `json:"method" example:"btc"`
	PaymentAddress string  `json:"payment_address,omitempty"`
	PaymentURL     string  `json:"payment_url,omitempty"`
}

// DepositStatusRequest represents a status transition request
type DepositStatusRequest struct {
	DepositID uint   `json:"-"`
	Status    string `json:"status" validate:"required,oneof=pending approved rejected completed" example:"approved"`
	ByAdmin   bool   `json:"-"`
}

// DepositStatusResponse reports the outcome of a transition
type DepositStatusResponse struct {
	DepositUUID    string `json:"deposit_uuid"`
	Status         string `json:"status" example:"approved"`
	AlreadyApplied bool   `json:"already_applied" example:"false"`
	Message        string `json:"message" example:"Deposit approved"`
}

// AdminAddDepositRequest creates and immediately approves a deposit on a
// user's behalf
type AdminAddDepositRequest struct {
	UserID uint    `json:"user_id" validate:"required" example:"123"`
	Amount float64 `json:"amount" validate:"required,gt=0" example:"500"`
	Plan   string  `json:"plan" validate:"required,max=50" example:"silver"`
	Method string  `json:"method" validate:"required,max=50" example:"btc"`
}

// DepositDTO represents a deposit as exposed over the API
type DepositDTO struct {
	ID             uint       `json:"id" example:"42"`
	UUID           string     `json:"uuid"`
	UserID         uint       `json:"user_id" example:"123"`
	Amount         float64    `json:"amount" example:"1000"`
	Plan           string     `json:"plan" example:"gold"`
	Method         string     `json:"method" example:"btc"`
	Status         string     `json:"status" example:"approved"`
	InvoiceID      string     `json:"invoice_id,omitempty"`
	PaymentID      string     `json:"payment_id,omitempty"`
	PaymentAddress string     `json:"payment_address,omitempty"`
	TxID           string     `json:"tx_id,omitempty"`
	ReferralPaid   bool       `json:"referral_paid"`
	Note           string     `json:"note,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ProfitEligible *time.Time `json:"profit_eligible_at,omitempty"`
}

// ToDepositDTO maps a deposit model to its API representation
func ToDepositDTO(d *models.Deposit) DepositDTO {
	return DepositDTO{
		ID:             d.ID,
		UUID:           d.UUID.String(),
		UserID:         d.UserID,
		Amount:         d.Amount,
		Plan:           string(d.Plan),
		Method:         d.Method,
		Status:         string(d.Status),
		InvoiceID:      d.InvoiceID,
		PaymentID:      d.PaymentID,
		PaymentAddress: d.PaymentAddress,
		TxID:           d.TxID,
		ReferralPaid:   d.ReferralPaid,
		Note:           d.Note,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
		ProfitEligible: d.ProfitEligibleAt,
	}
}
