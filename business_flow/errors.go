// Package businessflow contains the core business logic for the investment platform.
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrInvalidVerifyCode  = errors.New("invalid verification code")
	ErrAlreadyVerified    = errors.New("already verified")

	// Deposit-related errors
	ErrAmountRequired         = errors.New("amount must be greater than zero")
	ErrUnknownPlan            = errors.New("unknown investment plan")
	ErrDepositNotFound        = errors.New("deposit not found")
	ErrDepositAlreadyInStatus = errors.New("deposit already in requested status")
	ErrUnsupportedMethod      = errors.New("unsupported payment method")
	ErrDepositBelowMinimum    = errors.New("amount is below the minimum deposit")
	ErrDepositAboveMaximum    = errors.New("amount is above the maximum deposit")

	// Withdrawal-related errors
	ErrWithdrawalNotFound        = errors.New("withdrawal not found")
	ErrWithdrawalAlreadyDecided  = errors.New("withdrawal already decided")
	ErrWalletAddressRequired     = errors.New("wallet address is required")
	ErrInsufficientWalletBalance = errors.New("insufficient wallet balance")
	ErrWithdrawalBelowMinimum    = errors.New("amount is below the minimum withdrawal")

	// Bonus-related errors
	ErrBonusValueRequired = errors.New("either amount or percent must be provided")

	// Webhook-related errors
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
	ErrMalformedWebhookPayload = errors.New("malformed webhook payload")
)

// Error predicates used by the handlers to map flow errors to status codes
func IsUserNotFound(err error) bool       { return errors.Is(err, ErrUserNotFound) }
func IsEmailAlreadyExists(err error) bool { return errors.Is(err, ErrEmailAlreadyExists) }
func IsIncorrectPassword(err error) bool  { return errors.Is(err, ErrIncorrectPassword) }
func IsInvalidVerifyCode(err error) bool  { return errors.Is(err, ErrInvalidVerifyCode) }
func IsAlreadyVerified(err error) bool    { return errors.Is(err, ErrAlreadyVerified) }

func IsAmountRequired(err error) bool { return errors.Is(err, ErrAmountRequired) }
func IsUnknownPlan(err error) bool    { return errors.Is(err, ErrUnknownPlan) }
func IsDepositNotFound(err error) bool {
	return errors.Is(err, ErrDepositNotFound)
}
func IsUnsupportedMethod(err error) bool { return errors.Is(err, ErrUnsupportedMethod) }
func IsDepositOutOfLimits(err error) bool {
	return errors.Is(err, ErrDepositBelowMinimum) || errors.Is(err, ErrDepositAboveMaximum)
}

func IsWithdrawalNotFound(err error) bool { return errors.Is(err, ErrWithdrawalNotFound) }
func IsWithdrawalAlreadyDecided(err error) bool {
	return errors.Is(err, ErrWithdrawalAlreadyDecided)
}
func IsWalletAddressRequired(err error) bool { return errors.Is(err, ErrWalletAddressRequired) }
func IsInsufficientWalletBalance(err error) bool {
	return errors.Is(err, ErrInsufficientWalletBalance)
}
func IsWithdrawalBelowMinimum(err error) bool { return errors.Is(err, ErrWithdrawalBelowMinimum) }

func IsBonusValueRequired(err error) bool { return errors.Is(err, ErrBonusValueRequired) }

func IsInvalidWebhookSignature(err error) bool { return errors.Is(err, ErrInvalidWebhookSignature) }
func IsMalformedWebhookPayload(err error) bool { return errors.Is(err, ErrMalformedWebhookPayload) }

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error with a code and message
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
