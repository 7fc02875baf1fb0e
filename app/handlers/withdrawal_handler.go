// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/crestvault/crestvault/app/dto"
	businessflow "github.com/crestvault/crestvault/business_flow"
	"github.com/gofiber/fiber/v3"
)

// WithdrawalHandlerInterface defines the contract for withdrawal handlers
type WithdrawalHandlerInterface interface {
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
}

// WithdrawalHandler handles withdrawal-related HTTP requests
type WithdrawalHandler struct {
	responder
	withdrawalFlow businessflow.WithdrawalFlow
}

// NewWithdrawalHandler creates a new withdrawal handler
func NewWithdrawalHandler(withdrawalFlow businessflow.WithdrawalFlow) *WithdrawalHandler {
	return &WithdrawalHandler{
		responder:      newResponder(),
		withdrawalFlow: withdrawalFlow,
	}
}

// Create opens a withdrawal request; the per-method wallet sub-balance is
// debited immediately
func (h *WithdrawalHandler) Create(c fiber.Ctx) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.CreateWithdrawalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}
	req.UserID = userID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.withdrawalFlow.Request(h.createRequestContext(c, "/api/v1/withdrawals"), &req, metadata)
	if err != nil {
		if businessflow.IsAmountRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Amount must be greater than zero", "AMOUNT_REQUIRED", nil)
		}
		if businessflow.IsWalletAddressRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "No payout address provided or stored", "WALLET_ADDRESS_REQUIRED", nil)
		}
		if businessflow.IsInsufficientWalletBalance(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Insufficient wallet balance", "INSUFFICIENT_BALANCE", nil)
		}
		if businessflow.IsWithdrawalBelowMinimum(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Amount is below the minimum withdrawal", "WITHDRAWAL_MINIMUM", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		log.Println("Withdrawal request failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Withdrawal request failed", "WITHDRAWAL_REQUEST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Withdrawal requested", result)
}

// List returns the authenticated user's withdrawal requests
func (h *WithdrawalHandler) List(c fiber.Ctx) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	limit, offset := paginationParams(c)
	result, err := h.withdrawalFlow.ListByUser(h.createRequestContext(c, "/api/v1/withdrawals"), userID, limit, offset)
	if err != nil {
		log.Println("Withdrawal listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Withdrawal listing failed", "WITHDRAWAL_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Withdrawals", result)
}
