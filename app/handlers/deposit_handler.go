// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"strconv"

	"github.com/crestvault/crestvault/app/dto"
	businessflow "github.com/crestvault/crestvault/business_flow"
	"github.com/gofiber/fiber/v3"
)

// DepositHandlerInterface defines the contract for deposit handlers
type DepositHandlerInterface interface {
	Create(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
}

// DepositHandler handles deposit-related HTTP requests
type DepositHandler struct {
	responder
	depositFlow businessflow.DepositFlow
}

// NewDepositHandler creates a new deposit handler
func NewDepositHandler(depositFlow businessflow.DepositFlow) *DepositHandler {
	return &DepositHandler{
		responder:   newResponder(),
		depositFlow: depositFlow,
	}
}

// Create opens a new deposit; for automated methods the response carries
// the processor pay-in details
func (h *DepositHandler) Create(c fiber.Ctx) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.CreateDepositRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}
	req.UserID = userID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.depositFlow.Create(h.createRequestContext(c, "/api/v1/deposits"), &req, metadata)
	if err != nil {
		if businessflow.IsAmountRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Amount must be greater than zero", "AMOUNT_REQUIRED", nil)
		}
		if businessflow.IsUnknownPlan(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown investment plan", "UNKNOWN_PLAN", nil)
		}
		if businessflow.IsUnsupportedMethod(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unsupported payment method", "UNSUPPORTED_METHOD", nil)
		}
		if businessflow.IsDepositOutOfLimits(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Amount is outside the deposit limits", "DEPOSIT_LIMITS", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		log.Println("Deposit creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deposit creation failed", "DEPOSIT_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Deposit created", result)
}

// List returns the authenticated user's deposits
func (h *DepositHandler) List(c fiber.Ctx) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	limit, offset := paginationParams(c)
	result, err := h.depositFlow.ListByUser(h.createRequestContext(c, "/api/v1/deposits"), userID, limit, offset)
	if err != nil {
		log.Println("Deposit listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deposit listing failed", "DEPOSIT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deposits", result)
}

// Get returns one of the authenticated user's deposits
func (h *DepositHandler) Get(c fiber.Ctx) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid deposit id", "INVALID_REQUEST", nil)
	}

	result, err := h.depositFlow.Get(h.createRequestContext(c, "/api/v1/deposits/:id"), uint(id), userID)
	if err != nil {
		if businessflow.IsDepositNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deposit not found", "DEPOSIT_NOT_FOUND", nil)
		}
		log.Println("Deposit lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deposit lookup failed", "DEPOSIT_GET_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deposit", result)
}
