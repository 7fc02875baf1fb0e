// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"strconv"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/app/middleware"
	businessflow "github.com/crestvault/crestvault/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// AdminHandlerInterface defines the contract for admin handlers
type AdminHandlerInterface interface {
	ListUsers(c fiber.Ctx) error
	ListDeposits(c fiber.Ctx) error
	SetDepositStatus(c fiber.Ctx) error
	AddDeposit(c fiber.Ctx) error
	DeleteDeposit(c fiber.Ctx) error
	ListWithdrawals(c fiber.Ctx) error
	DecideWithdrawal(c fiber.Ctx) error
	GrantBonus(c fiber.Ctx) error
	BulkBonus(c fiber.Ctx) error
	RunProfit(c fiber.Ctx) error
	Stats(c fiber.Ctx) error
	GetSettings(c fiber.Ctx) error
	UpdateSettings(c fiber.Ctx) error
}

// AdminHandler handles the admin management surface
type AdminHandler struct {
	responder
	adminFlow      businessflow.AdminFlow
	depositFlow    businessflow.DepositFlow
	withdrawalFlow businessflow.WithdrawalFlow
	bonusFlow      businessflow.BonusFlow
	profitFlow     businessflow.ProfitFlow
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	adminFlow businessflow.AdminFlow,
	depositFlow businessflow.DepositFlow,
	withdrawalFlow businessflow.WithdrawalFlow,
	bonusFlow businessflow.BonusFlow,
	profitFlow businessflow.ProfitFlow,
) *AdminHandler {
	return &AdminHandler{
		responder:      newResponder(),
		adminFlow:      adminFlow,
		depositFlow:    depositFlow,
		withdrawalFlow: withdrawalFlow,
		bonusFlow:      bonusFlow,
		profitFlow:     profitFlow,
	}
}

// ListUsers returns a page of accounts
func (h *AdminHandler) ListUsers(c fiber.Ctx) error {
	limit, offset := paginationParams(c)
	result, err := h.adminFlow.ListUsers(h.createRequestContext(c, "/api/v1/admin/users"), limit, offset)
	if err != nil {
		log.Println("Admin user listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "User listing failed", "USER_LIST_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Users", result)
}

// ListDeposits returns deposits across all users, optionally by status
func (h *AdminHandler) ListDeposits(c fiber.Ctx) error {
	limit, offset := paginationParams(c)
	result, err := h.adminFlow.ListDeposits(h.createRequestContext(c, "/api/v1/admin/deposits"), c.Query("status"), limit, offset)
	if err != nil {
		log.Println("Admin deposit listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deposit listing failed", "DEPOSIT_LIST_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Deposits", result)
}

// SetDepositStatus applies a status transition to a deposit. Approving
// runs the credit and referral logic synchronously.
func (h *AdminHandler) SetDepositStatus(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid deposit id", "INVALID_REQUEST", nil)
	}

	var req dto.DepositStatusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}
	req.DepositID = uint(id)
	req.ByAdmin = true

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.depositFlow.ApplyStatus(h.createRequestContext(c, "/api/v1/admin/deposits/:id/status"), &req, metadata)
	if err != nil {
		if businessflow.IsDepositNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deposit not found", "DEPOSIT_NOT_FOUND", nil)
		}
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		log.Println("Deposit status change failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Status change failed", "DEPOSIT_STATUS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// AddDeposit creates and immediately approves a deposit for a user
func (h *AdminHandler) AddDeposit(c fiber.Ctx) error {
	var req dto.AdminAddDepositRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.depositFlow.AddForUser(h.createRequestContext(c, "/api/v1/admin/deposits"), &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsUnknownPlan(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown investment plan", "UNKNOWN_PLAN", nil)
		}
		if businessflow.IsAmountRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Amount must be greater than zero", "AMOUNT_REQUIRED", nil)
		}
		log.Println("Admin deposit add failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deposit add failed", "DEPOSIT_ADD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// DeleteDeposit removes a deposit row; the ledger is not touched
func (h *AdminHandler) DeleteDeposit(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid deposit id", "INVALID_REQUEST", nil)
	}

	if err := h.depositFlow.Delete(h.createRequestContext(c, "/api/v1/admin/deposits/:id"), uint(id)); err != nil {
		if businessflow.IsDepositNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Deposit not found", "DEPOSIT_NOT_FOUND", nil)
		}
		log.Println("Deposit deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Deposit deletion failed", "DEPOSIT_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Deposit deleted", nil)
}

// ListWithdrawals returns withdrawals across all users, optionally by status
func (h *AdminHandler) ListWithdrawals(c fiber.Ctx) error {
	limit, offset := paginationParams(c)
	result, err := h.adminFlow.ListWithdrawals(h.createRequestContext(c, "/api/v1/admin/withdrawals"), c.Query("status"), limit, offset)
	if err != nil {
		log.Println("Admin withdrawal listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Withdrawal listing failed", "WITHDRAWAL_LIST_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Withdrawals", result)
}

// DecideWithdrawal approves or rejects a pending withdrawal
func (h *AdminHandler) DecideWithdrawal(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid withdrawal id", "INVALID_REQUEST", nil)
	}

	var req dto.WithdrawalDecisionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}
	req.WithdrawalID = uint(id)

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.withdrawalFlow.Decide(h.createRequestContext(c, "/api/v1/admin/withdrawals/:id/decision"), &req, metadata)
	if err != nil {
		if businessflow.IsWithdrawalNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Withdrawal not found", "WITHDRAWAL_NOT_FOUND", nil)
		}
		if businessflow.IsWithdrawalAlreadyDecided(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Withdrawal already decided", "WITHDRAWAL_DECIDED", nil)
		}
		log.Println("Withdrawal decision failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Withdrawal decision failed", "WITHDRAWAL_DECISION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Withdrawal "+result.Status, result)
}

// GrantBonus credits a one-off bonus to a single user
func (h *AdminHandler) GrantBonus(c fiber.Ctx) error {
	var req dto.GrantBonusRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.bonusFlow.Grant(h.createRequestContext(c, "/api/v1/admin/bonus"), &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsBonusValueRequired(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Either amount or percent must be provided", "BONUS_VALUE_REQUIRED", nil)
		}
		log.Println("Bonus grant failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Bonus grant failed", "BONUS_GRANT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Bonus granted", result)
}

// BulkBonus runs the tiered bonus over every user
func (h *AdminHandler) BulkBonus(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.bonusFlow.GrantTieredToAll(h.createRequestContextWithTimeout(c, "/api/v1/admin/bonus/bulk", bulkOperationTimeout), metadata)
	if err != nil {
		log.Println("Bulk bonus failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Bulk bonus failed", "BONUS_BULK_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Bulk bonus completed", result)
}

// RunProfit triggers the daily profit sweep manually
func (h *AdminHandler) RunProfit(c fiber.Ctx) error {
	result, err := h.profitFlow.RunDailySweep(h.createRequestContextWithTimeout(c, "/api/v1/admin/profit/run", bulkOperationTimeout))
	if err != nil {
		log.Println("Manual profit run failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Profit run failed", "PROFIT_RUN_FAILED", nil)
	}
	middleware.ProfitSweepRuns.With(prometheus.Labels{"trigger": "manual"}).Inc()
	return h.SuccessResponse(c, fiber.StatusOK, "Profit sweep completed", result)
}

// Stats returns the admin dashboard aggregates
func (h *AdminHandler) Stats(c fiber.Ctx) error {
	result, err := h.adminFlow.Stats(h.createRequestContext(c, "/api/v1/admin/stats"))
	if err != nil {
		log.Println("Stats aggregation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Stats aggregation failed", "STATS_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Platform statistics", result)
}

// GetSettings returns the settings singleton
func (h *AdminHandler) GetSettings(c fiber.Ctx) error {
	result, err := h.adminFlow.GetSettings(h.createRequestContext(c, "/api/v1/admin/settings"))
	if err != nil {
		log.Println("Settings lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Settings lookup failed", "SETTINGS_GET_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Settings", result)
}

// UpdateSettings patches the settings singleton
func (h *AdminHandler) UpdateSettings(c fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}

	result, err := h.adminFlow.UpdateSettings(h.createRequestContext(c, "/api/v1/admin/settings"), &req)
	if err != nil {
		log.Println("Settings update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Settings update failed", "SETTINGS_UPDATE_FAILED", nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Settings updated", result)
}
