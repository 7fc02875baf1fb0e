// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/crestvault/crestvault/app/dto"
	businessflow "github.com/crestvault/crestvault/business_flow"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Register(c fiber.Ctx) error
	Verify(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Profile(c fiber.Ctx) error
	UpdateWalletAddresses(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	responder
	authFlow businessflow.AuthFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authFlow businessflow.AuthFlow) *AuthHandler {
	return &AuthHandler{
		responder: newResponder(),
		authFlow:  authFlow,
	}
}

// Register handles account creation with optional referral binding
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.authFlow.Register(h.createRequestContext(c, "/api/v1/auth/register"), &req, metadata)
	if err != nil {
		if businessflow.IsEmailAlreadyExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Email already exists", "EMAIL_EXISTS", nil)
		}
		log.Println("Register failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Registration failed", "REGISTER_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Account created, verification code sent", result)
}

// Verify handles email verification
func (h *AuthHandler) Verify(c fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if err := h.authFlow.Verify(h.createRequestContext(c, "/api/v1/auth/verify"), &req, metadata); err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		if businessflow.IsAlreadyVerified(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Account already verified", "ALREADY_VERIFIED", nil)
		}
		if businessflow.IsInvalidVerifyCode(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid verification code", "INVALID_CODE", nil)
		}
		log.Println("Verify failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Verification failed", "VERIFY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Account verified", nil)
}

// Login handles credential checks and token issuance
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.authFlow.Login(h.createRequestContext(c, "/api/v1/auth/login"), &req, metadata)
	if err != nil {
		if businessflow.IsUserNotFound(err) || businessflow.IsIncorrectPassword(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid credentials", "INVALID_CREDENTIALS", nil)
		}
		log.Println("Login failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Login failed", "LOGIN_FAILED", nil)
	}

	// Access token also travels as an HTTP-only cookie for browser clients
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    result.AccessToken,
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Profile returns the authenticated user's account view
func (h *AuthHandler) Profile(c fiber.Ctx) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	result, err := h.authFlow.Profile(h.createRequestContext(c, "/api/v1/profile"), userID)
	if err != nil {
		if businessflow.IsUserNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "User not found", "USER_NOT_FOUND", nil)
		}
		log.Println("Profile lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Profile lookup failed", "PROFILE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Profile", result)
}

// UpdateWalletAddresses merges submitted payout addresses into the profile
func (h *AuthHandler) UpdateWalletAddresses(c fiber.Ctx) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	var req dto.UpdateWalletAddressesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if ok, err := h.validateStruct(c, &req); !ok {
		return err
	}
	req.UserID = userID

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.authFlow.UpdateWalletAddresses(h.createRequestContext(c, "/api/v1/profile/wallet-addresses"), &req, metadata)
	if err != nil {
		log.Println("Wallet address update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Update failed", "PROFILE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Wallet addresses updated", result)
}
