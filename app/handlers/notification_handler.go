// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"
	"strconv"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/repository"
	"github.com/gofiber/fiber/v3"
)

// NotificationHandlerInterface defines the contract for notification handlers
type NotificationHandlerInterface interface {
	List(c fiber.Ctx) error
	MarkRead(c fiber.Ctx) error
}

// NotificationHandler serves the user's notification feed. The sink is
// append-only; marking as read is the only mutation exposed.
type NotificationHandler struct {
	responder
	notifRepo repository.NotificationRepository
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifRepo repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{
		responder: newResponder(),
		notifRepo: notifRepo,
	}
}

// List returns the authenticated user's notifications, newest first
func (h *NotificationHandler) List(c fiber.Ctx) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	limit, offset := paginationParams(c)
	items, err := h.notifRepo.ListByUser(h.createRequestContext(c, "/api/v1/notifications"), userID, limit, offset)
	if err != nil {
		log.Println("Notification listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Notification listing failed", "NOTIFICATION_LIST_FAILED", nil)
	}

	out := make([]dto.NotificationDTO, 0, len(items))
	for _, n := range items {
		out = append(out, dto.ToNotificationDTO(n))
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Notifications", out)
}

// MarkRead flags one of the user's notifications as read
func (h *NotificationHandler) MarkRead(c fiber.Ctx) error {
	userID, ok := authenticatedUserID(c)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "UNAUTHORIZED", nil)
	}

	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid notification id", "INVALID_REQUEST", nil)
	}

	if err := h.notifRepo.MarkRead(h.createRequestContext(c, "/api/v1/notifications/:id/read"), uint(id), userID); err != nil {
		log.Println("Notification mark-read failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Mark read failed", "NOTIFICATION_MARK_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Notification marked read", nil)
}
