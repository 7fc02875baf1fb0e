// Package dto contains Data Transfer Objects for API request and response structures
package dto

import (
	"time"

	"github.com/crestvault/crestvault/models"
)

// NotificationDTO represents a user-facing message
type NotificationDTO struct {
	ID        uint      `json:"id" example:"9"`
	Type      string    `json:"type" example:"deposit"`
	Title     string    `json:"title" example:"Deposit credited"`
	Message   string    `json:"message"`
	Read      bool      `json:"read" example:"false"`
	CreatedAt time.Time `json:"created_at"`
}

// ToNotificationDTO maps a notification model to its API representation
func ToNotificationDTO(n *models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
