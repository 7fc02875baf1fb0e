// Package businessflow contains the core business logic for the investment platform.
package businessflow

import (
	"context"

	"github.com/crestvault/crestvault/models"
	"github.com/crestvault/crestvault/repository"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information for logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// getUser resolves a user by ID, mapping missing rows to ErrUserNotFound
func getUser(ctx context.Context, repo repository.UserRepository, userID uint) (models.User, error) {
	user, err := repo.ByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	if user == nil {
		return models.User{}, ErrUserNotFound
	}
	return *user, nil
}

// notify appends a message to the user's notification sink. The sink is
// best-effort; callers ignore the returned error where the enclosing flow
// must not fail on it.
func notify(ctx context.Context, repo repository.NotificationRepository, userID uint, typ models.NotificationType, title, message string) error {
	n := &models.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
	return repo.Save(ctx, n)
}
