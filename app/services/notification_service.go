// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// NotificationService handles outbound user-facing email. Delivery is
// best-effort: callers log failures and move on.
type NotificationService interface {
	SendEmail(email, subject, html string) error
}

// EmailProvider interface for email sending
type EmailProvider interface {
	SendEmail(email, subject, html string) error
}

// NotificationServiceImpl implements NotificationService
type NotificationServiceImpl struct {
	emailProvider EmailProvider
}

// NewNotificationService creates a new notification service
func NewNotificationService(emailProvider EmailProvider) NotificationService {
	return &NotificationServiceImpl{
		emailProvider: emailProvider,
	}
}

// SendEmail sends an email to the specified address
func (s *NotificationServiceImpl) SendEmail(email, subject, html string) error {
	if s.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}

	// Basic email validation
	if len(email) == 0 || !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %s", email)
	}

	return s.emailProvider.SendEmail(email, subject, html)
}

type MockEmailProvider struct{}

func NewMockEmailProvider() EmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(email, subject, html string) error {
	log.Printf("Email sent to %s [%s]: %s", email, subject, html)
	return nil
}

type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
	fromName  string
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail, fromName string) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

func (p *SMTPEmailProvider) SendEmail(email, subject, html string) error {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	auth := smtp.PlainAuth("", p.username, p.password, p.host)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s <%s>\r\n", p.fromName, p.fromEmail)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)

	if err := smtp.SendMail(addr, auth, p.fromEmail, []string{email}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
