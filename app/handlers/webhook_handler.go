// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"log"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/app/middleware"
	businessflow "github.com/crestvault/crestvault/business_flow"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// WebhookHandlerInterface defines the contract for processor callbacks
type WebhookHandlerInterface interface {
	CoinPayments(c fiber.Ctx) error
	NOWPayments(c fiber.Ctx) error
}

// WebhookHandler terminates payment processor callbacks. Benign no-ops
// (unknown correlation, intermediate status, re-delivery) return 2xx so
// the processor stops retrying; only structurally invalid requests get a
// non-2xx.
type WebhookHandler struct {
	responder
	webhookFlow businessflow.WebhookFlow
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookFlow businessflow.WebhookFlow) *WebhookHandler {
	return &WebhookHandler{
		responder:   newResponder(),
		webhookFlow: webhookFlow,
	}
}

// CoinPayments handles the CoinPayments IPN callback
func (h *WebhookHandler) CoinPayments(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.webhookFlow.HandleCoinPayments(
		h.createRequestContext(c, "/api/v1/webhooks/coinpayments"),
		c.Get("HMAC"),
		c.Body(),
		metadata,
	)
	return h.respond(c, "coinpayments", result, err)
}

// NOWPayments handles the NOWPayments IPN callback
func (h *WebhookHandler) NOWPayments(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	result, err := h.webhookFlow.HandleNOWPayments(
		h.createRequestContext(c, "/api/v1/webhooks/nowpayments"),
		c.Get("x-nowpayments-sig"),
		c.Body(),
		metadata,
	)
	return h.respond(c, "nowpayments", result, err)
}

func (h *WebhookHandler) respond(c fiber.Ctx, processor string, result *dto.WebhookResult, err error) error {
	if err != nil {
		middleware.WebhookEventsTotal.With(prometheus.Labels{"processor": processor, "outcome": "rejected"}).Inc()
		if businessflow.IsInvalidWebhookSignature(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Invalid signature", "INVALID_SIGNATURE", nil)
		}
		if businessflow.IsMalformedWebhookPayload(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Malformed payload", "MALFORMED_PAYLOAD", nil)
		}
		log.Printf("%s webhook processing failed: %v", processor, err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Webhook processing failed", "WEBHOOK_FAILED", nil)
	}

	outcome := "processed"
	if result.Ignored {
		outcome = "ignored"
	}
	middleware.WebhookEventsTotal.With(prometheus.Labels{"processor": processor, "outcome": outcome}).Inc()
	return h.SuccessResponse(c, fiber.StatusOK, "OK", result)
}
