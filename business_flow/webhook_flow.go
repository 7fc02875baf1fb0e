// Package businessflow contains the core business logic for the investment platform.
package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/models"
	"github.com/crestvault/crestvault/repository"
)

// IPNVerifier checks the signature header of a processor callback against
// the raw request body.
type IPNVerifier interface {
	VerifyIPN(sigHeader string, rawBody []byte) bool
}

// WebhookFlow ingests payment processor callbacks and drives the deposit
// status machine. Callbacks that cannot be matched to a deposit, or that
// carry an intermediate processor status, are acknowledged without effect
// so the processor stops retrying.
type WebhookFlow interface {
	HandleCoinPayments(ctx context.Context, sigHeader string, rawBody []byte, metadata *ClientMetadata) (*dto.WebhookResult, error)
	HandleNOWPayments(ctx context.Context, sigHeader string, rawBody []byte, metadata *ClientMetadata) (*dto.WebhookResult, error)
}

// WebhookFlowImpl implements WebhookFlow
type WebhookFlowImpl struct {
	depositRepo repository.DepositRepository
	depositFlow DepositFlow
	cpVerifier  IPNVerifier
	npVerifier  IPNVerifier
}

func NewWebhookFlow(
	depositRepo repository.DepositRepository,
	depositFlow DepositFlow,
	cpVerifier IPNVerifier,
	npVerifier IPNVerifier,
) WebhookFlow {
	return &WebhookFlowImpl{
		depositRepo: depositRepo,
		depositFlow: depositFlow,
		cpVerifier:  cpVerifier,
		npVerifier:  npVerifier,
	}
}

// ipnEvent is a processor callback normalized to the deposit state machine
type ipnEvent struct {
	processor      string
	orderUUID      string // deposit UUID echoed back by the processor
	invoiceID      string
	paymentID      string
	paymentAddress string
	target         models.DepositStatus
	actionable     bool // false for intermediate statuses
	rawStatus      string
}

// HandleCoinPayments processes a CoinPayments IPN: form-encoded body signed
// with HMAC-SHA512 in the HMAC header. Numeric status: >= 100 or == 2 means
// the payment is complete, negative means it failed.
func (f *WebhookFlowImpl) HandleCoinPayments(ctx context.Context, sigHeader string, rawBody []byte, metadata *ClientMetadata) (*dto.WebhookResult, error) {
	if !f.cpVerifier.VerifyIPN(sigHeader, rawBody) {
		return nil, ErrInvalidWebhookSignature
	}

	form, err := url.ParseQuery(string(rawBody))
	if err != nil {
		return nil, ErrMalformedWebhookPayload
	}
	statusStr := form.Get("status")
	status, err := strconv.Atoi(statusStr)
	if err != nil {
		return nil, ErrMalformedWebhookPayload
	}

	ev := ipnEvent{
		processor:      "coinpayments",
		orderUUID:      form.Get("custom"),
		invoiceID:      form.Get("txn_id"),
		paymentAddress: form.Get("address"),
		rawStatus:      statusStr,
	}
	switch {
	case status >= 100 || status == 2:
		ev.target = models.DepositStatusCompleted
		ev.actionable = true
	case status < 0:
		ev.target = models.DepositStatusRejected
		ev.actionable = true
	}
	return f.apply(ctx, ev, metadata)
}

type npIPNPayload struct {
	PaymentID     any    `json:"payment_id"`
	PaymentStatus string `json:"payment_status"`
	OrderID       string `json:"order_id"`
	PayAddress    string `json:"pay_address"`
}

// HandleNOWPayments processes a NOWPayments IPN: JSON body signed with
// HMAC-SHA512 over the sorted-key form in the x-nowpayments-sig header.
func (f *WebhookFlowImpl) HandleNOWPayments(ctx context.Context, sigHeader string, rawBody []byte, metadata *ClientMetadata) (*dto.WebhookResult, error) {
	if !f.npVerifier.VerifyIPN(sigHeader, rawBody) {
		return nil, ErrInvalidWebhookSignature
	}

	var p npIPNPayload
	if err := json.Unmarshal(rawBody, &p); err != nil {
		return nil, ErrMalformedWebhookPayload
	}

	ev := ipnEvent{
		processor:      "nowpayments",
		orderUUID:      p.OrderID,
		paymentID:      fmt.Sprintf("%v", p.PaymentID),
		paymentAddress: p.PayAddress,
		rawStatus:      p.PaymentStatus,
	}
	switch strings.ToLower(p.PaymentStatus) {
	case "finished", "confirmed":
		ev.target = models.DepositStatusCompleted
		ev.actionable = true
	case "failed", "expired", "refunded":
		ev.target = models.DepositStatusRejected
		ev.actionable = true
	}
	return f.apply(ctx, ev, metadata)
}

// apply correlates the event with a deposit and applies the target status.
// No match, already-credited deposits, and intermediate statuses all
// acknowledge without effect.
func (f *WebhookFlowImpl) apply(ctx context.Context, ev ipnEvent, metadata *ClientMetadata) (*dto.WebhookResult, error) {
	dep, err := f.findDeposit(ctx, ev)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		log.Printf("%s webhook: no deposit matches (order=%q payment=%q), ignoring", ev.processor, ev.orderUUID, ev.paymentID)
		return &dto.WebhookResult{Ignored: true, Message: "no matching deposit"}, nil
	}
	// A deposit already credited (by an admin or an earlier callback) is
	// terminal for webhooks; retried or late callbacks acknowledge without
	// touching the ledger again.
	if dep.IsCredited() {
		return &dto.WebhookResult{
			Ignored:     true,
			DepositUUID: dep.UUID.String(),
			Status:      string(dep.Status),
			Message:     "deposit already credited",
		}, nil
	}
	if !ev.actionable {
		return &dto.WebhookResult{
			Ignored:     true,
			DepositUUID: dep.UUID.String(),
			Message:     fmt.Sprintf("intermediate status %q acknowledged", ev.rawStatus),
		}, nil
	}

	resp, err := f.depositFlow.ApplyStatus(ctx, &dto.DepositStatusRequest{
		DepositID: dep.ID,
		Status:    string(ev.target),
		ByAdmin:   false,
	}, metadata)
	if err != nil {
		return nil, err
	}
	return &dto.WebhookResult{
		Processed:   !resp.AlreadyApplied,
		Ignored:     resp.AlreadyApplied,
		DepositUUID: resp.DepositUUID,
		Status:      resp.Status,
		Message:     resp.Message,
	}, nil
}

// findDeposit tries the correlation keys in order of reliability: the
// deposit UUID the processor echoes back, then the processor transaction
// id, then the payment address.
func (f *WebhookFlowImpl) findDeposit(ctx context.Context, ev ipnEvent) (*models.Deposit, error) {
	if ev.orderUUID != "" {
		dep, err := f.depositRepo.ByUUID(ctx, ev.orderUUID)
		if err != nil {
			return nil, err
		}
		if dep != nil {
			return dep, nil
		}
	}
	if ev.invoiceID != "" {
		dep, err := f.depositRepo.ByInvoiceID(ctx, ev.invoiceID)
		if err != nil {
			return nil, err
		}
		if dep != nil {
			return dep, nil
		}
	}
	if ev.paymentID != "" {
		dep, err := f.depositRepo.ByPaymentID(ctx, ev.paymentID)
		if err != nil {
			return nil, err
		}
		if dep != nil {
			return dep, nil
		}
	}
	if ev.paymentAddress != "" {
		dep, err := f.depositRepo.ByPaymentAddress(ctx, ev.paymentAddress)
		if err != nil {
			return nil, err
		}
		if dep != nil {
			return dep, nil
		}
	}
	return nil, nil
}
