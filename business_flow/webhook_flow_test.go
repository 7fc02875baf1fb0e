package businessflow

import (
	"context"
	"fmt"
	"net/url"
	"testing"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFlowHarness struct {
	deposits   *depositFlowHarness
	cpVerifier *stubVerifier
	npVerifier *stubVerifier
	flow       WebhookFlow
}

func newWebhookFlowHarness() *webhookFlowHarness {
	h := &webhookFlowHarness{
		deposits:   newDepositFlowHarness(),
		cpVerifier: &stubVerifier{ok: true},
		npVerifier: &stubVerifier{ok: true},
	}
	h.flow = NewWebhookFlow(h.deposits.depositRepo, h.deposits.flow, h.cpVerifier, h.npVerifier)
	return h
}

func (h *webhookFlowHarness) pendingDeposit(amount float64) (*models.User, *models.Deposit) {
	u := h.deposits.user()
	dep := h.deposits.depositRepo.add(&models.Deposit{
		UserID:         u.ID,
		Amount:         amount,
		Plan:           models.DepositPlanGold,
		Method:         "coinpayments",
		Status:         models.DepositStatusPending,
		InvoiceID:      "CP-555",
		PaymentAddress: "bc1qincoming",
	})
	return u, dep
}

func cpBody(status string, kv map[string]string) []byte {
	form := url.Values{}
	form.Set("status", status)
	for k, v := range kv {
		form.Set(k, v)
	}
	return []byte(form.Encode())
}

func TestCoinPaymentsRejectsBadSignature(t *testing.T) {
	h := newWebhookFlowHarness()
	h.cpVerifier.ok = false

	_, err := h.flow.HandleCoinPayments(context.Background(), "sig", cpBody("100", nil), meta())
	assert.True(t, IsInvalidWebhookSignature(err))
}

func TestCoinPaymentsMalformedPayload(t *testing.T) {
	h := newWebhookFlowHarness()

	_, err := h.flow.HandleCoinPayments(context.Background(), "sig", cpBody("not-a-number", nil), meta())
	assert.True(t, IsMalformedWebhookPayload(err))

	_, err = h.flow.HandleCoinPayments(context.Background(), "sig", []byte("%zz"), meta())
	assert.True(t, IsMalformedWebhookPayload(err))
}

func TestCoinPaymentsCompleteCreditsDeposit(t *testing.T) {
	h := newWebhookFlowHarness()
	u, dep := h.pendingDeposit(400)

	result, err := h.flow.HandleCoinPayments(context.Background(), "sig",
		cpBody("100", map[string]string{"custom": dep.UUID.String()}), meta())
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, dep.UUID.String(), result.DepositUUID)

	stored, _ := h.deposits.depositRepo.ByID(context.Background(), dep.ID)
	assert.Equal(t, models.DepositStatusCompleted, stored.Status)
	// Webhook completion never stamps the admin eligibility timestamp
	assert.Nil(t, stored.ProfitEligibleAt)

	after := h.deposits.userRepo.mustGet(u.ID)
	assert.Equal(t, 400.0, after.Balance)
	assert.Equal(t, 400.0, after.TotalDeposits)
}

func TestCoinPaymentsRedeliveryIsIgnored(t *testing.T) {
	h := newWebhookFlowHarness()
	u, dep := h.pendingDeposit(400)
	body := cpBody("100", map[string]string{"custom": dep.UUID.String()})

	_, err := h.flow.HandleCoinPayments(context.Background(), "sig", body, meta())
	require.NoError(t, err)

	result, err := h.flow.HandleCoinPayments(context.Background(), "sig", body, meta())
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.False(t, result.Processed)

	// No double credit on re-delivery
	after := h.deposits.userRepo.mustGet(u.ID)
	assert.Equal(t, 400.0, after.Balance)
}

func TestWebhookAfterAdminApprovalDoesNotDoubleCredit(t *testing.T) {
	h := newWebhookFlowHarness()
	u, dep := h.pendingDeposit(400)

	_, err := h.deposits.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{
		DepositID: dep.ID,
		Status:    "approved",
		ByAdmin:   true,
	}, meta())
	require.NoError(t, err)
	require.Equal(t, 400.0, h.deposits.userRepo.mustGet(u.ID).Balance)

	// The processor's late callback for the same deposit is acknowledged
	// without running the credit transition again
	body := fmt.Sprintf(`{"payment_status":"finished","order_id":%q}`, dep.UUID.String())
	result, err := h.flow.HandleNOWPayments(context.Background(), "sig", []byte(body), meta())
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.False(t, result.Processed)
	assert.Equal(t, "approved", result.Status)

	stored, _ := h.deposits.depositRepo.ByID(context.Background(), dep.ID)
	assert.Equal(t, models.DepositStatusApproved, stored.Status)

	after := h.deposits.userRepo.mustGet(u.ID)
	assert.Equal(t, 400.0, after.Balance)
	assert.Equal(t, 400.0, after.TotalDeposits)
	assert.Equal(t, 400.0, after.ActiveDeposit)
	assert.Equal(t, 400.0, after.Wallets["coinpayments"])
}

func TestCoinPaymentsIntermediateStatusAcknowledged(t *testing.T) {
	h := newWebhookFlowHarness()
	u, dep := h.pendingDeposit(400)

	result, err := h.flow.HandleCoinPayments(context.Background(), "sig",
		cpBody("1", map[string]string{"custom": dep.UUID.String()}), meta())
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Contains(t, result.Message, "intermediate status")

	stored, _ := h.deposits.depositRepo.ByID(context.Background(), dep.ID)
	assert.Equal(t, models.DepositStatusPending, stored.Status)
	assert.Zero(t, h.deposits.userRepo.mustGet(u.ID).Balance)
}

func TestCoinPaymentsNegativeStatusRejects(t *testing.T) {
	h := newWebhookFlowHarness()
	u, dep := h.pendingDeposit(400)

	result, err := h.flow.HandleCoinPayments(context.Background(), "sig",
		cpBody("-1", map[string]string{"custom": dep.UUID.String()}), meta())
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "rejected", result.Status)

	stored, _ := h.deposits.depositRepo.ByID(context.Background(), dep.ID)
	assert.Equal(t, models.DepositStatusRejected, stored.Status)
	assert.Zero(t, h.deposits.userRepo.mustGet(u.ID).Balance)
}

func TestCoinPaymentsFallsBackToInvoiceID(t *testing.T) {
	h := newWebhookFlowHarness()
	_, dep := h.pendingDeposit(400)

	result, err := h.flow.HandleCoinPayments(context.Background(), "sig",
		cpBody("2", map[string]string{"txn_id": dep.InvoiceID}), meta())
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, dep.UUID.String(), result.DepositUUID)
}

func TestWebhookUnknownCorrelationIsIgnored(t *testing.T) {
	h := newWebhookFlowHarness()
	h.pendingDeposit(400)

	result, err := h.flow.HandleCoinPayments(context.Background(), "sig",
		cpBody("100", map[string]string{"custom": "00000000-0000-0000-0000-000000000000"}), meta())
	require.NoError(t, err)
	assert.True(t, result.Ignored)
	assert.Equal(t, "no matching deposit", result.Message)
}

func TestNOWPaymentsRejectsBadSignature(t *testing.T) {
	h := newWebhookFlowHarness()
	h.npVerifier.ok = false

	_, err := h.flow.HandleNOWPayments(context.Background(), "sig", []byte(`{}`), meta())
	assert.True(t, IsInvalidWebhookSignature(err))
}

func TestNOWPaymentsMalformedPayload(t *testing.T) {
	h := newWebhookFlowHarness()

	_, err := h.flow.HandleNOWPayments(context.Background(), "sig", []byte(`not json`), meta())
	assert.True(t, IsMalformedWebhookPayload(err))
}

func TestNOWPaymentsFinishedCreditsDeposit(t *testing.T) {
	h := newWebhookFlowHarness()
	u, dep := h.pendingDeposit(250)

	body := fmt.Sprintf(`{"payment_id":123456,"payment_status":"finished","order_id":%q}`, dep.UUID.String())
	result, err := h.flow.HandleNOWPayments(context.Background(), "sig", []byte(body), meta())
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "completed", result.Status)

	after := h.deposits.userRepo.mustGet(u.ID)
	assert.Equal(t, 250.0, after.Balance)
}

func TestNOWPaymentsFailedRejectsDeposit(t *testing.T) {
	h := newWebhookFlowHarness()
	u, dep := h.pendingDeposit(250)

	body := fmt.Sprintf(`{"payment_status":"failed","order_id":%q}`, dep.UUID.String())
	result, err := h.flow.HandleNOWPayments(context.Background(), "sig", []byte(body), meta())
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, "rejected", result.Status)
	assert.Zero(t, h.deposits.userRepo.mustGet(u.ID).Balance)
}

func TestNOWPaymentsWaitingStatusAcknowledged(t *testing.T) {
	h := newWebhookFlowHarness()
	_, dep := h.pendingDeposit(250)

	body := fmt.Sprintf(`{"payment_status":"waiting","order_id":%q}`, dep.UUID.String())
	result, err := h.flow.HandleNOWPayments(context.Background(), "sig", []byte(body), meta())
	require.NoError(t, err)
	assert.True(t, result.Ignored)

	stored, _ := h.deposits.depositRepo.ByID(context.Background(), dep.ID)
	assert.Equal(t, models.DepositStatusPending, stored.Status)
}

func TestNOWPaymentsMatchesByPaymentAddress(t *testing.T) {
	h := newWebhookFlowHarness()
	_, dep := h.pendingDeposit(250)

	body := `{"payment_status":"confirmed","pay_address":"bc1qincoming"}`
	result, err := h.flow.HandleNOWPayments(context.Background(), "sig", []byte(body), meta())
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.Equal(t, dep.UUID.String(), result.DepositUUID)
}
