package businessflow

import (
	"context"
	"testing"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/app/services"
	"github.com/crestvault/crestvault/config"
	"github.com/crestvault/crestvault/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type depositFlowHarness struct {
	userRepo    *fakeUserRepo
	depositRepo *fakeDepositRepo
	notifRepo   *fakeNotificationRepo
	notifier    *stubNotifier
	provider    *stubProvider
	flow        DepositFlow
}

func newDepositFlowHarness() *depositFlowHarness {
	h := &depositFlowHarness{
		userRepo:    newFakeUserRepo(),
		depositRepo: newFakeDepositRepo(),
		notifRepo:   newFakeNotificationRepo(),
		notifier:    &stubNotifier{},
		provider: &stubProvider{
			name: "coinpayments",
			result: services.CreateTransactionResult{
				InvoiceID:      "CP-1001",
				PaymentAddress: "bc1qdeposit",
				PaymentURL:     "https://pay.example/cp-1001",
			},
		},
	}
	h.flow = NewDepositFlow(
		h.userRepo,
		h.depositRepo,
		h.notifRepo,
		newFakeSettingsRepo(),
		h.notifier,
		map[string]services.PaymentProvider{"coinpayments": h.provider, "default": h.provider},
		nil,
		config.DeploymentConfig{APIDomain: "api.crestvault.com"},
	)
	return h
}

func (h *depositFlowHarness) user() *models.User {
	u := &models.User{Email: "alice@example.com", IsVerified: true}
	h.userRepo.add(u)
	return u
}

func meta() *ClientMetadata { return NewClientMetadata("127.0.0.1", "test-agent") }

func TestCreateDepositAutomated(t *testing.T) {
	h := newDepositFlowHarness()
	u := h.user()

	resp, err := h.flow.Create(context.Background(), &dto.CreateDepositRequest{
		UserID: u.ID,
		Amount: 1000,
		Plan:   "gold",
		Method: "coinpayments",
	}, meta())
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "Gold", resp.Plan)
	assert.Equal(t, "bc1qdeposit", resp.PaymentAddress)
	assert.Equal(t, "https://pay.example/cp-1001", resp.PaymentURL)

	// The deposit UUID round-trips as the processor order id
	assert.Equal(t, resp.DepositUUID, h.provider.lastInput.OrderID)
	assert.Equal(t, "https://api.crestvault.com/api/v1/webhooks/coinpayments", h.provider.lastInput.CallbackURL)

	dep, err := h.depositRepo.ByUUID(context.Background(), resp.DepositUUID)
	require.NoError(t, err)
	require.NotNil(t, dep)
	assert.Equal(t, "CP-1001", dep.InvoiceID)
	assert.Equal(t, models.DepositStatusPending, dep.Status)

	// No ledger movement until the deposit is credited
	after := h.userRepo.mustGet(u.ID)
	assert.Zero(t, after.Balance)
	assert.Zero(t, after.TotalDeposits)
}

func TestCreateDepositManualPayPal(t *testing.T) {
	h := newDepositFlowHarness()
	u := h.user()

	resp, err := h.flow.Create(context.Background(), &dto.CreateDepositRequest{
		UserID: u.ID,
		Amount: 200,
		Plan:   "bronze",
		Method: models.MethodPayPalManual,
	}, meta())
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.Status)
	assert.Empty(t, resp.PaymentAddress)
	// The manual channel never reaches a processor
	assert.Empty(t, h.provider.lastInput.OrderID)

	notifs := h.notifRepo.forUser(u.ID)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationTypeDeposit, notifs[0].Type)
}

func TestCreateDepositValidation(t *testing.T) {
	h := newDepositFlowHarness()
	u := h.user()

	_, err := h.flow.Create(context.Background(), &dto.CreateDepositRequest{UserID: u.ID, Amount: 0, Plan: "gold", Method: "coinpayments"}, meta())
	assert.True(t, IsAmountRequired(err))

	_, err = h.flow.Create(context.Background(), &dto.CreateDepositRequest{UserID: u.ID, Amount: 100, Plan: "obsidian", Method: "coinpayments"}, meta())
	assert.True(t, IsUnknownPlan(err))

	// Settings default minimum is 50
	_, err = h.flow.Create(context.Background(), &dto.CreateDepositRequest{UserID: u.ID, Amount: 20, Plan: "gold", Method: "coinpayments"}, meta())
	assert.True(t, IsDepositOutOfLimits(err))

	_, err = h.flow.Create(context.Background(), &dto.CreateDepositRequest{UserID: u.ID, Amount: 500000, Plan: "gold", Method: "coinpayments"}, meta())
	assert.True(t, IsDepositOutOfLimits(err))
}

func TestCreateDepositProviderFailureKeepsRow(t *testing.T) {
	h := newDepositFlowHarness()
	h.provider.fail = true
	u := h.user()

	_, err := h.flow.Create(context.Background(), &dto.CreateDepositRequest{
		UserID: u.ID,
		Amount: 100,
		Plan:   "silver",
		Method: "coinpayments",
	}, meta())
	require.Error(t, err)

	// The pending row survives the processor failure for an admin to act on
	deps, err := h.depositRepo.ListByUser(context.Background(), u.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, models.DepositStatusPending, deps[0].Status)
}

func TestApplyStatusAdminApproveCreditsLedger(t *testing.T) {
	h := newDepositFlowHarness()
	u := h.user()
	dep := h.depositRepo.add(&models.Deposit{UserID: u.ID, Amount: 1000, Plan: models.DepositPlanGold, Method: "coinpayments", Status: models.DepositStatusPending})

	resp, err := h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: dep.ID, Status: "approved", ByAdmin: true}, meta())
	require.NoError(t, err)
	assert.Equal(t, "approved", resp.Status)
	assert.False(t, resp.AlreadyApplied)

	after := h.userRepo.mustGet(u.ID)
	assert.Equal(t, 1000.0, after.Balance)
	assert.Equal(t, 1000.0, after.Wallets["coinpayments"])
	assert.Equal(t, 1000.0, after.ActiveDeposit)
	assert.Equal(t, 1000.0, after.TotalDeposits)

	stored, _ := h.depositRepo.ByID(context.Background(), dep.ID)
	assert.Equal(t, models.DepositStatusApproved, stored.Status)
	// Admin approval stamps the eligibility timestamp; webhooks do not
	assert.NotNil(t, stored.ProfitEligibleAt)

	notifs := h.notifRepo.forUser(u.ID)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationTypeDeposit, notifs[0].Type)
	assert.Equal(t, "Deposit credited", notifs[0].Title)
	assert.Len(t, h.notifier.sent, 1)
}

func TestApplyStatusWebhookCompleteCreditsLedger(t *testing.T) {
	h := newDepositFlowHarness()
	u := h.user()
	dep := h.depositRepo.add(&models.Deposit{UserID: u.ID, Amount: 250, Plan: models.DepositPlanSilver, Method: "coinpayments", Status: models.DepositStatusPending})

	resp, err := h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: dep.ID, Status: "completed", ByAdmin: false}, meta())
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)

	stored, _ := h.depositRepo.ByID(context.Background(), dep.ID)
	assert.Equal(t, models.DepositStatusCompleted, stored.Status)
	assert.Nil(t, stored.ProfitEligibleAt)

	after := h.userRepo.mustGet(u.ID)
	assert.Equal(t, 250.0, after.Balance)
}

func TestApplyStatusSameStatusIsNoOp(t *testing.T) {
	h := newDepositFlowHarness()
	u := h.user()
	dep := h.depositRepo.add(&models.Deposit{UserID: u.ID, Amount: 1000, Plan: models.DepositPlanGold, Method: "coinpayments", Status: models.DepositStatusPending})

	_, err := h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: dep.ID, Status: "approved", ByAdmin: true}, meta())
	require.NoError(t, err)

	resp, err := h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: dep.ID, Status: "approved", ByAdmin: true}, meta())
	require.NoError(t, err)
	assert.True(t, resp.AlreadyApplied)
	assert.Equal(t, "Deposit already approved", resp.Message)

	// No double credit
	after := h.userRepo.mustGet(u.ID)
	assert.Equal(t, 1000.0, after.Balance)
	assert.Equal(t, 1000.0, after.TotalDeposits)
}

func TestApplyStatusRejectLeavesLedgerUntouched(t *testing.T) {
	h := newDepositFlowHarness()
	u := h.user()
	dep := h.depositRepo.add(&models.Deposit{UserID: u.ID, Amount: 300, Plan: models.DepositPlanBronze, Method: "coinpayments", Status: models.DepositStatusPending})

	resp, err := h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: dep.ID, Status: "rejected", ByAdmin: true}, meta())
	require.NoError(t, err)
	assert.Equal(t, "rejected", resp.Status)

	after := h.userRepo.mustGet(u.ID)
	assert.Zero(t, after.Balance)
	assert.Zero(t, after.TotalDeposits)
}

func TestApplyStatusUnknownDeposit(t *testing.T) {
	h := newDepositFlowHarness()
	_, err := h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: 999, Status: "approved", ByAdmin: true}, meta())
	assert.True(t, IsDepositNotFound(err))
}

func TestReferralCommissionPaidOnce(t *testing.T) {
	h := newDepositFlowHarness()
	referrer := h.user()
	referred := &models.User{Email: "bob@example.com", IsVerified: true, ReferredBy: &referrer.ID}
	h.userRepo.add(referred)

	first := h.depositRepo.add(&models.Deposit{UserID: referred.ID, Amount: 500, Plan: models.DepositPlanGold, Method: "coinpayments", Status: models.DepositStatusPending})
	_, err := h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: first.ID, Status: "completed"}, meta())
	require.NoError(t, err)

	// 7% of 500 lands on the referrer's balance and referral earnings
	ref := h.userRepo.mustGet(referrer.ID)
	assert.InDelta(t, 35.0, ref.ReferralEarnings, 1e-9)
	assert.InDelta(t, 35.0, ref.Balance, 1e-9)

	bob := h.userRepo.mustGet(referred.ID)
	assert.True(t, bob.ReferralBonusPaid)
	storedFirst, _ := h.depositRepo.ByID(context.Background(), first.ID)
	assert.True(t, storedFirst.ReferralPaid)

	refNotifs := h.notifRepo.forUser(referrer.ID)
	require.Len(t, refNotifs, 1)
	assert.Equal(t, models.NotificationTypeReferral, refNotifs[0].Type)

	// A second credited deposit pays nothing more
	second := h.depositRepo.add(&models.Deposit{UserID: referred.ID, Amount: 500, Plan: models.DepositPlanGold, Method: "coinpayments", Status: models.DepositStatusPending})
	_, err = h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: second.ID, Status: "completed"}, meta())
	require.NoError(t, err)

	ref = h.userRepo.mustGet(referrer.ID)
	assert.InDelta(t, 35.0, ref.ReferralEarnings, 1e-9)
}

func TestReferralSkippedWhenPriorCreditExists(t *testing.T) {
	h := newDepositFlowHarness()
	referrer := h.user()
	referred := &models.User{Email: "bob@example.com", ReferredBy: &referrer.ID}
	h.userRepo.add(referred)

	// An earlier credited deposit that never paid a commission
	h.depositRepo.add(&models.Deposit{UserID: referred.ID, Amount: 100, Plan: models.DepositPlanBronze, Method: "coinpayments", Status: models.DepositStatusCompleted})

	dep := h.depositRepo.add(&models.Deposit{UserID: referred.ID, Amount: 500, Plan: models.DepositPlanGold, Method: "coinpayments", Status: models.DepositStatusPending})
	_, err := h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: dep.ID, Status: "completed"}, meta())
	require.NoError(t, err)

	ref := h.userRepo.mustGet(referrer.ID)
	assert.Zero(t, ref.ReferralEarnings)
}

func TestReferralMissingReferrerIsSilentSkip(t *testing.T) {
	h := newDepositFlowHarness()
	ghost := uint(404)
	referred := &models.User{Email: "bob@example.com", ReferredBy: &ghost}
	h.userRepo.add(referred)

	dep := h.depositRepo.add(&models.Deposit{UserID: referred.ID, Amount: 500, Plan: models.DepositPlanGold, Method: "coinpayments", Status: models.DepositStatusPending})
	_, err := h.flow.ApplyStatus(context.Background(), &dto.DepositStatusRequest{DepositID: dep.ID, Status: "completed"}, meta())
	require.NoError(t, err)

	// The credit itself still lands
	bob := h.userRepo.mustGet(referred.ID)
	assert.Equal(t, 500.0, bob.Balance)
	assert.False(t, bob.ReferralBonusPaid)
}

func TestAdminAddForUserCreditsImmediately(t *testing.T) {
	h := newDepositFlowHarness()
	u := h.user()

	resp, err := h.flow.AddForUser(context.Background(), &dto.AdminAddDepositRequest{
		UserID: u.ID,
		Amount: 750,
		Plan:   "platinum",
		Method: "coinpayments",
	}, meta())
	require.NoError(t, err)
	assert.Equal(t, "approved", resp.Status)

	after := h.userRepo.mustGet(u.ID)
	assert.Equal(t, 750.0, after.Balance)
	assert.Equal(t, 750.0, after.ActiveDeposit)
}
