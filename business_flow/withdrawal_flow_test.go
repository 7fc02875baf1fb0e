package businessflow

import (
	"context"
	"testing"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type withdrawalFlowHarness struct {
	userRepo       *fakeUserRepo
	withdrawalRepo *fakeWithdrawalRepo
	notifRepo      *fakeNotificationRepo
	notifier       *stubNotifier
	flow           WithdrawalFlow
}

func newWithdrawalFlowHarness() *withdrawalFlowHarness {
	h := &withdrawalFlowHarness{
		userRepo:       newFakeUserRepo(),
		withdrawalRepo: newFakeWithdrawalRepo(),
		notifRepo:      newFakeNotificationRepo(),
		notifier:       &stubNotifier{},
	}
	h.flow = NewWithdrawalFlow(h.userRepo, h.withdrawalRepo, h.notifRepo, newFakeSettingsRepo(), h.notifier, nil)
	return h
}

func (h *withdrawalFlowHarness) fundedUser(method string, balance float64) *models.User {
	u := &models.User{
		Email:   "alice@example.com",
		Balance: balance,
		Wallets: map[string]float64{method: balance},
	}
	h.userRepo.add(u)
	return u
}

func TestWithdrawalRequestDebitsWalletOnly(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 500)

	resp, err := h.flow.Request(context.Background(), &dto.CreateWithdrawalRequest{
		UserID:        u.ID,
		Processor:     "btc",
		Amount:        200,
		WalletAddress: "bc1qpayout",
	}, meta())
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "bc1qpayout", resp.WalletAddress)
	assert.Equal(t, 200.0, resp.Amount)

	// The hold comes out of the per-method sub-balance; the aggregate
	// balance figure is untouched.
	after := h.userRepo.mustGet(u.ID)
	assert.Equal(t, 300.0, after.Wallets["btc"])
	assert.Equal(t, 500.0, after.Balance)

	notifs := h.notifRepo.forUser(u.ID)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationTypeWithdrawal, notifs[0].Type)
}

func TestWithdrawalRequestFallsBackToStoredAddress(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := &models.User{
		Email:           "alice@example.com",
		Wallets:         map[string]float64{"eth": 100},
		WalletAddresses: map[string]string{"eth": "0xstoredaddress"},
	}
	h.userRepo.add(u)

	resp, err := h.flow.Request(context.Background(), &dto.CreateWithdrawalRequest{
		UserID:    u.ID,
		Processor: "eth",
		Amount:    50,
	}, meta())
	require.NoError(t, err)
	assert.Equal(t, "0xstoredaddress", resp.WalletAddress)
}

func TestWithdrawalRequestNoAddress(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 500)

	_, err := h.flow.Request(context.Background(), &dto.CreateWithdrawalRequest{
		UserID:    u.ID,
		Processor: "btc",
		Amount:    100,
	}, meta())
	assert.True(t, IsWalletAddressRequired(err))
}

func TestWithdrawalRequestInsufficientBalance(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 50)

	_, err := h.flow.Request(context.Background(), &dto.CreateWithdrawalRequest{
		UserID:        u.ID,
		Processor:     "btc",
		Amount:        100,
		WalletAddress: "bc1qpayout",
	}, meta())
	assert.True(t, IsInsufficientWalletBalance(err))

	// Nothing was debited
	after := h.userRepo.mustGet(u.ID)
	assert.Equal(t, 50.0, after.Wallets["btc"])
}

func TestWithdrawalRequestBelowMinimum(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 500)

	// Settings default minimum is 10
	_, err := h.flow.Request(context.Background(), &dto.CreateWithdrawalRequest{
		UserID:        u.ID,
		Processor:     "btc",
		Amount:        5,
		WalletAddress: "bc1qpayout",
	}, meta())
	assert.True(t, IsWithdrawalBelowMinimum(err))
}

func TestWithdrawalRequestValidation(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 500)

	_, err := h.flow.Request(context.Background(), &dto.CreateWithdrawalRequest{UserID: u.ID, Processor: "btc", Amount: 0}, meta())
	assert.True(t, IsAmountRequired(err))

	_, err = h.flow.Request(context.Background(), &dto.CreateWithdrawalRequest{UserID: u.ID, Processor: "", Amount: 100}, meta())
	assert.True(t, IsUnsupportedMethod(err))
}

func TestWithdrawalDecideApprove(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 500)
	w := &models.Withdrawal{UserID: u.ID, Processor: "btc", Amount: 100, WalletAddress: "bc1qpayout", Status: models.WithdrawalStatusPending}
	require.NoError(t, h.withdrawalRepo.Save(context.Background(), w))

	resp, err := h.flow.Decide(context.Background(), &dto.WithdrawalDecisionRequest{WithdrawalID: w.ID, Status: "approved"}, meta())
	require.NoError(t, err)
	assert.Equal(t, "approved", resp.Status)

	notifs := h.notifRepo.forUser(u.ID)
	require.Len(t, notifs, 1)
	assert.Equal(t, "Withdrawal approved", notifs[0].Title)
	require.Len(t, h.notifier.sent, 1)
	assert.Equal(t, "alice@example.com|Withdrawal approved", h.notifier.sent[0])
}

func TestWithdrawalDecideSameStatusIsNoOp(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 500)
	w := &models.Withdrawal{UserID: u.ID, Processor: "btc", Amount: 100, WalletAddress: "bc1qpayout", Status: models.WithdrawalStatusPending}
	require.NoError(t, h.withdrawalRepo.Save(context.Background(), w))

	_, err := h.flow.Decide(context.Background(), &dto.WithdrawalDecisionRequest{WithdrawalID: w.ID, Status: "approved"}, meta())
	require.NoError(t, err)

	// Re-sending the same decision succeeds without repeating the
	// notification or the email
	resp, err := h.flow.Decide(context.Background(), &dto.WithdrawalDecisionRequest{WithdrawalID: w.ID, Status: "approved"}, meta())
	require.NoError(t, err)
	assert.Equal(t, "approved", resp.Status)
	assert.Len(t, h.notifRepo.forUser(u.ID), 1)
	assert.Len(t, h.notifier.sent, 1)
}

func TestWithdrawalDecideTwiceFails(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 500)
	w := &models.Withdrawal{UserID: u.ID, Processor: "btc", Amount: 100, WalletAddress: "bc1qpayout", Status: models.WithdrawalStatusPending}
	require.NoError(t, h.withdrawalRepo.Save(context.Background(), w))

	_, err := h.flow.Decide(context.Background(), &dto.WithdrawalDecisionRequest{WithdrawalID: w.ID, Status: "approved"}, meta())
	require.NoError(t, err)

	_, err = h.flow.Decide(context.Background(), &dto.WithdrawalDecisionRequest{WithdrawalID: w.ID, Status: "rejected"}, meta())
	assert.True(t, IsWithdrawalAlreadyDecided(err))
}

func TestWithdrawalRejectDoesNotRefund(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 500)

	resp, err := h.flow.Request(context.Background(), &dto.CreateWithdrawalRequest{
		UserID:        u.ID,
		Processor:     "btc",
		Amount:        200,
		WalletAddress: "bc1qpayout",
	}, meta())
	require.NoError(t, err)

	_, err = h.flow.Decide(context.Background(), &dto.WithdrawalDecisionRequest{WithdrawalID: resp.ID, Status: "rejected"}, meta())
	require.NoError(t, err)

	// The hold stays debited after a rejection
	after := h.userRepo.mustGet(u.ID)
	assert.Equal(t, 300.0, after.Wallets["btc"])
}

func TestWithdrawalDecideInvalidStatus(t *testing.T) {
	h := newWithdrawalFlowHarness()
	_, err := h.flow.Decide(context.Background(), &dto.WithdrawalDecisionRequest{WithdrawalID: 1, Status: "pending"}, meta())
	require.Error(t, err)

	_, err = h.flow.Decide(context.Background(), &dto.WithdrawalDecisionRequest{WithdrawalID: 999, Status: "approved"}, meta())
	assert.True(t, IsWithdrawalNotFound(err))
}

func TestWithdrawalListPending(t *testing.T) {
	h := newWithdrawalFlowHarness()
	u := h.fundedUser("btc", 500)

	pending := &models.Withdrawal{UserID: u.ID, Processor: "btc", Amount: 50, WalletAddress: "bc1qpayout", Status: models.WithdrawalStatusPending}
	decided := &models.Withdrawal{UserID: u.ID, Processor: "btc", Amount: 60, WalletAddress: "bc1qpayout", Status: models.WithdrawalStatusApproved}
	require.NoError(t, h.withdrawalRepo.Save(context.Background(), pending))
	require.NoError(t, h.withdrawalRepo.Save(context.Background(), decided))

	out, err := h.flow.ListPending(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, pending.ID, out[0].ID)
}
