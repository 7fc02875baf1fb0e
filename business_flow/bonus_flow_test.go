package businessflow

import (
	"context"
	"testing"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bonusFlowHarness struct {
	userRepo  *fakeUserRepo
	notifRepo *fakeNotificationRepo
	notifier  *stubNotifier
	flow      BonusFlow
}

func newBonusFlowHarness() *bonusFlowHarness {
	h := &bonusFlowHarness{
		userRepo:  newFakeUserRepo(),
		notifRepo: newFakeNotificationRepo(),
		notifier:  &stubNotifier{},
	}
	h.flow = NewBonusFlow(h.userRepo, h.notifRepo, h.notifier, nil)
	return h
}

func TestGrantFixedAmount(t *testing.T) {
	h := newBonusFlowHarness()
	u := &models.User{Email: "alice@example.com", Balance: 100}
	h.userRepo.add(u)

	result, err := h.flow.Grant(context.Background(), &dto.GrantBonusRequest{UserID: u.ID, Amount: 50}, meta())
	require.NoError(t, err)
	assert.Equal(t, 50.0, result.Amount)

	after := h.userRepo.mustGet(u.ID)
	assert.Equal(t, 150.0, after.Balance)
	assert.Equal(t, 50.0, after.EarnedTotal)

	notifs := h.notifRepo.forUser(u.ID)
	require.Len(t, notifs, 1)
	assert.Equal(t, models.NotificationTypeBonus, notifs[0].Type)
	require.Len(t, h.notifier.sent, 1)
}

func TestGrantPercentOfBonusBase(t *testing.T) {
	h := newBonusFlowHarness()
	u := &models.User{Email: "alice@example.com", ActiveDeposit: 2000, Balance: 100}
	h.userRepo.add(u)

	result, err := h.flow.Grant(context.Background(), &dto.GrantBonusRequest{UserID: u.ID, Percent: 10}, meta())
	require.NoError(t, err)
	assert.InDelta(t, 200.0, result.Amount, 1e-9)

	after := h.userRepo.mustGet(u.ID)
	assert.InDelta(t, 300.0, after.Balance, 1e-9)
}

func TestGrantPercentFallsBackThroughBase(t *testing.T) {
	h := newBonusFlowHarness()
	// No active deposit, total deposits carry the base
	u := &models.User{Email: "alice@example.com", TotalDeposits: 1000, Balance: 50}
	h.userRepo.add(u)

	result, err := h.flow.Grant(context.Background(), &dto.GrantBonusRequest{UserID: u.ID, Percent: 5}, meta())
	require.NoError(t, err)
	assert.InDelta(t, 50.0, result.Amount, 1e-9)
}

func TestGrantRequiresValue(t *testing.T) {
	h := newBonusFlowHarness()
	u := &models.User{Email: "alice@example.com"}
	h.userRepo.add(u)

	_, err := h.flow.Grant(context.Background(), &dto.GrantBonusRequest{UserID: u.ID}, meta())
	assert.True(t, IsBonusValueRequired(err))

	// A percentage of a zero base is also rejected
	_, err = h.flow.Grant(context.Background(), &dto.GrantBonusRequest{UserID: u.ID, Percent: 5}, meta())
	assert.True(t, IsBonusValueRequired(err))
}

func TestTieredBonusPercent(t *testing.T) {
	assert.Equal(t, 1.0, tieredBonusPercent(100))
	assert.Equal(t, 1.0, tieredBonusPercent(5000))
	assert.Equal(t, 3.0, tieredBonusPercent(5001))
	assert.Equal(t, 3.0, tieredBonusPercent(10000))
	assert.Equal(t, 5.0, tieredBonusPercent(10001))
}

func TestGrantTieredToAll(t *testing.T) {
	h := newBonusFlowHarness()
	small := &models.User{Email: "small@example.com", ActiveDeposit: 1000}
	mid := &models.User{Email: "mid@example.com", ActiveDeposit: 8000}
	large := &models.User{Email: "large@example.com", ActiveDeposit: 20000}
	empty := &models.User{Email: "empty@example.com"}
	h.userRepo.add(small)
	h.userRepo.add(mid)
	h.userRepo.add(large)
	h.userRepo.add(empty)

	result, err := h.flow.GrantTieredToAll(context.Background(), meta())
	require.NoError(t, err)
	assert.Equal(t, 3, result.UsersGranted)
	assert.Equal(t, 1, result.UsersSkipped)
	assert.Zero(t, result.UsersFailed)
	// 1% of 1000 + 3% of 8000 + 5% of 20000
	assert.InDelta(t, 10+240+1000, result.TotalGranted, 1e-9)

	assert.InDelta(t, 10.0, h.userRepo.mustGet(small.ID).Balance, 1e-9)
	assert.InDelta(t, 240.0, h.userRepo.mustGet(mid.ID).Balance, 1e-9)
	assert.InDelta(t, 1000.0, h.userRepo.mustGet(large.ID).Balance, 1e-9)
	assert.Zero(t, h.userRepo.mustGet(empty.ID).Balance)
}
