package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePlan(t *testing.T) {
	cases := []struct {
		in   string
		want DepositPlan
		ok   bool
	}{
		{"Gold", DepositPlanGold, true},
		{"gold", DepositPlanGold, true},
		{"  GOLD  ", DepositPlanGold, true},
		{"gold plan", DepositPlanGold, true},
		{"Bronze", DepositPlanBronze, true},
		{"silver", DepositPlanSilver, true},
		{"diamond", DepositPlanDiamond, true},
		{"platinum tier", DepositPlanPlatinum, true},
		{"", "", false},
		{"obsidian", "", false},
		{"go", "", false},
	}
	for _, c := range cases {
		got, ok := NormalizePlan(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestDepositIsCredited(t *testing.T) {
	assert.False(t, (&Deposit{Status: DepositStatusPending}).IsCredited())
	assert.False(t, (&Deposit{Status: DepositStatusRejected}).IsCredited())
	assert.True(t, (&Deposit{Status: DepositStatusApproved}).IsCredited())
	assert.True(t, (&Deposit{Status: DepositStatusCompleted}).IsCredited())
}
