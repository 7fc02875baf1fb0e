package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour
)

// Ledger constants
const (
	// ReferralCommissionRate is the one-time commission paid to a referrer
	// on the referred user's first credited deposit (7%)
	ReferralCommissionRate = 0.07

	// DailyProfitMinPercent and DailyProfitMaxPercent bound the random
	// daily accrual percentage (inclusive)
	DailyProfitMinPercent = 1
	DailyProfitMaxPercent = 5

	// ProfitEligibilityDelay is stamped on deposits approved by an admin
	ProfitEligibilityDelay = 24 * time.Hour

	// USDCurrency is the platform's fiat denomination
	USDCurrency = "USD"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
