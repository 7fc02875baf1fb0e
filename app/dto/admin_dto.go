// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// UserListResponse carries a page of users plus the overall count
type UserListResponse struct {
	Users []UserDTO `json:"users"`
	Total int64     `json:"total" example:"420"`
}

// GrantBonusRequest credits a one-off bonus to a single user. Exactly one
// of Amount or Percent must be set; Percent applies to the user's bonus
// base (active deposit, else total deposits, else balance).
type GrantBonusRequest struct {
	UserID  uint    `json:"user_id" validate:"required" example:"123"`
	Amount  float64 `json:"amount" validate:"omitempty,gt=0" example:"50"`
	Percent float64 `json:"percent" validate:"omitempty,gt=0,lte=100" example:"3"`
}

// BonusResult reports a granted bonus
type BonusResult struct {
	UserUUID string  `json:"user_uuid"`
	Amount   float64 `json:"amount" example:"50"`
}

// BulkBonusResult summarizes a tiered bulk bonus run
type BulkBonusResult struct {
	UsersGranted int     `json:"users_granted" example:"37"`
	UsersSkipped int     `json:"users_skipped" example:"12"`
	UsersFailed  int     `json:"users_failed" example:"0"`
	TotalGranted float64 `json:"total_granted" example:"1234.56"`
}

// ProfitSweepResult summarizes one daily profit run
type ProfitSweepResult struct {
	RanAt          time.Time `json:"ran_at"`
	UsersProcessed int       `json:"users_processed" example:"37"`
	UsersSkipped   int       `json:"users_skipped" example:"12"`
	UsersFailed    int       `json:"users_failed" example:"0"`
	TotalProfit    float64   `json:"total_profit" example:"987.65"`
}

// PlatformStats aggregates the admin dashboard figures
type PlatformStats struct {
	TotalUsers         int64              `json:"total_users" example:"420"`
	DepositSumByStatus map[string]float64 `json:"deposit_sum_by_status"`
	WithdrawalSum      float64            `json:"withdrawal_sum" example:"5400"`
	PendingDeposits    int64              `json:"pending_deposits" example:"3"`
	PendingWithdrawals int64              `json:"pending_withdrawals" example:"2"`
}

// UpdateSettingsRequest patches the settings singleton; nil fields are
// left unchanged
type UpdateSettingsRequest struct {
	BrandName     *string  `json:"brand_name" validate:"omitempty,max=100"`
	MinDeposit    *float64 `json:"min_deposit" validate:"omitempty,gte=0"`
	MaxDeposit    *float64 `json:"max_deposit" validate:"omitempty,gte=0"`
	MinWithdrawal *float64 `json:"min_withdrawal" validate:"omitempty,gte=0"`
	TwoFAEnabled  *bool    `json:"two_fa_enabled"`
}
