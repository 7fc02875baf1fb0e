// Package businessflow contains the core business logic for the investment platform.
package businessflow

import (
	"context"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/models"
	"github.com/crestvault/crestvault/repository"
	"gorm.io/gorm"
)

// AdminFlow backs the admin screens: paginated listings, platform-wide
// statistics, and the settings singleton.
type AdminFlow interface {
	ListUsers(ctx context.Context, limit, offset int) (*dto.UserListResponse, error)
	ListDeposits(ctx context.Context, status string, limit, offset int) ([]dto.DepositDTO, error)
	ListWithdrawals(ctx context.Context, status string, limit, offset int) ([]dto.WithdrawalDTO, error)
	Stats(ctx context.Context) (*dto.PlatformStats, error)
	GetSettings(ctx context.Context) (*models.AdminSettings, error)
	UpdateSettings(ctx context.Context, req *dto.UpdateSettingsRequest) (*models.AdminSettings, error)
}

// AdminFlowImpl implements AdminFlow
type AdminFlowImpl struct {
	userRepo       repository.UserRepository
	depositRepo    repository.DepositRepository
	withdrawalRepo repository.WithdrawalRepository
	settingsRepo   repository.SettingsRepository
	db             *gorm.DB
}

func NewAdminFlow(
	userRepo repository.UserRepository,
	depositRepo repository.DepositRepository,
	withdrawalRepo repository.WithdrawalRepository,
	settingsRepo repository.SettingsRepository,
	db *gorm.DB,
) AdminFlow {
	return &AdminFlowImpl{
		userRepo:       userRepo,
		depositRepo:    depositRepo,
		withdrawalRepo: withdrawalRepo,
		settingsRepo:   settingsRepo,
		db:             db,
	}
}

func (f *AdminFlowImpl) ListUsers(ctx context.Context, limit, offset int) (*dto.UserListResponse, error) {
	users, err := f.userRepo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := f.userRepo.Count(ctx, models.UserFilter{})
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, dto.ToUserDTO(u))
	}
	return &dto.UserListResponse{Users: out, Total: total}, nil
}

func (f *AdminFlowImpl) ListDeposits(ctx context.Context, status string, limit, offset int) ([]dto.DepositDTO, error) {
	filter := models.DepositFilter{}
	if status != "" {
		s := models.DepositStatus(status)
		filter.Status = &s
	}
	deps, err := f.depositRepo.ByFilter(ctx, filter, "created_at DESC", limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DepositDTO, 0, len(deps))
	for _, d := range deps {
		out = append(out, dto.ToDepositDTO(d))
	}
	return out, nil
}

func (f *AdminFlowImpl) ListWithdrawals(ctx context.Context, status string, limit, offset int) ([]dto.WithdrawalDTO, error) {
	filter := models.WithdrawalFilter{}
	if status != "" {
		s := models.WithdrawalStatus(status)
		filter.Status = &s
	}
	ws, err := f.withdrawalRepo.ByFilter(ctx, filter, "created_at DESC", limit, offset)
	if err != nil {
		return nil, err
	}
	return toWithdrawalDTOs(ws), nil
}

// Stats aggregates the figures shown on the admin dashboard
func (f *AdminFlowImpl) Stats(ctx context.Context) (*dto.PlatformStats, error) {
	stats := &dto.PlatformStats{DepositSumByStatus: map[string]float64{}}

	var err error
	if stats.TotalUsers, err = f.userRepo.Count(ctx, models.UserFilter{}); err != nil {
		return nil, err
	}

	for _, s := range []models.DepositStatus{
		models.DepositStatusPending,
		models.DepositStatusApproved,
		models.DepositStatusRejected,
		models.DepositStatusCompleted,
	} {
		status := s
		deps, err := f.depositRepo.ByFilter(ctx, models.DepositFilter{Status: &status}, "", 0, 0)
		if err != nil {
			return nil, err
		}
		var sum float64
		for _, d := range deps {
			sum += d.Amount
		}
		stats.DepositSumByStatus[string(s)] = sum
		if s == models.DepositStatusPending {
			stats.PendingDeposits = int64(len(deps))
		}
	}

	pending := models.WithdrawalStatusPending
	pendingWs, err := f.withdrawalRepo.ByFilter(ctx, models.WithdrawalFilter{Status: &pending}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	stats.PendingWithdrawals = int64(len(pendingWs))

	approved := models.WithdrawalStatusApproved
	approvedWs, err := f.withdrawalRepo.ByFilter(ctx, models.WithdrawalFilter{Status: &approved}, "", 0, 0)
	if err != nil {
		return nil, err
	}
	for _, w := range approvedWs {
		stats.WithdrawalSum += w.Amount
	}

	return stats, nil
}

func (f *AdminFlowImpl) GetSettings(ctx context.Context) (*models.AdminSettings, error) {
	return f.settingsRepo.Get(ctx)
}

func (f *AdminFlowImpl) UpdateSettings(ctx context.Context, req *dto.UpdateSettingsRequest) (*models.AdminSettings, error) {
	var settings *models.AdminSettings
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		settings, err = f.settingsRepo.Get(txCtx)
		if err != nil {
			return err
		}

		if req.BrandName != nil {
			settings.BrandName = *req.BrandName
		}
		if req.MinDeposit != nil {
			settings.MinDeposit = *req.MinDeposit
		}
		if req.MaxDeposit != nil {
			settings.MaxDeposit = *req.MaxDeposit
		}
		if req.MinWithdrawal != nil {
			settings.MinWithdrawal = *req.MinWithdrawal
		}
		if req.TwoFAEnabled != nil {
			settings.TwoFAEnabled = *req.TwoFAEnabled
		}
		return f.settingsRepo.Update(txCtx, settings)
	})
	if err != nil {
		return nil, NewBusinessError("SETTINGS_UPDATE_FAILED", "Failed to update settings", err)
	}
	return settings, nil
}
