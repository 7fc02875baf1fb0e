// Package businessflow contains the core business logic for the investment platform.
package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/app/services"
	"github.com/crestvault/crestvault/models"
	"github.com/crestvault/crestvault/repository"
	"gorm.io/gorm"
)

// BonusFlow grants admin bonuses, either to one user or to every user in
// a tiered bulk run.
type BonusFlow interface {
	Grant(ctx context.Context, req *dto.GrantBonusRequest, metadata *ClientMetadata) (*dto.BonusResult, error)
	GrantTieredToAll(ctx context.Context, metadata *ClientMetadata) (*dto.BulkBonusResult, error)
}

// BonusFlowImpl implements BonusFlow
type BonusFlowImpl struct {
	userRepo  repository.UserRepository
	notifRepo repository.NotificationRepository
	notifier  services.NotificationService
	db        *gorm.DB
}

func NewBonusFlow(
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	notifier services.NotificationService,
	db *gorm.DB,
) BonusFlow {
	return &BonusFlowImpl{
		userRepo:  userRepo,
		notifRepo: notifRepo,
		notifier:  notifier,
		db:        db,
	}
}

// tieredBonusPercent picks the bulk bonus rate from the user's bonus base
func tieredBonusPercent(base float64) float64 {
	switch {
	case base > 10000:
		return 5
	case base > 5000:
		return 3
	default:
		return 1
	}
}

// Grant credits a one-off bonus. The request carries either a fixed amount
// or a percentage of the user's bonus base; exactly one must be set.
func (f *BonusFlowImpl) Grant(ctx context.Context, req *dto.GrantBonusRequest, metadata *ClientMetadata) (*dto.BonusResult, error) {
	if req.Amount <= 0 && req.Percent <= 0 {
		return nil, ErrBonusValueRequired
	}

	var result *dto.BonusResult
	var email string
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		user, err := getUser(txCtx, f.userRepo, req.UserID)
		if err != nil {
			return err
		}

		amount := req.Amount
		if amount <= 0 {
			amount = user.BonusBase() * req.Percent / 100
		}
		if amount <= 0 {
			return ErrBonusValueRequired
		}

		user.Balance += amount
		user.EarnedTotal += amount
		if err := f.userRepo.Update(txCtx, &user); err != nil {
			return err
		}

		email = user.Email
		result = &dto.BonusResult{UserUUID: user.UUID.String(), Amount: amount}
		msg := fmt.Sprintf("You received a bonus of %.2f", amount)
		return notify(txCtx, f.notifRepo, user.ID, models.NotificationTypeBonus, "Bonus credited", msg)
	})
	if err != nil {
		return nil, NewBusinessError("BONUS_GRANT_FAILED", "Failed to grant bonus", err)
	}

	if err := f.notifier.SendEmail(email, "Bonus credited", fmt.Sprintf("A bonus of %.2f was added to your account.", result.Amount)); err != nil {
		log.Printf("bonus email to %s failed: %v", email, err)
	}
	return result, nil
}

const bonusPageSize = 500

// GrantTieredToAll credits every user a bonus scaled to the size of their
// holdings: 5%% above 10k, 3%% above 5k, otherwise 1%%. Users with a zero
// bonus base are skipped.
func (f *BonusFlowImpl) GrantTieredToAll(ctx context.Context, metadata *ClientMetadata) (*dto.BulkBonusResult, error) {
	result := &dto.BulkBonusResult{}

	offset := 0
	for {
		users, err := f.userRepo.ListAll(ctx, bonusPageSize, offset)
		if err != nil {
			return nil, NewBusinessError("BONUS_BULK_FAILED", "Failed to list users for bulk bonus", err)
		}
		if len(users) == 0 {
			break
		}

		for _, u := range users {
			base := u.BonusBase()
			if base <= 0 {
				result.UsersSkipped++
				continue
			}
			pct := tieredBonusPercent(base)
			if _, err := f.Grant(ctx, &dto.GrantBonusRequest{UserID: u.ID, Percent: pct}, metadata); err != nil {
				log.Printf("bulk bonus: user %d failed: %v", u.ID, err)
				result.UsersFailed++
				continue
			}
			result.UsersGranted++
			result.TotalGranted += base * pct / 100
		}

		if len(users) < bonusPageSize {
			break
		}
		offset += bonusPageSize
	}
	return result, nil
}
