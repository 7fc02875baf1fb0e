// Package businessflow contains the core business logic for the investment platform.
package businessflow

import (
	"context"
	"log"
	"math/rand/v2"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/repository"
	"github.com/crestvault/crestvault/utils"
	"gorm.io/gorm"
)

// ProfitFlow runs the daily profit accrual. Each user with credited
// deposits earns a random percentage of their credited deposit sum per
// day; the percentage is drawn per user per run.
type ProfitFlow interface {
	RunDailySweep(ctx context.Context) (*dto.ProfitSweepResult, error)
}

// ProfitFlowImpl implements ProfitFlow
type ProfitFlowImpl struct {
	userRepo    repository.UserRepository
	depositRepo repository.DepositRepository
	db          *gorm.DB
	// randPercent returns the day's profit percentage for one user
	randPercent func() int
}

func NewProfitFlow(
	userRepo repository.UserRepository,
	depositRepo repository.DepositRepository,
	db *gorm.DB,
	randPercent func() int,
) ProfitFlow {
	if randPercent == nil {
		randPercent = defaultProfitPercent
	}
	return &ProfitFlowImpl{
		userRepo:    userRepo,
		depositRepo: depositRepo,
		db:          db,
		randPercent: randPercent,
	}
}

func defaultProfitPercent() int {
	span := utils.DailyProfitMaxPercent - utils.DailyProfitMinPercent + 1
	return utils.DailyProfitMinPercent + rand.IntN(span)
}

const profitSweepPageSize = 500

// RunDailySweep walks all users and applies the day's profit to those with
// credited deposits. The sweep itself carries no re-run guard; the
// scheduler decides whether a second run on the same day is allowed.
func (f *ProfitFlowImpl) RunDailySweep(ctx context.Context) (*dto.ProfitSweepResult, error) {
	result := &dto.ProfitSweepResult{RanAt: utils.UTCNow()}

	offset := 0
	for {
		users, err := f.userRepo.ListAll(ctx, profitSweepPageSize, offset)
		if err != nil {
			return nil, NewBusinessError("PROFIT_SWEEP_FAILED", "Failed to list users for profit sweep", err)
		}
		if len(users) == 0 {
			break
		}

		for _, u := range users {
			applied, err := f.applyToUser(ctx, u.ID)
			if err != nil {
				// One bad row must not starve the rest of the sweep
				log.Printf("profit sweep: user %d failed: %v", u.ID, err)
				result.UsersFailed++
				continue
			}
			if applied > 0 {
				result.UsersProcessed++
				result.TotalProfit += applied
			} else {
				result.UsersSkipped++
			}
		}

		if len(users) < profitSweepPageSize {
			break
		}
		offset += profitSweepPageSize
	}

	log.Printf("profit sweep: %d credited, %d skipped, %d failed, total %.2f",
		result.UsersProcessed, result.UsersSkipped, result.UsersFailed, result.TotalProfit)
	return result, nil
}

// applyToUser credits one user's daily profit inside its own transaction
// and returns the amount applied, zero when the user is skipped.
func (f *ProfitFlowImpl) applyToUser(ctx context.Context, userID uint) (float64, error) {
	var applied float64
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		user, err := getUser(txCtx, f.userRepo, userID)
		if err != nil {
			return err
		}

		base, err := f.depositRepo.SumCreditedForUser(txCtx, user.ID)
		if err != nil {
			return err
		}
		if base <= 0 {
			return nil
		}

		now := utils.UTCNow()
		pct := f.randPercent()
		profit := base * float64(pct) / 100

		// The sweep accrues to the earnings fields only; the spendable
		// balance is not touched. DailyProfit holds only the latest
		// day's figure.
		user.DailyProfit = profit
		user.EarnedTotal += profit
		user.LastProfitUpdate = &now
		if err := f.userRepo.Update(txCtx, &user); err != nil {
			return err
		}
		applied = profit
		return nil
	})
	return applied, err
}
