// Package businessflow contains the core business logic for the investment platform.
package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/app/services"
	"github.com/crestvault/crestvault/models"
	"github.com/crestvault/crestvault/repository"
	"gorm.io/gorm"
)

// WithdrawalFlow defines withdrawal operations. Funds are debited when the
// request is created; an admin decision only records the outcome and pays
// out off-platform. Rejection does not restore the debit, support handles
// returns manually.
type WithdrawalFlow interface {
	Request(ctx context.Context, req *dto.CreateWithdrawalRequest, metadata *ClientMetadata) (*dto.WithdrawalDTO, error)
	Decide(ctx context.Context, req *dto.WithdrawalDecisionRequest, metadata *ClientMetadata) (*dto.WithdrawalDTO, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]dto.WithdrawalDTO, error)
	ListPending(ctx context.Context, limit, offset int) ([]dto.WithdrawalDTO, error)
}

// WithdrawalFlowImpl implements WithdrawalFlow
type WithdrawalFlowImpl struct {
	userRepo       repository.UserRepository
	withdrawalRepo repository.WithdrawalRepository
	notifRepo      repository.NotificationRepository
	settingsRepo   repository.SettingsRepository
	notifier       services.NotificationService
	db             *gorm.DB
}

func NewWithdrawalFlow(
	userRepo repository.UserRepository,
	withdrawalRepo repository.WithdrawalRepository,
	notifRepo repository.NotificationRepository,
	settingsRepo repository.SettingsRepository,
	notifier services.NotificationService,
	db *gorm.DB,
) WithdrawalFlow {
	return &WithdrawalFlowImpl{
		userRepo:       userRepo,
		withdrawalRepo: withdrawalRepo,
		notifRepo:      notifRepo,
		settingsRepo:   settingsRepo,
		notifier:       notifier,
		db:             db,
	}
}

func (f *WithdrawalFlowImpl) Request(ctx context.Context, req *dto.CreateWithdrawalRequest, metadata *ClientMetadata) (*dto.WithdrawalDTO, error) {
	if req.Amount <= 0 {
		return nil, ErrAmountRequired
	}
	processor := strings.ToLower(strings.TrimSpace(req.Processor))
	if processor == "" {
		return nil, ErrUnsupportedMethod
	}

	var w *models.Withdrawal
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		user, err := getUser(txCtx, f.userRepo, req.UserID)
		if err != nil {
			return err
		}

		// Destination: explicit address wins, else the stored payout address
		// for this processor.
		address := strings.TrimSpace(req.WalletAddress)
		if address == "" {
			address = strings.TrimSpace(user.WalletAddresses[processor])
		}
		if address == "" {
			return ErrWalletAddressRequired
		}

		if f.settingsRepo != nil {
			settings, serr := f.settingsRepo.Get(txCtx)
			if serr == nil && settings != nil && req.Amount < settings.MinWithdrawal {
				return ErrWithdrawalBelowMinimum
			}
		}
		if user.WalletBalance(processor) < req.Amount {
			return ErrInsufficientWalletBalance
		}

		// Optimistic debit of the per-method sub-balance: the hold is taken
		// now so the user cannot queue overlapping requests against the
		// same funds.
		user.DebitWallet(processor, req.Amount)
		if err := f.userRepo.Update(txCtx, &user); err != nil {
			return err
		}

		w = &models.Withdrawal{
			UserID:        user.ID,
			Processor:     processor,
			Amount:        req.Amount,
			WalletAddress: address,
			Status:        models.WithdrawalStatusPending,
		}
		if err := f.withdrawalRepo.Save(txCtx, w); err != nil {
			return err
		}

		msg := fmt.Sprintf("Withdrawal request of %.2f via %s received and pending review", w.Amount, processor)
		return notify(txCtx, f.notifRepo, user.ID, models.NotificationTypeWithdrawal, "Withdrawal requested", msg)
	})
	if err != nil {
		return nil, NewBusinessError("WITHDRAWAL_REQUEST_FAILED", "Failed to create withdrawal request", err)
	}

	d := dto.ToWithdrawalDTO(w)
	return &d, nil
}

func (f *WithdrawalFlowImpl) Decide(ctx context.Context, req *dto.WithdrawalDecisionRequest, metadata *ClientMetadata) (*dto.WithdrawalDTO, error) {
	target := models.WithdrawalStatus(req.Status)
	if target != models.WithdrawalStatusApproved && target != models.WithdrawalStatusRejected {
		return nil, NewBusinessError("WITHDRAWAL_STATUS_INVALID", "Decision must be approved or rejected", nil)
	}

	var w *models.Withdrawal
	var user models.User
	var alreadyDecided bool
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		w, err = f.withdrawalRepo.ByID(txCtx, req.WithdrawalID)
		if err != nil {
			return err
		}
		if w == nil {
			return ErrWithdrawalNotFound
		}
		// Re-sending the decision the request already carries is a no-op;
		// only a conflicting decision on a decided request is an error.
		if w.Status == target {
			alreadyDecided = true
			return nil
		}
		if w.IsDecided() {
			return ErrWithdrawalAlreadyDecided
		}

		user, err = getUser(txCtx, f.userRepo, w.UserID)
		if err != nil {
			return err
		}

		w.Status = target
		if err := f.withdrawalRepo.Update(txCtx, w); err != nil {
			return err
		}

		var msg string
		if target == models.WithdrawalStatusApproved {
			msg = fmt.Sprintf("Your withdrawal of %.2f to %s has been approved and is being paid out", w.Amount, w.WalletAddress)
		} else {
			msg = fmt.Sprintf("Your withdrawal of %.2f via %s was rejected; contact support regarding the held funds", w.Amount, w.Processor)
		}
		return notify(txCtx, f.notifRepo, user.ID, models.NotificationTypeWithdrawal, "Withdrawal "+string(target), msg)
	})
	if err != nil {
		return nil, NewBusinessError("WITHDRAWAL_DECISION_FAILED", "Failed to decide withdrawal", err)
	}

	if !alreadyDecided {
		subject := "Withdrawal " + string(target)
		if err := f.notifier.SendEmail(user.Email, subject, fmt.Sprintf("Your withdrawal of %.2f has been %s.", w.Amount, target)); err != nil {
			log.Printf("withdrawal decision email to %s failed: %v", user.Email, err)
		}
	}

	d := dto.ToWithdrawalDTO(w)
	return &d, nil
}

func (f *WithdrawalFlowImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]dto.WithdrawalDTO, error) {
	ws, err := f.withdrawalRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return toWithdrawalDTOs(ws), nil
}

func (f *WithdrawalFlowImpl) ListPending(ctx context.Context, limit, offset int) ([]dto.WithdrawalDTO, error) {
	pending := models.WithdrawalStatusPending
	ws, err := f.withdrawalRepo.ByFilter(ctx, models.WithdrawalFilter{Status: &pending}, "created_at ASC", limit, offset)
	if err != nil {
		return nil, err
	}
	return toWithdrawalDTOs(ws), nil
}

func toWithdrawalDTOs(ws []*models.Withdrawal) []dto.WithdrawalDTO {
	out := make([]dto.WithdrawalDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, dto.ToWithdrawalDTO(w))
	}
	return out
}
