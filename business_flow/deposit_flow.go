// Package businessflow contains the core business logic for the investment platform.
package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/app/services"
	"github.com/crestvault/crestvault/config"
	"github.com/crestvault/crestvault/models"
	"github.com/crestvault/crestvault/repository"
	"github.com/crestvault/crestvault/utils"
	"gorm.io/gorm"
)

// DepositFlow defines deposit operations: creation, the status machine,
// and the queries backing the user and admin deposit screens.
type DepositFlow interface {
	Create(ctx context.Context, req *dto.CreateDepositRequest, metadata *ClientMetadata) (*dto.CreateDepositResponse, error)
	ApplyStatus(ctx context.Context, req *dto.DepositStatusRequest, metadata *ClientMetadata) (*dto.DepositStatusResponse, error)
	Get(ctx context.Context, depositID, userID uint) (*dto.DepositDTO, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]dto.DepositDTO, error)
	AddForUser(ctx context.Context, req *dto.AdminAddDepositRequest, metadata *ClientMetadata) (*dto.DepositStatusResponse, error)
	Delete(ctx context.Context, depositID uint) error
}

// transitionFunc applies one target status to a deposit inside a transaction
type transitionFunc func(txCtx context.Context, dep *models.Deposit, user *models.User, byAdmin bool) error

// DepositFlowImpl implements DepositFlow
type DepositFlowImpl struct {
	userRepo     repository.UserRepository
	depositRepo  repository.DepositRepository
	notifRepo    repository.NotificationRepository
	settingsRepo repository.SettingsRepository
	notifier     services.NotificationService
	providers    map[string]services.PaymentProvider // method -> provider
	db           *gorm.DB
	deployCfg    config.DeploymentConfig

	transitions map[models.DepositStatus]transitionFunc
}

func NewDepositFlow(
	userRepo repository.UserRepository,
	depositRepo repository.DepositRepository,
	notifRepo repository.NotificationRepository,
	settingsRepo repository.SettingsRepository,
	notifier services.NotificationService,
	providers map[string]services.PaymentProvider,
	db *gorm.DB,
	deployCfg config.DeploymentConfig,
) DepositFlow {
	f := &DepositFlowImpl{
		userRepo:     userRepo,
		depositRepo:  depositRepo,
		notifRepo:    notifRepo,
		settingsRepo: settingsRepo,
		notifier:     notifier,
		providers:    providers,
		db:           db,
		deployCfg:    deployCfg,
	}

	// Target-status handler table. The machine is loose: any prior status
	// may move to any target; only same-status re-application short-circuits.
	f.transitions = map[models.DepositStatus]transitionFunc{
		models.DepositStatusPending:   f.transitionNoop,
		models.DepositStatusApproved:  f.transitionCredit,
		models.DepositStatusCompleted: f.transitionCredit,
		models.DepositStatusRejected:  f.transitionReject,
	}
	return f
}

func (f *DepositFlowImpl) Create(ctx context.Context, req *dto.CreateDepositRequest, metadata *ClientMetadata) (*dto.CreateDepositResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrAmountRequired
	}
	plan, ok := models.NormalizePlan(req.Plan)
	if !ok {
		return nil, ErrUnknownPlan
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		return nil, ErrUnsupportedMethod
	}

	var user models.User
	var dep *models.Deposit
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		user, err = getUser(txCtx, f.userRepo, req.UserID)
		if err != nil {
			return err
		}

		if f.settingsRepo != nil {
			settings, serr := f.settingsRepo.Get(txCtx)
			if serr == nil && settings != nil {
				if req.Amount < settings.MinDeposit {
					return ErrDepositBelowMinimum
				}
				if settings.MaxDeposit > 0 && req.Amount > settings.MaxDeposit {
					return ErrDepositAboveMaximum
				}
			}
		}

		dep = &models.Deposit{
			UserID: user.ID,
			Amount: req.Amount,
			Plan:   plan,
			Method: method,
			Status: models.DepositStatusPending,
			Note:   req.Note,
		}
		if method == models.MethodPayPalManual {
			dep.Note = strings.TrimSpace(dep.Note + " awaiting manual PayPal confirmation")
		}
		if err := f.depositRepo.Save(txCtx, dep); err != nil {
			return err
		}
		msg := fmt.Sprintf("Deposit of %.2f via %s created and pending confirmation", dep.Amount, method)
		return notify(txCtx, f.notifRepo, user.ID, models.NotificationTypeDeposit, "Deposit created", msg)
	})
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_CREATE_FAILED", "Failed to create deposit", err)
	}

	resp := &dto.CreateDepositResponse{
		DepositUUID: dep.UUID.String(),
		Status:      string(dep.Status),
		Amount:      dep.Amount,
		Plan:        string(dep.Plan),
		Method:      dep.Method,
	}

	if method == models.MethodPayPalManual {
		return resp, nil
	}

	// Automated path: the pending deposit is already committed. A provider
	// failure from here on is reported to the caller but leaves the row in
	// place for an admin to act on or delete.
	provider, ok := f.providers[method]
	if !ok {
		provider, ok = f.providers["default"]
	}
	if !ok {
		return nil, NewBusinessError("DEPOSIT_PROVIDER_UNAVAILABLE", "No payment processor configured for method", ErrUnsupportedMethod)
	}

	callbackURL := fmt.Sprintf("https://%s/api/v1/webhooks/%s", f.deployCfg.APIDomain, provider.Name())
	tx, perr := provider.CreateTransaction(ctx, services.CreateTransactionInput{
		Amount:      dep.Amount,
		Currency:    utils.USDCurrency,
		Coin:        strings.ToUpper(method),
		BuyerEmail:  user.Email,
		OrderID:     dep.UUID.String(),
		CallbackURL: callbackURL,
	})
	if perr != nil {
		return nil, NewBusinessError("DEPOSIT_PROCESSOR_FAILED", "Payment processor call failed", perr)
	}

	dep.InvoiceID = tx.InvoiceID
	dep.PaymentID = tx.PaymentID
	dep.PaymentAddress = tx.PaymentAddress
	if err := f.depositRepo.Update(ctx, dep); err != nil {
		return nil, NewBusinessError("DEPOSIT_CREATE_FAILED", "Failed to persist processor correlation", err)
	}

	resp.PaymentAddress = tx.PaymentAddress
	resp.PaymentURL = tx.PaymentURL
	return resp, nil
}

func (f *DepositFlowImpl) ApplyStatus(ctx context.Context, req *dto.DepositStatusRequest, metadata *ClientMetadata) (*dto.DepositStatusResponse, error) {
	target := models.DepositStatus(req.Status)
	handler, ok := f.transitions[target]
	if !ok {
		return nil, NewBusinessError("DEPOSIT_STATUS_INVALID", "Unknown target status", nil)
	}

	var dep *models.Deposit
	var alreadyInStatus bool
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		dep, err = f.depositRepo.ByID(txCtx, req.DepositID)
		if err != nil {
			return err
		}
		if dep == nil {
			return ErrDepositNotFound
		}
		if dep.Status == target {
			alreadyInStatus = true
			return nil
		}

		user, err := getUser(txCtx, f.userRepo, dep.UserID)
		if err != nil {
			return err
		}
		return handler(txCtx, dep, &user, req.ByAdmin)
	})
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_STATUS_FAILED", "Failed to apply deposit status", err)
	}

	resp := &dto.DepositStatusResponse{
		DepositUUID:    dep.UUID.String(),
		Status:         string(dep.Status),
		AlreadyApplied: alreadyInStatus,
	}
	if alreadyInStatus {
		resp.Message = fmt.Sprintf("Deposit already %s", dep.Status)
	} else {
		resp.Message = fmt.Sprintf("Deposit %s", dep.Status)
	}
	return resp, nil
}

// transitionNoop records the status change with no ledger effect
func (f *DepositFlowImpl) transitionNoop(txCtx context.Context, dep *models.Deposit, user *models.User, byAdmin bool) error {
	dep.Status = models.DepositStatusPending
	return f.depositRepo.Update(txCtx, dep)
}

// transitionCredit applies the deposit amount to the user's ledger. Both
// admin approval and webhook completion funnel through here so the credit
// and referral behavior cannot drift between paths.
func (f *DepositFlowImpl) transitionCredit(txCtx context.Context, dep *models.Deposit, user *models.User, byAdmin bool) error {
	// Referral eligibility is decided on the state before this credit lands
	priorCredits, err := f.depositRepo.CountCreditedForUser(txCtx, user.ID, dep.ID)
	if err != nil {
		return err
	}

	if byAdmin {
		dep.Status = models.DepositStatusApproved
		dep.ProfitEligibleAt = utils.UTCNowAddPtr(utils.ProfitEligibilityDelay)
	} else {
		dep.Status = models.DepositStatusCompleted
	}

	user.Balance += dep.Amount
	user.CreditWallet(dep.Method, dep.Amount)
	user.ActiveDeposit += dep.Amount
	user.TotalDeposits += dep.Amount

	if err := f.payReferralCommission(txCtx, user, dep, priorCredits); err != nil {
		return err
	}

	if err := f.depositRepo.Update(txCtx, dep); err != nil {
		return err
	}
	if err := f.userRepo.Update(txCtx, user); err != nil {
		return err
	}

	msg := fmt.Sprintf("Your deposit of %.2f (%s plan) has been credited", dep.Amount, dep.Plan)
	if err := notify(txCtx, f.notifRepo, user.ID, models.NotificationTypeDeposit, "Deposit credited", msg); err != nil {
		return err
	}
	if err := f.notifier.SendEmail(user.Email, "Deposit credited", msg); err != nil {
		log.Printf("deposit credit email to %s failed: %v", user.Email, err)
	}
	return nil
}

// transitionReject records the rejection; no balance change
func (f *DepositFlowImpl) transitionReject(txCtx context.Context, dep *models.Deposit, user *models.User, byAdmin bool) error {
	dep.Status = models.DepositStatusRejected
	if err := f.depositRepo.Update(txCtx, dep); err != nil {
		return err
	}
	msg := fmt.Sprintf("Your deposit of %.2f via %s was rejected", dep.Amount, dep.Method)
	if err := notify(txCtx, f.notifRepo, user.ID, models.NotificationTypeDeposit, "Deposit rejected", msg); err != nil {
		return err
	}
	if err := f.notifier.SendEmail(user.Email, "Deposit rejected", msg); err != nil {
		log.Printf("deposit reject email to %s failed: %v", user.Email, err)
	}
	return nil
}

// payReferralCommission pays the one-time 7% commission to the referrer of
// a user whose first deposit is being credited. Idempotency rests on two
// one-shot flags checked together plus the prior-credit count taken before
// this transition was applied. A missing referrer is a silent skip.
func (f *DepositFlowImpl) payReferralCommission(txCtx context.Context, user *models.User, dep *models.Deposit, priorCredits int64) error {
	if user.ReferredBy == nil || user.ReferralBonusPaid || dep.ReferralPaid || priorCredits > 0 {
		return nil
	}

	referrer, err := f.userRepo.ByID(txCtx, *user.ReferredBy)
	if err != nil {
		return err
	}
	if referrer == nil {
		return nil
	}

	commission := dep.Amount * utils.ReferralCommissionRate
	referrer.ReferralEarnings += commission
	referrer.Balance += commission
	if err := f.userRepo.Update(txCtx, referrer); err != nil {
		return err
	}

	user.ReferralBonusPaid = true
	dep.ReferralPaid = true

	msg := fmt.Sprintf("You earned a %.2f referral commission from %s's first deposit", commission, user.Email)
	return notify(txCtx, f.notifRepo, referrer.ID, models.NotificationTypeReferral, "Referral commission", msg)
}

func (f *DepositFlowImpl) Get(ctx context.Context, depositID, userID uint) (*dto.DepositDTO, error) {
	dep, err := f.depositRepo.ByID(ctx, depositID)
	if err != nil {
		return nil, err
	}
	if dep == nil || dep.UserID != userID {
		return nil, ErrDepositNotFound
	}
	d := dto.ToDepositDTO(dep)
	return &d, nil
}

func (f *DepositFlowImpl) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]dto.DepositDTO, error) {
	deps, err := f.depositRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DepositDTO, 0, len(deps))
	for _, d := range deps {
		out = append(out, dto.ToDepositDTO(d))
	}
	return out, nil
}

// AddForUser creates a deposit on a user's behalf and immediately approves
// it, running the same credit path as a webhook or admin approval.
func (f *DepositFlowImpl) AddForUser(ctx context.Context, req *dto.AdminAddDepositRequest, metadata *ClientMetadata) (*dto.DepositStatusResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrAmountRequired
	}
	plan, ok := models.NormalizePlan(req.Plan)
	if !ok {
		return nil, ErrUnknownPlan
	}

	var dep *models.Deposit
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		user, err := getUser(txCtx, f.userRepo, req.UserID)
		if err != nil {
			return err
		}
		dep = &models.Deposit{
			UserID: user.ID,
			Amount: req.Amount,
			Plan:   plan,
			Method: strings.ToLower(req.Method),
			Status: models.DepositStatusPending,
			Note:   "added by admin",
		}
		if err := f.depositRepo.Save(txCtx, dep); err != nil {
			return err
		}
		return f.transitionCredit(txCtx, dep, &user, true)
	})
	if err != nil {
		return nil, NewBusinessError("DEPOSIT_ADD_FAILED", "Failed to add deposit for user", err)
	}

	return &dto.DepositStatusResponse{
		DepositUUID: dep.UUID.String(),
		Status:      string(dep.Status),
		Message:     "Deposit added and approved",
	}, nil
}

func (f *DepositFlowImpl) Delete(ctx context.Context, depositID uint) error {
	dep, err := f.depositRepo.ByID(ctx, depositID)
	if err != nil {
		return err
	}
	if dep == nil {
		return ErrDepositNotFound
	}
	return f.depositRepo.Delete(ctx, depositID)
}
