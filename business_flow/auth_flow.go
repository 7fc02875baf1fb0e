// Package businessflow contains the core business logic for the investment platform.
package businessflow

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"strings"

	"github.com/crestvault/crestvault/app/dto"
	"github.com/crestvault/crestvault/app/services"
	"github.com/crestvault/crestvault/models"
	"github.com/crestvault/crestvault/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthFlow covers account lifecycle: registration with optional referral
// binding, email verification, login, and profile maintenance.
type AuthFlow interface {
	Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error)
	Verify(ctx context.Context, req *dto.VerifyRequest, metadata *ClientMetadata) error
	Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error)
	Profile(ctx context.Context, userID uint) (*dto.ProfileResponse, error)
	UpdateWalletAddresses(ctx context.Context, req *dto.UpdateWalletAddressesRequest, metadata *ClientMetadata) (*dto.ProfileResponse, error)
}

// AuthFlowImpl implements AuthFlow
type AuthFlowImpl struct {
	userRepo  repository.UserRepository
	notifRepo repository.NotificationRepository
	tokens    services.TokenService
	notifier  services.NotificationService
	db        *gorm.DB
}

func NewAuthFlow(
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	tokens services.TokenService,
	notifier services.NotificationService,
	db *gorm.DB,
) AuthFlow {
	return &AuthFlowImpl{
		userRepo:  userRepo,
		notifRepo: notifRepo,
		tokens:    tokens,
		notifier:  notifier,
		db:        db,
	}
}

func (f *AuthFlowImpl) Register(ctx context.Context, req *dto.RegisterRequest, metadata *ClientMetadata) (*dto.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, NewBusinessError("REGISTER_FAILED", "Failed to hash password", err)
	}

	code, err := generateVerifyCode()
	if err != nil {
		return nil, NewBusinessError("REGISTER_FAILED", "Failed to generate verification code", err)
	}

	var user *models.User
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		existing, err := f.userRepo.ByEmail(txCtx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrEmailAlreadyExists
		}

		user = &models.User{
			Email:        email,
			PasswordHash: string(hash),
			FullName:     strings.TrimSpace(req.FullName),
			Role:         models.UserRoleUser,
			VerifyCode:   hashVerifyCode(code),
		}

		// Referral code is the referrer's account UUID; an unknown code is
		// ignored rather than failing the registration.
		if rc := strings.TrimSpace(req.ReferralCode); rc != "" {
			referrer, err := f.userRepo.ByUUID(txCtx, rc)
			if err != nil {
				return err
			}
			if referrer != nil {
				user.ReferredBy = &referrer.ID
			}
		}

		if err := f.userRepo.Save(txCtx, user); err != nil {
			return err
		}
		return notify(txCtx, f.notifRepo, user.ID, models.NotificationTypeAccount, "Welcome", "Your account has been created; verify your email to activate it")
	})
	if err != nil {
		return nil, NewBusinessError("REGISTER_FAILED", "Failed to register account", err)
	}

	body := fmt.Sprintf("Your verification code is <b>%s</b>.", code)
	if err := f.notifier.SendEmail(user.Email, "Verify your account", body); err != nil {
		log.Printf("verification email to %s failed: %v", user.Email, err)
	}

	return &dto.RegisterResponse{
		UserUUID: user.UUID.String(),
		Email:    user.Email,
	}, nil
}

func (f *AuthFlowImpl) Verify(ctx context.Context, req *dto.VerifyRequest, metadata *ClientMetadata) error {
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		user, err := f.userRepo.ByEmail(txCtx, strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.IsVerified {
			return ErrAlreadyVerified
		}
		if user.VerifyCode == "" || hashVerifyCode(strings.TrimSpace(req.Code)) != user.VerifyCode {
			return ErrInvalidVerifyCode
		}

		user.IsVerified = true
		user.VerifyCode = ""
		if err := f.userRepo.Update(txCtx, user); err != nil {
			return err
		}
		return notify(txCtx, f.notifRepo, user.ID, models.NotificationTypeAccount, "Account verified", "Your email address has been verified")
	})
	if err != nil {
		return NewBusinessError("VERIFY_FAILED", "Failed to verify account", err)
	}
	return nil
}

func (f *AuthFlowImpl) Login(ctx context.Context, req *dto.LoginRequest, metadata *ClientMetadata) (*dto.LoginResponse, error) {
	user, err := f.userRepo.ByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to look up account", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrIncorrectPassword
	}

	access, refresh, err := f.tokens.GenerateTokens(user.ID, string(user.Role))
	if err != nil {
		return nil, NewBusinessError("LOGIN_FAILED", "Failed to issue tokens", err)
	}

	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         dto.ToUserDTO(user),
	}, nil
}

func (f *AuthFlowImpl) Profile(ctx context.Context, userID uint) (*dto.ProfileResponse, error) {
	user, err := getUser(ctx, f.userRepo, userID)
	if err != nil {
		return nil, err
	}
	return &dto.ProfileResponse{User: dto.ToUserDTO(&user)}, nil
}

// UpdateWalletAddresses merges the submitted payout addresses into the
// user's stored map; an empty value removes the entry for that method.
func (f *AuthFlowImpl) UpdateWalletAddresses(ctx context.Context, req *dto.UpdateWalletAddressesRequest, metadata *ClientMetadata) (*dto.ProfileResponse, error) {
	var user models.User
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		user, err = getUser(txCtx, f.userRepo, req.UserID)
		if err != nil {
			return err
		}
		if user.WalletAddresses == nil {
			user.WalletAddresses = map[string]string{}
		}
		for method, addr := range req.Addresses {
			method = strings.ToLower(strings.TrimSpace(method))
			addr = strings.TrimSpace(addr)
			if addr == "" {
				delete(user.WalletAddresses, method)
				continue
			}
			user.WalletAddresses[method] = addr
		}
		return f.userRepo.Update(txCtx, &user)
	})
	if err != nil {
		return nil, NewBusinessError("PROFILE_UPDATE_FAILED", "Failed to update wallet addresses", err)
	}
	return &dto.ProfileResponse{User: dto.ToUserDTO(&user)}, nil
}

// generateVerifyCode produces a 6-digit numeric code
func generateVerifyCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashVerifyCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
