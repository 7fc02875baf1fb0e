// Package testing provides test utilities and database setup for testing the platform
package testing

import (
	"fmt"
	"math/rand"

	"github.com/crestvault/crestvault/models"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a verified user account with a unique email
func (tf *TestFixtures) CreateTestUser() (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        fmt.Sprintf("user.%09d@example.com", rand.Intn(900000000)+100000000),
		PasswordHash: string(hashedPassword),
		FullName:     "John Doe",
		Role:         models.UserRoleUser,
		IsVerified:   true,
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateTestAdmin creates an admin account
func (tf *TestFixtures) CreateTestAdmin() (*models.User, error) {
	admin, err := tf.CreateTestUser()
	if err != nil {
		return nil, err
	}
	admin.Role = models.UserRoleAdmin
	if err := tf.DB.DB.Save(admin).Error; err != nil {
		return nil, fmt.Errorf("failed to promote test admin: %w", err)
	}
	return admin, nil
}

// CreateReferredUser creates a user referred by the given referrer
func (tf *TestFixtures) CreateReferredUser(referrerID uint) (*models.User, error) {
	user, err := tf.CreateTestUser()
	if err != nil {
		return nil, err
	}
	user.ReferredBy = &referrerID
	if err := tf.DB.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to bind referrer: %w", err)
	}
	return user, nil
}

// CreateTestDeposit creates a deposit in the given status
func (tf *TestFixtures) CreateTestDeposit(userID uint, amount float64, status models.DepositStatus) (*models.Deposit, error) {
	deposit := &models.Deposit{
		UserID: userID,
		Amount: amount,
		Plan:   models.DepositPlanGold,
		Method: "coinpayments",
		Status: status,
	}

	if err := tf.DB.DB.Create(deposit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test deposit: %w", err)
	}

	return deposit, nil
}

// CreateTestWithdrawal creates a pending withdrawal request
func (tf *TestFixtures) CreateTestWithdrawal(userID uint, amount float64, processor string) (*models.Withdrawal, error) {
	withdrawal := &models.Withdrawal{
		UserID:        userID,
		Processor:     processor,
		Amount:        amount,
		WalletAddress: "bc1qtestaddress",
		Status:        models.WithdrawalStatusPending,
	}

	if err := tf.DB.DB.Create(withdrawal).Error; err != nil {
		return nil, fmt.Errorf("failed to create test withdrawal: %w", err)
	}

	return withdrawal, nil
}

// FundWallet sets the user's per-method wallet sub-balance
func (tf *TestFixtures) FundWallet(user *models.User, method string, amount float64) error {
	if user.Wallets == nil {
		user.Wallets = map[string]float64{}
	}
	user.Wallets[method] = amount
	if err := tf.DB.DB.Save(user).Error; err != nil {
		return fmt.Errorf("failed to fund wallet: %w", err)
	}
	return nil
}
