package businessflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/crestvault/crestvault/app/services"
	"github.com/crestvault/crestvault/models"
	"github.com/google/uuid"
)

// The flows run against these in-memory repositories with a nil *gorm.DB;
// repository.WithTransaction runs the body directly in that case.

type fakeUserRepo struct {
	users  map[uint]*models.User
	nextID uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uint]*models.User{}, nextID: 1}
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.Wallets = map[string]float64{}
	for k, v := range u.Wallets {
		c.Wallets[k] = v
	}
	c.WalletAddresses = map[string]string{}
	for k, v := range u.WalletAddresses {
		c.WalletAddresses[k] = v
	}
	return &c
}

func (r *fakeUserRepo) add(u *models.User) *models.User {
	if u.ID == 0 {
		u.ID = r.nextID
		r.nextID++
	} else if u.ID >= r.nextID {
		r.nextID = u.ID + 1
	}
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.Role == "" {
		u.Role = models.UserRoleUser
	}
	if u.Wallets == nil {
		u.Wallets = map[string]float64{}
	}
	if u.WalletAddresses == nil {
		u.WalletAddresses = map[string]string{}
	}
	r.users[u.ID] = copyUser(u)
	return u
}

func (r *fakeUserRepo) ByID(ctx context.Context, id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (r *fakeUserRepo) ByUUID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range r.users {
		if u.UUID.String() == id {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) ByFilter(ctx context.Context, filter models.UserFilter, orderBy string, limit, offset int) ([]*models.User, error) {
	out := []*models.User{}
	for _, u := range r.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		out = append(out, copyUser(u))
	}
	return out, nil
}

func (r *fakeUserRepo) Save(ctx context.Context, u *models.User) error {
	r.add(u)
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, u *models.User) error {
	if _, ok := r.users[u.ID]; !ok {
		return fmt.Errorf("user %d not found", u.ID)
	}
	r.users[u.ID] = copyUser(u)
	return nil
}

func (r *fakeUserRepo) Count(ctx context.Context, filter models.UserFilter) (int64, error) {
	return int64(len(r.users)), nil
}

func (r *fakeUserRepo) ListAll(ctx context.Context, limit, offset int) ([]*models.User, error) {
	ids := make([]uint, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := []*models.User{}
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(out) >= limit {
			break
		}
		out = append(out, copyUser(r.users[id]))
	}
	return out, nil
}

// mustGet fetches a user for assertions, panicking on a missing row
func (r *fakeUserRepo) mustGet(id uint) *models.User {
	u, ok := r.users[id]
	if !ok {
		panic(fmt.Sprintf("user %d not in fake repo", id))
	}
	return copyUser(u)
}

type fakeDepositRepo struct {
	deposits map[uint]*models.Deposit
	nextID   uint
}

func newFakeDepositRepo() *fakeDepositRepo {
	return &fakeDepositRepo{deposits: map[uint]*models.Deposit{}, nextID: 1}
}

func copyDeposit(d *models.Deposit) *models.Deposit {
	c := *d
	return &c
}

func (r *fakeDepositRepo) add(d *models.Deposit) *models.Deposit {
	if d.ID == 0 {
		d.ID = r.nextID
		r.nextID++
	} else if d.ID >= r.nextID {
		r.nextID = d.ID + 1
	}
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	r.deposits[d.ID] = copyDeposit(d)
	return d
}

func (r *fakeDepositRepo) ByID(ctx context.Context, id uint) (*models.Deposit, error) {
	d, ok := r.deposits[id]
	if !ok {
		return nil, nil
	}
	return copyDeposit(d), nil
}

func (r *fakeDepositRepo) ByUUID(ctx context.Context, id string) (*models.Deposit, error) {
	for _, d := range r.deposits {
		if d.UUID.String() == id {
			return copyDeposit(d), nil
		}
	}
	return nil, nil
}

func (r *fakeDepositRepo) ByInvoiceID(ctx context.Context, invoiceID string) (*models.Deposit, error) {
	for _, d := range r.deposits {
		if d.InvoiceID == invoiceID {
			return copyDeposit(d), nil
		}
	}
	return nil, nil
}

func (r *fakeDepositRepo) ByPaymentID(ctx context.Context, paymentID string) (*models.Deposit, error) {
	for _, d := range r.deposits {
		if d.PaymentID == paymentID {
			return copyDeposit(d), nil
		}
	}
	return nil, nil
}

func (r *fakeDepositRepo) ByPaymentAddress(ctx context.Context, address string) (*models.Deposit, error) {
	for _, d := range r.deposits {
		if d.PaymentAddress == address {
			return copyDeposit(d), nil
		}
	}
	return nil, nil
}

func (r *fakeDepositRepo) ByFilter(ctx context.Context, filter models.DepositFilter, orderBy string, limit, offset int) ([]*models.Deposit, error) {
	out := []*models.Deposit{}
	for _, d := range r.deposits {
		if filter.UserID != nil && d.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && d.Status != *filter.Status {
			continue
		}
		out = append(out, copyDeposit(d))
	}
	return out, nil
}

func (r *fakeDepositRepo) Save(ctx context.Context, d *models.Deposit) error {
	r.add(d)
	return nil
}

func (r *fakeDepositRepo) Update(ctx context.Context, d *models.Deposit) error {
	if _, ok := r.deposits[d.ID]; !ok {
		return fmt.Errorf("deposit %d not found", d.ID)
	}
	r.deposits[d.ID] = copyDeposit(d)
	return nil
}

func (r *fakeDepositRepo) Count(ctx context.Context, filter models.DepositFilter) (int64, error) {
	ds, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(ds)), nil
}

func (r *fakeDepositRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Deposit, error) {
	return r.ByFilter(ctx, models.DepositFilter{UserID: &userID}, "", limit, offset)
}

func (r *fakeDepositRepo) CountCreditedForUser(ctx context.Context, userID uint, excludeDepositID uint) (int64, error) {
	var n int64
	for _, d := range r.deposits {
		if d.UserID == userID && d.ID != excludeDepositID && d.IsCredited() {
			n++
		}
	}
	return n, nil
}

func (r *fakeDepositRepo) SumCreditedForUser(ctx context.Context, userID uint) (float64, error) {
	var sum float64
	for _, d := range r.deposits {
		if d.UserID == userID && d.IsCredited() {
			sum += d.Amount
		}
	}
	return sum, nil
}

func (r *fakeDepositRepo) Delete(ctx context.Context, id uint) error {
	delete(r.deposits, id)
	return nil
}

type fakeWithdrawalRepo struct {
	withdrawals map[uint]*models.Withdrawal
	nextID      uint
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{withdrawals: map[uint]*models.Withdrawal{}, nextID: 1}
}

func copyWithdrawal(w *models.Withdrawal) *models.Withdrawal {
	c := *w
	return &c
}

func (r *fakeWithdrawalRepo) ByID(ctx context.Context, id uint) (*models.Withdrawal, error) {
	w, ok := r.withdrawals[id]
	if !ok {
		return nil, nil
	}
	return copyWithdrawal(w), nil
}

func (r *fakeWithdrawalRepo) ByUUID(ctx context.Context, id string) (*models.Withdrawal, error) {
	for _, w := range r.withdrawals {
		if w.UUID.String() == id {
			return copyWithdrawal(w), nil
		}
	}
	return nil, nil
}

func (r *fakeWithdrawalRepo) ByFilter(ctx context.Context, filter models.WithdrawalFilter, orderBy string, limit, offset int) ([]*models.Withdrawal, error) {
	out := []*models.Withdrawal{}
	for _, w := range r.withdrawals {
		if filter.UserID != nil && w.UserID != *filter.UserID {
			continue
		}
		if filter.Status != nil && w.Status != *filter.Status {
			continue
		}
		out = append(out, copyWithdrawal(w))
	}
	return out, nil
}

func (r *fakeWithdrawalRepo) Save(ctx context.Context, w *models.Withdrawal) error {
	if w.ID == 0 {
		w.ID = r.nextID
		r.nextID++
	}
	if w.UUID == uuid.Nil {
		w.UUID = uuid.New()
	}
	r.withdrawals[w.ID] = copyWithdrawal(w)
	return nil
}

func (r *fakeWithdrawalRepo) Update(ctx context.Context, w *models.Withdrawal) error {
	if _, ok := r.withdrawals[w.ID]; !ok {
		return fmt.Errorf("withdrawal %d not found", w.ID)
	}
	r.withdrawals[w.ID] = copyWithdrawal(w)
	return nil
}

func (r *fakeWithdrawalRepo) Count(ctx context.Context, filter models.WithdrawalFilter) (int64, error) {
	ws, _ := r.ByFilter(ctx, filter, "", 0, 0)
	return int64(len(ws)), nil
}

func (r *fakeWithdrawalRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Withdrawal, error) {
	return r.ByFilter(ctx, models.WithdrawalFilter{UserID: &userID}, "", limit, offset)
}

type fakeNotificationRepo struct {
	notifications []*models.Notification
	nextID        uint
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{nextID: 1}
}

func (r *fakeNotificationRepo) ByID(ctx context.Context, id uint) (*models.Notification, error) {
	for _, n := range r.notifications {
		if n.ID == id {
			c := *n
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeNotificationRepo) ByFilter(ctx context.Context, filter models.NotificationFilter, orderBy string, limit, offset int) ([]*models.Notification, error) {
	out := []*models.Notification{}
	for _, n := range r.notifications {
		c := *n
		out = append(out, &c)
	}
	return out, nil
}

func (r *fakeNotificationRepo) Save(ctx context.Context, n *models.Notification) error {
	n.ID = r.nextID
	r.nextID++
	c := *n
	r.notifications = append(r.notifications, &c)
	return nil
}

func (r *fakeNotificationRepo) Update(ctx context.Context, n *models.Notification) error {
	for i, existing := range r.notifications {
		if existing.ID == n.ID {
			c := *n
			r.notifications[i] = &c
			return nil
		}
	}
	return fmt.Errorf("notification %d not found", n.ID)
}

func (r *fakeNotificationRepo) Count(ctx context.Context, filter models.NotificationFilter) (int64, error) {
	return int64(len(r.notifications)), nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	out := []*models.Notification{}
	for _, n := range r.notifications {
		if n.UserID == userID {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id uint, userID uint) error {
	for _, n := range r.notifications {
		if n.ID == id && n.UserID == userID {
			n.Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %d not found", id)
}

// forUser returns the notifications recorded for one user
func (r *fakeNotificationRepo) forUser(userID uint) []*models.Notification {
	out, _ := r.ListByUser(context.Background(), userID, 0, 0)
	return out
}

type fakeSettingsRepo struct {
	settings *models.AdminSettings
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{settings: &models.AdminSettings{
		BrandName:     "CrestVault",
		MinDeposit:    50,
		MaxDeposit:    100000,
		MinWithdrawal: 10,
	}}
}

func (r *fakeSettingsRepo) Get(ctx context.Context) (*models.AdminSettings, error) {
	c := *r.settings
	return &c, nil
}

func (r *fakeSettingsRepo) Update(ctx context.Context, s *models.AdminSettings) error {
	c := *s
	r.settings = &c
	return nil
}

// stubNotifier records outbound emails instead of sending them
type stubNotifier struct {
	sent []string
}

func (n *stubNotifier) SendEmail(email, subject, html string) error {
	n.sent = append(n.sent, email+"|"+subject)
	return nil
}

// stubProvider stands in for a payment processor client
type stubProvider struct {
	name      string
	fail      bool
	lastInput services.CreateTransactionInput
	result    services.CreateTransactionResult
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) CreateTransaction(ctx context.Context, in services.CreateTransactionInput) (*services.CreateTransactionResult, error) {
	p.lastInput = in
	if p.fail {
		return nil, fmt.Errorf("processor unavailable")
	}
	c := p.result
	return &c, nil
}

// stubVerifier accepts or rejects every signature
type stubVerifier struct {
	ok bool
}

func (v *stubVerifier) VerifyIPN(sigHeader string, rawBody []byte) bool { return v.ok }
