package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DepositStatus represents the current status of a deposit.
// The status machine is deliberately loose: any status may follow any
// other, except that re-applying the current status is a no-op.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusApproved  DepositStatus = "approved"  // credited via admin action
	DepositStatusRejected  DepositStatus = "rejected"  // terminal, no balance change
	DepositStatusCompleted DepositStatus = "completed" // credited via processor webhook
)

// DepositPlan is the investment tier attached to a deposit
type DepositPlan string

const (
	DepositPlanBronze   DepositPlan = "Bronze"
	DepositPlanSilver   DepositPlan = "Silver"
	DepositPlanGold     DepositPlan = "Gold"
	DepositPlanDiamond  DepositPlan = "Diamond"
	DepositPlanPlatinum DepositPlan = "Platinum"
)

// depositPlans in canonical order, used for prefix-insensitive normalization
var depositPlans = []DepositPlan{
	DepositPlanBronze,
	DepositPlanSilver,
	DepositPlanGold,
	DepositPlanDiamond,
	DepositPlanPlatinum,
}

// NormalizePlan maps a user-supplied plan name to its canonical form.
// Matching is case-insensitive and tolerates suffixes like "gold plan".
// Returns false if the name matches no known plan.
func NormalizePlan(name string) (DepositPlan, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	for _, p := range depositPlans {
		if strings.HasPrefix(n, strings.ToLower(string(p))) {
			return p, true
		}
	}
	return "", false
}

// MethodPayPalManual is the manual deposit channel with no processor call
const MethodPayPalManual = "paypal_manual"

// Deposit represents one funding attempt, user- or admin-initiated.
// External correlation identifiers let processor webhooks find it later.
type Deposit struct {
	ID     uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID   uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	UserID uint      `gorm:"not null;index" json:"user_id"`

	Amount float64       `gorm:"not null" json:"amount"`
	Plan   DepositPlan   `gorm:"type:varchar(20);not null" json:"plan"`
	Method string        `gorm:"type:varchar(40);not null;index" json:"method"`
	Status DepositStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Type   string        `gorm:"type:varchar(20);not null;default:'deposit'" json:"type"` // legacy, always "deposit"

	// External processor correlation
	InvoiceID      string `gorm:"type:varchar(255);index" json:"invoice_id"`
	PaymentID      string `gorm:"type:varchar(255);index" json:"payment_id"`
	PaymentAddress string `gorm:"type:varchar(255);index" json:"payment_address"`
	TxID           string `gorm:"type:varchar(255)" json:"txid"`

	// One-shot guard for the referral commission tied to this deposit
	ReferralPaid bool `gorm:"not null;default:false" json:"referral_paid"`

	// Stamped on admin approval; never read back (kept for parity with
	// the original system)
	ProfitEligibleAt *time.Time `json:"profit_eligible_at,omitempty"`

	Note string `gorm:"type:text" json:"note"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// BeforeCreate ensures UUID and legacy type are set
func (d *Deposit) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	if d.Type == "" {
		d.Type = "deposit"
	}
	return nil
}

// IsCredited returns true once the deposit has been applied to the ledger
func (d *Deposit) IsCredited() bool {
	return d.Status == DepositStatusApproved || d.Status == DepositStatusCompleted
}

// DepositFilter represents filter criteria for deposit queries
type DepositFilter struct {
	ID             *uint          `json:"id,omitempty"`
	UUID           *uuid.UUID     `json:"uuid,omitempty"`
	UserID         *uint          `json:"user_id,omitempty"`
	Status         *DepositStatus `json:"status,omitempty"`
	Plan           *DepositPlan   `json:"plan,omitempty"`
	Method         *string        `json:"method,omitempty"`
	InvoiceID      *string        `json:"invoice_id,omitempty"`
	PaymentID      *string        `json:"payment_id,omitempty"`
	PaymentAddress *string        `json:"payment_address,omitempty"`
	CreatedAfter   *time.Time     `json:"created_after,omitempty"`
	CreatedBefore  *time.Time     `json:"created_before,omitempty"`
}
