package services

import (
	"context"
	"time"
)

// CreateTransactionInput carries what a processor needs to open a pay-in.
// OrderID is the deposit UUID; it round-trips through the processor so the
// webhook can correlate the callback back to the deposit.
type CreateTransactionInput struct {
	Amount      float64
	Currency    string // fiat denomination, e.g. USD
	Coin        string // payment coin symbol, e.g. BTC
	BuyerEmail  string
	OrderID     string
	CallbackURL string
}

// CreateTransactionResult is the processor's side of a new pay-in:
// at least one of InvoiceID/PaymentID/PaymentAddress is set and becomes
// the deposit's correlation key.
type CreateTransactionResult struct {
	InvoiceID      string
	PaymentID      string
	PaymentAddress string
	PaymentURL     string
	ExpiresAt      *time.Time
}

// PaymentProvider is one external payment processor integration
type PaymentProvider interface {
	Name() string
	CreateTransaction(ctx context.Context, in CreateTransactionInput) (*CreateTransactionResult, error)
}
