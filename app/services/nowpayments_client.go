package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// NOWPaymentsClient talks to the NOWPayments API.
// Docs: https://documenter.getpostman.com/view/7907941/S1a32n38
type NOWPaymentsClient struct {
	BaseURL    string
	APIKey     string
	IPNSecret  string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewNOWPaymentsClient(baseURL, apiKey, ipnSecret string, timeout time.Duration) *NOWPaymentsClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.nowpayments.io/v1"
	}
	return &NOWPaymentsClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		IPNSecret:  ipnSecret,
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

func (c *NOWPaymentsClient) Name() string { return "nowpayments" }

type npCreatePaymentReq struct {
	PriceAmount      float64 `json:"price_amount"`
	PriceCurrency    string  `json:"price_currency"`
	PayCurrency      string  `json:"pay_currency"`
	OrderID          string  `json:"order_id,omitempty"`
	OrderDescription string  `json:"order_description,omitempty"`
	IPNCallbackURL   string  `json:"ipn_callback_url,omitempty"`
}

type npCreatePaymentResp struct {
	PaymentID     any     `json:"payment_id"` // number or string depending on endpoint version
	PaymentStatus string  `json:"payment_status"`
	PayAddress    string  `json:"pay_address"`
	PayAmount     float64 `json:"pay_amount"`
	PayCurrency   string  `json:"pay_currency"`
	InvoiceURL    string  `json:"invoice_url"`
	ExpirationAt  string  `json:"expiration_estimate_date"`
	Message       string  `json:"message"`
}

// CreateTransaction opens a payment via POST /payment. The deposit UUID
// travels in order_id and comes back in the IPN payload.
func (c *NOWPaymentsClient) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*CreateTransactionResult, error) {
	if c.APIKey == "" {
		return nil, errors.New("nowpayments: api key not configured")
	}

	body := npCreatePaymentReq{
		PriceAmount:      in.Amount,
		PriceCurrency:    strings.ToLower(in.Currency),
		PayCurrency:      strings.ToLower(in.Coin),
		OrderID:          in.OrderID,
		OrderDescription: "deposit " + in.OrderID,
		IPNCallbackURL:   in.CallbackURL,
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payment", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out npCreatePaymentResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("nowpayments: status %d: %s", resp.StatusCode, out.Message)
	}

	res := &CreateTransactionResult{
		PaymentID:      fmt.Sprintf("%v", out.PaymentID),
		PaymentAddress: out.PayAddress,
		PaymentURL:     out.InvoiceURL,
	}
	if out.ExpirationAt != "" {
		if t, perr := time.Parse(time.RFC3339, out.ExpirationAt); perr == nil {
			exp := t.UTC()
			res.ExpiresAt = &exp
		}
	}
	return res, nil
}

// VerifyIPN checks the x-nowpayments-sig header: HMAC-SHA512 of the JSON
// payload re-marshalled with sorted keys, keyed with the IPN secret.
func (c *NOWPaymentsClient) VerifyIPN(sigHeader string, rawBody []byte) bool {
	if c.IPNSecret == "" || sigHeader == "" {
		return false
	}
	sorted, err := sortJSONKeys(rawBody)
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.IPNSecret))
	mac.Write(sorted)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sigHeader))
}

// sortJSONKeys re-encodes a JSON object with lexicographically sorted keys,
// matching the canonical form NOWPayments signs.
func sortJSONKeys(raw []byte) ([]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(m[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
