package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CoinPaymentsClient talks to the CoinPayments merchant API.
// Docs: https://www.coinpayments.net/apidoc
type CoinPaymentsClient struct {
	BaseURL    string
	PublicKey  string
	PrivateKey string
	IPNSecret  string
	MerchantID string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func NewCoinPaymentsClient(baseURL, publicKey, privateKey, ipnSecret, merchantID string, timeout time.Duration) *CoinPaymentsClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://www.coinpayments.net/api.php"
	}
	return &CoinPaymentsClient{
		BaseURL:    baseURL,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		IPNSecret:  ipnSecret,
		MerchantID: merchantID,
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
	}
}

func (c *CoinPaymentsClient) Name() string { return "coinpayments" }

// Response envelope: {"error":"ok","result":{...}}
type cpCreateTxResult struct {
	Amount         string `json:"amount"`
	TxnID          string `json:"txn_id"`
	Address        string `json:"address"`
	ConfirmsNeeded string `json:"confirms_needed"`
	Timeout        int64  `json:"timeout"`
	CheckoutURL    string `json:"checkout_url"`
	StatusURL      string `json:"status_url"`
	QRCodeURL      string `json:"qrcode_url"`
}

type cpEnvelope struct {
	Error  string          `json:"error"`
	Result cpCreateTxResult `json:"result"`
}

// CreateTransaction opens a pay-in via cmd=create_transaction. The deposit
// UUID travels in the custom field and comes back in the IPN.
func (c *CoinPaymentsClient) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*CreateTransactionResult, error) {
	if c.PublicKey == "" || c.PrivateKey == "" {
		return nil, errors.New("coinpayments: api keys not configured")
	}

	form := url.Values{}
	form.Set("version", "1")
	form.Set("cmd", "create_transaction")
	form.Set("key", c.PublicKey)
	form.Set("format", "json")
	form.Set("amount", strconv.FormatFloat(in.Amount, 'f', 2, 64))
	form.Set("currency1", strings.ToUpper(in.Currency))
	form.Set("currency2", strings.ToUpper(in.Coin))
	form.Set("custom", in.OrderID)
	if in.BuyerEmail != "" {
		form.Set("buyer_email", in.BuyerEmail)
	}
	if in.CallbackURL != "" {
		form.Set("ipn_url", in.CallbackURL)
	}
	encoded := form.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, strings.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HMAC", c.sign(encoded))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coinpayments: unexpected status %d", resp.StatusCode)
	}

	var env cpEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, err
	}
	if env.Error != "ok" {
		return nil, fmt.Errorf("coinpayments: api error: %s", env.Error)
	}

	res := &CreateTransactionResult{
		InvoiceID:      env.Result.TxnID,
		PaymentAddress: env.Result.Address,
		PaymentURL:     env.Result.CheckoutURL,
	}
	if env.Result.Timeout > 0 {
		exp := time.Now().UTC().Add(time.Duration(env.Result.Timeout) * time.Second)
		res.ExpiresAt = &exp
	}
	return res, nil
}

// sign computes the HMAC-SHA512 of the encoded request body with the
// merchant private key, as CoinPayments requires on every API call.
func (c *CoinPaymentsClient) sign(body string) string {
	mac := hmac.New(sha512.New, []byte(c.PrivateKey))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyIPN checks the HMAC header of an IPN callback against the raw
// form-encoded body using the merchant IPN secret.
func (c *CoinPaymentsClient) VerifyIPN(hmacHeader string, rawBody []byte) bool {
	if c.IPNSecret == "" || hmacHeader == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.IPNSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(hmacHeader))
}
