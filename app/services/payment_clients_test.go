package services

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func hmacSHA512Hex(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCoinPaymentsVerifyIPN(t *testing.T) {
	c := NewCoinPaymentsClient("", "pub", "priv", "ipn-secret", "merchant", 5*time.Second)
	body := []byte("status=100&txn_id=CP-1&custom=abc")

	assert.True(t, c.VerifyIPN(hmacSHA512Hex("ipn-secret", body), body))
	assert.False(t, c.VerifyIPN(hmacSHA512Hex("wrong-secret", body), body))
	assert.False(t, c.VerifyIPN(hmacSHA512Hex("ipn-secret", body), []byte("status=100&txn_id=CP-2")))
	assert.False(t, c.VerifyIPN("", body))
}

func TestCoinPaymentsVerifyIPNWithoutSecret(t *testing.T) {
	c := NewCoinPaymentsClient("", "pub", "priv", "", "merchant", 5*time.Second)
	body := []byte("status=100")
	assert.False(t, c.VerifyIPN(hmacSHA512Hex("", body), body))
}

func TestNOWPaymentsVerifyIPN(t *testing.T) {
	c := NewNOWPaymentsClient("", "api-key", "ipn-secret", 5*time.Second)

	// The signature is computed over the payload with sorted keys
	body := []byte(`{"payment_status":"finished","order_id":"abc","payment_id":123}`)
	canonical := []byte(`{"order_id":"abc","payment_id":123,"payment_status":"finished"}`)

	assert.True(t, c.VerifyIPN(hmacSHA512Hex("ipn-secret", canonical), body))
	assert.False(t, c.VerifyIPN(hmacSHA512Hex("wrong-secret", canonical), body))
	assert.False(t, c.VerifyIPN(hmacSHA512Hex("ipn-secret", body), body))
}

func TestNOWPaymentsVerifyIPNMalformedBody(t *testing.T) {
	c := NewNOWPaymentsClient("", "api-key", "ipn-secret", 5*time.Second)
	assert.False(t, c.VerifyIPN("deadbeef", []byte("not json")))
}

func TestSortJSONKeys(t *testing.T) {
	out, err := sortJSONKeys([]byte(`{"b":2,"a":1,"c":{"z":true}}`))
	assert.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":{"z":true}}`, string(out))
}

func TestClientNames(t *testing.T) {
	assert.Equal(t, "coinpayments", NewCoinPaymentsClient("", "", "", "", "", 0).Name())
	assert.Equal(t, "nowpayments", NewNOWPaymentsClient("", "", "", 0).Name())
}
