package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventless/internal/config"
	"eventless/internal/logger"
)

func newTestClient(t *testing.T, baseURL, key string, timeout time.Duration) *Client {
	t.Helper()
	t.Chdir(t.TempDir()) // logger writes under ./logs
	log := logger.NewLogger()
	t.Cleanup(log.Close)
	return NewClient(config.GatewayConfig{
		BaseURL:   baseURL,
		SecretKey: key,
		Timeout:   timeout,
	}, log)
}

func TestVerifyTransactionSuccess(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"success","amount":515000}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "sk_test_123", 5*time.Second)
	result, err := client.VerifyTransaction(context.Background(), "ref_abc")
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_test_123", gotAuth)
	assert.Equal(t, "/transaction/verify/ref_abc", gotPath)
	assert.Equal(t, "ref_abc", result.Reference)
	// 515000 minor units on the wire, major units in the result.
	assert.Equal(t, 5150.0, result.Amount)
}

func TestVerifyTransactionNotPaid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":true,"message":"Verification successful","data":{"status":"abandoned","amount":0}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "sk_test_123", 5*time.Second)
	_, err := client.VerifyTransaction(context.Background(), "ref_abandoned")
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestVerifyTransactionGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "sk_test_123", 5*time.Second)
	_, err := client.VerifyTransaction(context.Background(), "ref_missing")
	assert.ErrorIs(t, err, ErrVerificationFailed)
}

func TestVerifyTransactionMissingKey(t *testing.T) {
	client := newTestClient(t, "https://api.paystack.co", "", 5*time.Second)
	_, err := client.VerifyTransaction(context.Background(), "ref_abc")
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestVerifyTransactionTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "sk_test_123", 20*time.Millisecond)
	_, err := client.VerifyTransaction(context.Background(), "ref_slow")
	assert.ErrorIs(t, err, ErrTimeout)
}
