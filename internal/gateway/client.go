package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"eventless/internal/config"
	"eventless/internal/logger"
)

var (
	// ErrMisconfigured means the gateway secret key is missing; surfaced
	// immediately, never retried.
	ErrMisconfigured = errors.New("payment gateway credentials not configured")
	// ErrVerificationFailed means the gateway knows the reference but
	// does not report it as paid.
	ErrVerificationFailed = errors.New("payment verification failed")
	// ErrTimeout means the gateway did not answer in time; retryable.
	ErrTimeout = errors.New("payment gateway timed out")
)

// VerifyResult is the confirmed state of a payment reference. Amount is
// in major currency units; the gateway reports minor units on the wire.
type VerifyResult struct {
	Reference string
	Amount    float64
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status string `json:"status"`
		Amount int64  `json:"amount"`
	} `json:"data"`
}

// Client verifies payment references against the gateway's REST API.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
	logger    *logger.Logger
}

func NewClient(cfg config.GatewayConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		secretKey: cfg.SecretKey,
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    log,
	}
}

// VerifyTransaction confirms a payment reference with the gateway and
// returns the amount the gateway actually collected.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*VerifyResult, error) {
	if c.secretKey == "" {
		return nil, ErrMisconfigured
	}

	verifyURL := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, url.PathEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, verifyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create verification request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			c.logger.Error("GATEWAY", fmt.Sprintf("Verification timed out for reference %s", reference))
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrMisconfigured
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("GATEWAY", fmt.Sprintf("Verification for %s returned status %d", reference, resp.StatusCode))
		return nil, fmt.Errorf("%w: gateway returned status %d", ErrVerificationFailed, resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if !body.Status || body.Data.Status != "success" {
		c.logger.Warn("GATEWAY", fmt.Sprintf("Reference %s not confirmed: %s", reference, body.Message))
		return nil, fmt.Errorf("%w: gateway reported status %q", ErrVerificationFailed, body.Data.Status)
	}

	return &VerifyResult{
		Reference: reference,
		Amount:    float64(body.Data.Amount) / 100,
	}, nil
}
