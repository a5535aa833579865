package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tumbiko/Pluto-shopping-store/config"
	"github.com/tumbiko/Pluto-shopping-store/models"
	"go.uber.org/zap"
)

const operatorsTTL = 60 * time.Second

var ErrNoSecretKey = errors.New("PROVIDER_SECRET_KEY is not set")

// Error is returned for non-2xx or malformed provider responses. It carries
// the HTTP status and raw body for diagnostics.
type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

type operatorCache struct {
	mu      sync.Mutex
	ts      time.Time
	entries []models.Operator
}

// Client wraps the payment provider HTTP API: initialize charge, verify
// charge and the cached operator list. It holds no business state beyond the
// operator cache and performs no retries; retry policy belongs to callers.
type Client struct {
	Config    *config.Config
	Logger    *zap.SugaredLogger
	client    *http.Client
	operators operatorCache
	cacheTTL  time.Duration
}

func NewClient(cfg *config.Config, logger *zap.SugaredLogger) *Client {
	timeout := cfg.ProviderRequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		Config:   cfg,
		Logger:   logger,
		client:   &http.Client{Timeout: timeout},
		cacheTTL: operatorsTTL,
	}
}

// InvalidateOperators drops the cached operator list.
func (c *Client) InvalidateOperators() {
	c.operators.mu.Lock()
	c.operators.entries = nil
	c.operators.ts = time.Time{}
	c.operators.mu.Unlock()
}

type initializePayload struct {
	Amount                   string `json:"amount"`
	Currency                 string `json:"currency"`
	TxRef                    string `json:"tx_ref"`
	Mobile                   string `json:"mobile"`
	Email                    string `json:"email,omitempty"`
	FirstName                string `json:"first_name,omitempty"`
	LastName                 string `json:"last_name,omitempty"`
	CallbackURL              string `json:"callback_url,omitempty"`
	ReturnURL                string `json:"return_url,omitempty"`
	MobileMoneyOperatorRefID string `json:"mobile_money_operator_ref_id"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ChargeID string `json:"charge_id"`
	} `json:"data"`
}

func (c *Client) InitializeCharge(ctx context.Context, req models.ChargeRequest) (*models.ChargeResult, error) {
	if c.Config.ProviderSecretKey == "" {
		return nil, ErrNoSecretKey
	}

	payload := initializePayload{
		Amount:                   req.Amount.String(),
		Currency:                 req.Currency,
		TxRef:                    req.TxRef,
		Mobile:                   req.Mobile,
		Email:                    req.Email,
		FirstName:                req.FirstName,
		LastName:                 req.LastName,
		CallbackURL:              c.Config.CallbackURL,
		ReturnURL:                c.Config.ReturnURL,
		MobileMoneyOperatorRefID: req.OperatorRefID,
	}

	body, err := c.do(ctx, http.MethodPost, "/mobile-money/payments/initialize", payload)
	if err != nil {
		return nil, err
	}

	var resp initializeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{StatusCode: http.StatusOK, Body: string(body)}
	}
	if resp.Data.ChargeID == "" {
		return nil, &Error{StatusCode: http.StatusOK, Body: string(body)}
	}

	return &models.ChargeResult{ChargeID: resp.Data.ChargeID, Raw: body}, nil
}

func (c *Client) VerifyCharge(ctx context.Context, chargeID string) (*models.VerifiedTransaction, error) {
	if c.Config.ProviderSecretKey == "" {
		return nil, ErrNoSecretKey
	}

	path := fmt.Sprintf("/mobile-money/payments/%s/verify", chargeID)
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var envelope verifyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &Error{StatusCode: http.StatusOK, Body: string(body)}
	}

	tx := normalizeVerify(envelope, body)
	return &tx, nil
}

type operatorsResponse struct {
	Status string            `json:"status"`
	Data   []models.Operator `json:"data"`
}

func (c *Client) ListOperators(ctx context.Context) ([]models.Operator, error) {
	c.operators.mu.Lock()
	if c.operators.entries != nil && time.Since(c.operators.ts) < c.cacheTTL {
		entries := c.operators.entries
		c.operators.mu.Unlock()
		return entries, nil
	}
	c.operators.mu.Unlock()

	if c.Config.ProviderSecretKey == "" {
		return nil, ErrNoSecretKey
	}

	body, err := c.do(ctx, http.MethodGet, "/mobile-money", nil)
	if err != nil {
		return nil, err
	}

	var resp operatorsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{StatusCode: http.StatusOK, Body: string(body)}
	}
	if !strings.Contains(strings.ToLower(resp.Status), "success") {
		return nil, &Error{StatusCode: http.StatusOK, Body: string(body)}
	}

	c.operators.mu.Lock()
	c.operators.entries = resp.Data
	c.operators.ts = time.Now()
	c.operators.mu.Unlock()

	return resp.Data, nil
}

// ResolveOperatorRefID maps an explicit operator choice (short code, id,
// ref id or name) or a mobile number prefix to a provider operator ref id.
// Returns an empty string when nothing matches.
func (c *Client) ResolveOperatorRefID(ctx context.Context, operator, mobile string) (string, error) {
	if operator == "" && mobile == "" {
		return "", nil
	}

	operators, err := c.ListOperators(ctx)
	if err != nil {
		return "", err
	}

	if operator != "" {
		for _, op := range operators {
			if op.ShortCode == operator || op.RefID == operator || op.Name == operator ||
				strconv.FormatInt(op.ID, 10) == operator {
				return op.RefID, nil
			}
		}
	}

	if code := shortCodeForMobile(mobile); code != "" {
		for _, op := range operators {
			if strings.EqualFold(op.ShortCode, code) || strings.Contains(strings.ToLower(op.Name), code) {
				return op.RefID, nil
			}
		}
	}

	return "", nil
}

// shortCodeForMobile guesses the network from the Malawi number prefix:
// 88/89 belong to TNM, 97/98/99 to Airtel.
func shortCodeForMobile(mobile string) string {
	var digits strings.Builder
	for _, r := range mobile {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	p := strings.TrimPrefix(digits.String(), "265")
	p = strings.TrimPrefix(p, "0")

	switch {
	case strings.HasPrefix(p, "88"), strings.HasPrefix(p, "89"):
		return "tnm"
	case strings.HasPrefix(p, "97"), strings.HasPrefix(p, "98"), strings.HasPrefix(p, "99"):
		return "airtel"
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	url := strings.TrimSuffix(c.Config.ProviderAddress, "/") + path

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Config.ProviderSecretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
