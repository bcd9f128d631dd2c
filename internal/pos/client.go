// Package pos is the Clover point-of-sale client. It owns the OAuth token
// exchange, the restaurant-wide link state, and the charge/create-order
// calls the dialogue engine makes at checkout.
package pos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bellavista-assistant/internal/common/logger"
	"bellavista-assistant/internal/common/metrics"
	"bellavista-assistant/internal/order"
)

var (
	ErrNotLinked  = errors.New("POS_NOT_LINKED")
	ErrTimeout    = errors.New("POS_TIMEOUT")
	ErrCallFailed = errors.New("POS_CALL_FAILED")
)

type Config struct {
	AppID       string
	AppSecret   string
	BaseURL     string
	OAuthURL    string
	TokenURL    string
	RedirectURL string
	Timeout     time.Duration
}

// LinkState is the restaurant-wide OAuth state. One instance per process;
// the OAuth callback handler is the single writer, every session turn reads
// it through IsLinked.
type LinkState struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	merchantID   string
	merchantName string
}

func (s *LinkState) setTokens(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = access
	if refresh != "" {
		s.refreshToken = refresh
	}
}

func (s *LinkState) setMerchant(id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merchantID = id
	s.merchantName = name
}

func (s *LinkState) tokens() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *LinkState) merchant() (id, name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merchantID, s.merchantName
}

// LinkStatus is the wire shape of the /api/pos/status response.
type LinkStatus struct {
	Authenticated   bool   `json:"authenticated"`
	MerchantID      string `json:"merchant_id,omitempty"`
	MerchantName    string `json:"merchant_name,omitempty"`
	HasAccessToken  bool   `json:"has_access_token"`
	HasRefreshToken bool   `json:"has_refresh_token"`
}

// Merchant is the subset of the Clover merchant object the assistant uses.
type Merchant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ChargeResult carries the provider reference for a successful charge.
type ChargeResult struct {
	Reference string `json:"reference"`
	AmountDue string `json:"amount_due"`
}

// OrderResult carries the provider identifier for a created order.
type OrderResult struct {
	OrderID string `json:"order_id"`
}

type Client struct {
	config *Config
	state  *LinkState
	client *http.Client
	logger logger.Logger
}

func NewClient(config *Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		state:  &LinkState{},
		client: &http.Client{},
		logger: log.With(map[string]interface{}{
			"component": "pos",
		}),
	}
}

// AuthorizationURL builds the Clover OAuth redirect target.
func (c *Client) AuthorizationURL() string {
	params := url.Values{}
	params.Set("client_id", c.config.AppID)
	params.Set("redirect_uri", c.config.RedirectURL)
	params.Set("response_type", "code")
	return fmt.Sprintf("%s?%s", c.config.OAuthURL, params.Encode())
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ExchangeCode trades the OAuth authorization code for tokens and loads the
// merchant identity. A successful exchange flips the restaurant to linked.
func (c *Client) ExchangeCode(ctx context.Context, authorizationCode string) (Merchant, error) {
	payload := map[string]string{
		"client_id":     c.config.AppID,
		"client_secret": c.config.AppSecret,
		"code":          authorizationCode,
		"redirect_uri":  c.config.RedirectURL,
	}

	var tokens tokenResponse
	if err := c.postJSON(ctx, "token_exchange", c.config.TokenURL, payload, &tokens); err != nil {
		return Merchant{}, err
	}
	if tokens.AccessToken == "" {
		metrics.PosRequests.WithLabelValues("token_exchange", "error").Inc()
		return Merchant{}, fmt.Errorf("%w: token exchange returned no access token", ErrCallFailed)
	}
	c.state.setTokens(tokens.AccessToken, tokens.RefreshToken)

	merchant, err := c.MerchantInfo(ctx)
	if err != nil {
		return Merchant{}, err
	}

	c.logger.Info("pos account linked", map[string]interface{}{
		"merchantId": merchant.ID,
	})
	return merchant, nil
}

// MerchantInfo fetches the merchant bound to the current access token and
// records its identity in the link state.
func (c *Client) MerchantInfo(ctx context.Context) (Merchant, error) {
	body, err := c.doAuthenticated(ctx, "merchant_info", http.MethodGet, "/v3/merchants/me", nil)
	if err != nil {
		return Merchant{}, err
	}

	var merchant Merchant
	if err := json.Unmarshal(body, &merchant); err != nil {
		return Merchant{}, fmt.Errorf("%w: decode merchant: %v", ErrCallFailed, err)
	}
	if merchant.ID == "" {
		return Merchant{}, fmt.Errorf("%w: merchant response missing id", ErrCallFailed)
	}

	c.state.setMerchant(merchant.ID, merchant.Name)
	return merchant, nil
}

// IsLinked reports whether the restaurant completed the OAuth flow.
func (c *Client) IsLinked() bool {
	access, _ := c.state.tokens()
	merchantID, _ := c.state.merchant()
	return access != "" && merchantID != ""
}

// Status snapshots the link state for the status endpoint.
func (c *Client) Status() LinkStatus {
	access, refresh := c.state.tokens()
	merchantID, merchantName := c.state.merchant()
	return LinkStatus{
		Authenticated:   access != "" && merchantID != "",
		MerchantID:      merchantID,
		MerchantName:    merchantName,
		HasAccessToken:  access != "",
		HasRefreshToken: refresh != "",
	}
}

type chargeRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	ExternalRef    string `json:"externalReferenceId"`
	TaxAmount      int64  `json:"taxAmount"`
	Note           string `json:"note"`
	IdempotencyKey string `json:"idempotencyKey"`
}

type chargeResponse struct {
	ID string `json:"id"`
}

// ChargeOrder submits a payment for the ledger totals. The caller decides
// whether the ledger survives a failure; this method never mutates it.
func (c *Client) ChargeOrder(ctx context.Context, totals order.Totals, lines []order.Line) (ChargeResult, error) {
	if !c.IsLinked() {
		return ChargeResult{}, ErrNotLinked
	}
	merchantID, _ := c.state.merchant()

	req := chargeRequest{
		Amount:         toCents(totals.Total),
		Currency:       "USD",
		ExternalRef:    uuid.New().String(),
		TaxAmount:      toCents(totals.Tax),
		Note:           fmt.Sprintf("Bella Vista order, %d items", len(lines)),
		IdempotencyKey: uuid.New().String(),
	}

	body, err := c.doAuthenticated(ctx, "charge_order", http.MethodPost,
		fmt.Sprintf("/v3/merchants/%s/payments", merchantID), req)
	if err != nil {
		return ChargeResult{}, err
	}

	var resp chargeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ChargeResult{}, fmt.Errorf("%w: decode charge: %v", ErrCallFailed, err)
	}
	if resp.ID == "" {
		resp.ID = req.ExternalRef
	}

	c.logger.Info("order charged", map[string]interface{}{
		"reference":   resp.ID,
		"amountCents": req.Amount,
	})
	return ChargeResult{Reference: resp.ID, AmountDue: "$" + totals.Total.StringFixed(2)}, nil
}

type orderLineItem struct {
	Name    string `json:"name"`
	Price   int64  `json:"price"`
	UnitQty int    `json:"unitQty"`
	Note    string `json:"note,omitempty"`
}

type createOrderRequest struct {
	ExternalRef string          `json:"externalReferenceId"`
	State       string          `json:"state"`
	LineItems   []orderLineItem `json:"lineItems"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// CreateOrder pushes the ledger lines to the POS as a new order.
func (c *Client) CreateOrder(ctx context.Context, lines []order.Line) (OrderResult, error) {
	if !c.IsLinked() {
		return OrderResult{}, ErrNotLinked
	}
	merchantID, _ := c.state.merchant()

	req := createOrderRequest{
		ExternalRef: uuid.New().String(),
		State:       "open",
		LineItems:   make([]orderLineItem, 0, len(lines)),
	}
	for _, line := range lines {
		req.LineItems = append(req.LineItems, orderLineItem{
			Name:    line.Name,
			Price:   toCents(line.UnitPrice),
			UnitQty: line.Quantity,
			Note:    line.SpecialRequests,
		})
	}

	body, err := c.doAuthenticated(ctx, "create_order", http.MethodPost,
		fmt.Sprintf("/v3/merchants/%s/orders", merchantID), req)
	if err != nil {
		return OrderResult{}, err
	}

	var resp createOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return OrderResult{}, fmt.Errorf("%w: decode order: %v", ErrCallFailed, err)
	}
	if resp.ID == "" {
		resp.ID = req.ExternalRef
	}

	c.logger.Info("order created", map[string]interface{}{
		"orderId": resp.ID,
		"lines":   len(lines),
	})
	return OrderResult{OrderID: resp.ID}, nil
}

// refreshAccessToken trades the refresh token for a new access token.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	_, refresh := c.state.tokens()
	if refresh == "" {
		return ErrNotLinked
	}

	payload := map[string]string{
		"client_id":     c.config.AppID,
		"client_secret": c.config.AppSecret,
		"refresh_token": refresh,
	}

	var tokens tokenResponse
	if err := c.postJSON(ctx, "token_refresh", c.config.TokenURL, payload, &tokens); err != nil {
		return err
	}
	if tokens.AccessToken == "" {
		return fmt.Errorf("%w: token refresh returned no access token", ErrCallFailed)
	}
	c.state.setTokens(tokens.AccessToken, tokens.RefreshToken)
	return nil
}

// doAuthenticated performs one bearer-authenticated call against the Clover
// REST API. A 401 triggers exactly one token refresh and retry.
func (c *Client) doAuthenticated(ctx context.Context, operation, method, path string, payload interface{}) ([]byte, error) {
	access, _ := c.state.tokens()
	if access == "" {
		return nil, ErrNotLinked
	}

	body, status, err := c.do(ctx, operation, method, c.config.BaseURL+path, access, payload)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		if err := c.refreshAccessToken(ctx); err != nil {
			metrics.PosRequests.WithLabelValues(operation, "error").Inc()
			return nil, err
		}
		access, _ = c.state.tokens()
		body, status, err = c.do(ctx, operation, method, c.config.BaseURL+path, access, payload)
		if err != nil {
			return nil, err
		}
	}

	if status < 200 || status >= 300 {
		metrics.PosRequests.WithLabelValues(operation, "error").Inc()
		return nil, fmt.Errorf("%w: %s returned status %d: %s", ErrCallFailed, operation, status, string(body))
	}

	metrics.PosRequests.WithLabelValues(operation, "success").Inc()
	return body, nil
}

// postJSON performs one unauthenticated JSON POST, used by the token flows.
func (c *Client) postJSON(ctx context.Context, operation, fullURL string, payload, out interface{}) error {
	body, status, err := c.do(ctx, operation, http.MethodPost, fullURL, "", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		metrics.PosRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("%w: %s returned status %d: %s", ErrCallFailed, operation, status, string(body))
	}
	metrics.PosRequests.WithLabelValues(operation, "success").Inc()
	return json.Unmarshal(body, out)
}

func (c *Client) do(ctx context.Context, operation, method, fullURL, bearer string, payload interface{}) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: marshal %s: %v", ErrCallFailed, operation, err)
		}
		reqBody = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, context.Canceled) {
			metrics.PosRequests.WithLabelValues(operation, "timeout").Inc()
			return nil, 0, fmt.Errorf("%w: %s", ErrTimeout, operation)
		}
		metrics.PosRequests.WithLabelValues(operation, "error").Inc()
		return nil, 0, fmt.Errorf("%w: %v", ErrCallFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %v", ErrCallFailed, err)
	}
	return raw, resp.StatusCode, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
