// Package paymentgateway implements the Safaricom Daraja STK push client:
// OAuth credential exchange with an expiry-aware cache, request signing and
// the processrequest call. Field names on the wire are fixed by Daraja and
// must not be renamed.
package paymentgateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	oauthPath   = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"

	// transactionType is fixed for pay-bill STK pushes.
	transactionType = "CustomerPayBillOnline"

	// tokenExpiryMargin refreshes the cached token slightly before Daraja
	// would reject it.
	tokenExpiryMargin = 30 * time.Second
)

type Config struct {
	BaseURL        string
	ShortCode      string
	Passkey        string
	ConsumerKey    string
	ConsumerSecret string
	// BearerToken, when set, skips the OAuth exchange entirely.
	BearerToken string
	CallbackURL string
	Timeout     time.Duration
}

// Client talks to Daraja. The token cache is owned here and guarded by a
// mutex; callers share one Client.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	clock      func() time.Time

	mu          sync.Mutex
	cachedToken string
	tokenExpiry time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
		clock:  time.Now,
	}
}

// STKPushRequest is what callers provide; phone may be in local 07xx form and
// is normalized before hitting the wire.
type STKPushRequest struct {
	Phone            string
	Amount           int64
	AccountReference string
	Description      string
}

// STKPushResult carries the gateway's correlation identifiers for the
// asynchronous callback that follows.
type STKPushResult struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// Error is a gateway-level failure: transport error, non-2xx response or a
// non-zero response envelope. Message holds Daraja's errorMessage when the
// gateway supplied one.
type Error struct {
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func newTransportError(err error) *Error {
	return &Error{Message: err.Error(), cause: err}
}

// darajaErrorEnvelope is Daraja's error response body.
type darajaErrorEnvelope struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

// STKPush asks Daraja to prompt the payer's phone for PIN entry. No internal
// retry; the call is bounded by the client timeout and the caller's context.
func (c *Client) STKPush(ctx context.Context, req STKPushRequest) (*STKPushResult, error) {
	msisdn := NormalizeMSISDN(req.Phone)

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.clock().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))

	accountRef := req.AccountReference
	if accountRef == "" {
		accountRef = "Payment"
	}
	desc := req.Description
	if desc == "" {
		desc = "Payment from app"
	}

	payload := stkPushPayload{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   transactionType,
		Amount:            req.Amount,
		PartyA:            msisdn,
		PartyB:            c.cfg.ShortCode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   desc,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, newTransportError(fmt.Errorf("marshal stk push payload: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+stkPushPath, strings.NewReader(string(body)))
	if err != nil {
		return nil, newTransportError(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info("sending STK push request",
		"shortcode", c.cfg.ShortCode,
		"amount", req.Amount,
		"account_reference", accountRef)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("STK push request failed", "error", err)
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(fmt.Errorf("read stk push response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		gwErr := &Error{Message: fmt.Sprintf("daraja returned status %d", resp.StatusCode)}
		var envelope darajaErrorEnvelope
		if json.Unmarshal(respBody, &envelope) == nil && envelope.ErrorMessage != "" {
			gwErr.Code = envelope.ErrorCode
			gwErr.Message = envelope.ErrorMessage
		}
		c.logger.Error("STK push rejected",
			"status", resp.StatusCode,
			"error_code", gwErr.Code,
			"error_message", gwErr.Message)
		return nil, gwErr
	}

	var result STKPushResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, newTransportError(fmt.Errorf("decode stk push response: %w", err))
	}

	if result.ResponseCode != "0" {
		c.logger.Error("STK push not accepted",
			"response_code", result.ResponseCode,
			"response_description", result.ResponseDescription)
		return nil, &Error{Code: result.ResponseCode, Message: result.ResponseDescription}
	}

	c.logger.Info("STK push accepted",
		"checkout_request_id", result.CheckoutRequestID,
		"merchant_request_id", result.MerchantRequestID)

	return &result, nil
}

type oauthResponse struct {
	AccessToken string `json:"access_token"`
	// Daraja returns expires_in as a string of seconds.
	ExpiresIn string `json:"expires_in"`
}

// accessToken returns the configured static token or a cached/refreshed OAuth
// token. Only expiry metadata is ever logged, never the credential itself.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.cfg.BearerToken != "" {
		return c.cfg.BearerToken, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedToken != "" && c.clock().Before(c.tokenExpiry.Add(-tokenExpiryMargin)) {
		return c.cachedToken, nil
	}

	basic := base64.StdEncoding.EncodeToString(
		[]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+oauthPath, nil)
	if err != nil {
		return "", newTransportError(err)
	}
	httpReq.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("access token request failed", "error", err)
		return "", newTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		gwErr := &Error{Message: fmt.Sprintf("oauth returned status %d", resp.StatusCode)}
		var envelope darajaErrorEnvelope
		if json.Unmarshal(body, &envelope) == nil && envelope.ErrorMessage != "" {
			gwErr.Code = envelope.ErrorCode
			gwErr.Message = envelope.ErrorMessage
		}
		return "", gwErr
	}

	var oauth oauthResponse
	if err := json.NewDecoder(resp.Body).Decode(&oauth); err != nil {
		return "", newTransportError(fmt.Errorf("decode oauth response: %w", err))
	}
	if oauth.AccessToken == "" {
		return "", &Error{Message: "oauth response missing access_token"}
	}

	ttl := parseExpiresIn(oauth.ExpiresIn)
	c.cachedToken = oauth.AccessToken
	c.tokenExpiry = c.clock().Add(ttl)

	c.logger.Info("access token refreshed", "expires_in", ttl.String())

	return c.cachedToken, nil
}

func parseExpiresIn(raw string) time.Duration {
	var seconds int
	if _, err := fmt.Sscanf(raw, "%d", &seconds); err != nil || seconds <= 0 {
		// Daraja tokens last an hour; fall back to that when the field is odd.
		return time.Hour
	}
	return time.Duration(seconds) * time.Second
}
