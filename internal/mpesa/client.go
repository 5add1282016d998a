package mpesa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	config "github.com/jmwangi/cdj-storefront/configs"
)

var (
	ErrGatewayAuth        = errors.New("gateway credential exchange failed")
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrInvalidPhone       = errors.New("invalid phone number")
)

const (
	requestTimeout = 15 * time.Second
	maxAttempts    = 3
	initialBackoff = 500 * time.Millisecond
)

// Client talks to the Daraja gateway: token exchange and STK push.
type Client struct {
	cfg        config.MpesaConfig
	httpClient *http.Client
	now        func() time.Time
	backoff    time.Duration

	mu    sync.Mutex
	token *oauth2.Token
	sf    singleflight.Group
}

func New(cfg config.MpesaConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		now:        time.Now,
		backoff:    initialBackoff,
	}
}

// Outcome is the gateway's synchronous answer to a push request. Accepted
// means the push reached the customer's phone; the final verdict arrives
// later through the settlement callback.
type Outcome struct {
	Accepted          bool
	MerchantRequestID string
	CheckoutRequestID string
	ResponseCode      string
	ResponseDesc      string
}

type stkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ErrorCode           string `json:"errorCode"`
	ErrorMessage        string `json:"errorMessage"`
}

// Submit sends the push request with a bearer token. Transport failures are
// retried with doubling backoff up to maxAttempts; a response from the
// gateway, accepted or rejected, is a business outcome and is never retried.
func (c *Client) Submit(ctx context.Context, push *STKPushRequest) (*Outcome, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(push)
	if err != nil {
		return nil, fmt.Errorf("marshal push request: %w", err)
	}

	var lastErr error
	backoff := c.backoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		outcome, err := c.doPush(ctx, token, body)
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, lastErr)
}

// doPush returns an error only for transport-level failures; any HTTP
// response, whatever the status, is classified into an Outcome.
func (c *Client) doPush(ctx context.Context, token string, body []byte) (*Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.STKPushURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create push request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	var sr stkPushResponse
	_ = json.NewDecoder(resp.Body).Decode(&sr)

	if resp.StatusCode > 299 {
		code := sr.ErrorCode
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
		}
		desc := sr.ErrorMessage
		if desc == "" {
			desc = sr.ResponseDescription
		}
		return &Outcome{
			Accepted:     false,
			ResponseCode: code,
			ResponseDesc: desc,
		}, nil
	}

	return &Outcome{
		Accepted:          true,
		MerchantRequestID: sr.MerchantRequestID,
		CheckoutRequestID: sr.CheckoutRequestID,
		ResponseCode:      sr.ResponseCode,
		ResponseDesc:      sr.ResponseDescription,
	}, nil
}
