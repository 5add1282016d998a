package mpesa

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"` // Daraja sends seconds as a string, e.g. "3599"
}

// AccessToken returns a bearer token for the gateway, fetching a fresh one
// only when the cached token is missing or near expiry. Concurrent callers
// share a single in-flight exchange.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok := c.token
	c.mu.Unlock()

	if tok.Valid() {
		return tok.AccessToken, nil
	}

	v, err, _ := c.sf.Do("token", func() (interface{}, error) {
		// The winner of a refresh race may have stored a token already.
		c.mu.Lock()
		tok := c.token
		c.mu.Unlock()
		if tok.Valid() {
			return tok, nil
		}

		fresh, err := c.fetchToken(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.token = fresh
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return "", err
	}

	return v.(*oauth2.Token).AccessToken, nil
}

func (c *Client) fetchToken(ctx context.Context) (*oauth2.Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.TokenURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create token request: %v", ErrGatewayAuth, err)
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: token endpoint returned status %d", ErrGatewayAuth, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %v", ErrGatewayAuth, err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrGatewayAuth)
	}

	ttl, err := strconv.Atoi(tr.ExpiresIn)
	if err != nil || ttl <= 0 {
		ttl = 3600
	}

	return &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   "Bearer",
		Expiry:      c.now().Add(time.Duration(ttl) * time.Second),
	}, nil
}
