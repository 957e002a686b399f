package googleauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const maxTokenResponseBytes = 1 << 20

// AuthenticationError reports a rejected or malformed token exchange. Body
// is kept for server-side diagnostics and must never be shown to end users.
type AuthenticationError struct {
	StatusCode int
	Body       string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: status %d: %s", e.StatusCode, e.Body)
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	Assertion string `json:"assertion"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type TokenExchanger struct {
	client   *http.Client
	tokenURL string
}

func NewTokenExchanger(client *http.Client, tokenURL string) *TokenExchanger {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &TokenExchanger{client: client, tokenURL: tokenURL}
}

// Exchange posts a signed assertion using the jwt-bearer grant and returns
// the issued token.
func (e *TokenExchanger) Exchange(ctx context.Context, assertion string) (*oauth2.Token, error) {
	payload, err := json.Marshal(tokenRequest{GrantType: JWTBearerGrantType, Assertion: assertion})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var decoded tokenResponse
	if err := json.Unmarshal(body, &decoded); err != nil || decoded.AccessToken == "" {
		return nil, &AuthenticationError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	token := &oauth2.Token{
		AccessToken: decoded.AccessToken,
		TokenType:   decoded.TokenType,
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	if decoded.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(decoded.ExpiresIn) * time.Second)
	}

	return token, nil
}

// Minter produces a brand new token on every call: it signs a fresh
// assertion and exchanges it. Nothing is cached.
type Minter struct {
	builder   *AssertionBuilder
	exchanger *TokenExchanger
}

func NewMinter(builder *AssertionBuilder, exchanger *TokenExchanger) *Minter {
	return &Minter{builder: builder, exchanger: exchanger}
}

func (m *Minter) Token(ctx context.Context) (*oauth2.Token, error) {
	assertion, err := m.builder.Build()
	if err != nil {
		return nil, err
	}
	return m.exchanger.Exchange(ctx, assertion)
}
