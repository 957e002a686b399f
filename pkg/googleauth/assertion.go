// Package googleauth signs service-account JWT assertions and trades them for
// short-lived bearer tokens at Google's OAuth2 token endpoint.
package googleauth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultTokenURL    = "https://www.googleapis.com/oauth2/v4/token"
	SpreadsheetsScope  = "https://www.googleapis.com/auth/spreadsheets"
	JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// The issue time is backdated to absorb clock skew with the token server.
	assertionBackdate = 10 * time.Second
	assertionLifetime = 600 * time.Second
)

// Credential identifies a service account. PrivateKey holds PKCS#8 DER bytes.
type Credential struct {
	AccountEmail string
	PrivateKey   []byte
	Scope        string
}

type Header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

type Claims struct {
	Audience  string `json:"aud"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Issuer    string `json:"iss"`
	Scope     string `json:"scope"`
}

type AssertionBuilder struct {
	issuer   string
	scope    string
	audience string
	key      *rsa.PrivateKey
	now      func() time.Time
}

func NewAssertionBuilder(credential Credential, audience string) (*AssertionBuilder, error) {
	if strings.TrimSpace(credential.AccountEmail) == "" {
		return nil, errors.New("googleauth: service account email is required")
	}

	key, err := ParsePrivateKey(credential.PrivateKey)
	if err != nil {
		return nil, err
	}

	scope := credential.Scope
	if scope == "" {
		scope = SpreadsheetsScope
	}
	if audience == "" {
		audience = DefaultTokenURL
	}

	return &AssertionBuilder{
		issuer:   credential.AccountEmail,
		scope:    scope,
		audience: audience,
		key:      key,
		now:      time.Now,
	}, nil
}

// WithClock replaces the time source. Intended for tests.
func (b *AssertionBuilder) WithClock(now func() time.Time) *AssertionBuilder {
	b.now = now
	return b
}

func (b *AssertionBuilder) Claims() Claims {
	now := b.now().Unix()
	return Claims{
		Audience:  b.audience,
		IssuedAt:  now - int64(assertionBackdate/time.Second),
		ExpiresAt: now + int64(assertionLifetime/time.Second),
		Issuer:    b.issuer,
		Scope:     b.scope,
	}
}

// Build returns header.payload.signature, each segment base64url without
// padding, signed with RS256.
func (b *AssertionBuilder) Build() (string, error) {
	headerJSON, err := json.Marshal(Header{Type: "JWT", Algorithm: "RS256"})
	if err != nil {
		return "", err
	}

	payloadJSON, err := json.Marshal(b.Claims())
	if err != nil {
		return "", err
	}

	target := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(payloadJSON)

	digest := sha256.Sum256([]byte(target))
	signature, err := rsa.SignPKCS1v15(rand.Reader, b.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("googleauth: sign assertion: %w", err)
	}

	return target + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}
