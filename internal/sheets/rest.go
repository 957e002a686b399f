package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/akeren/sheet-waitlist/pkg/circuitbreaker"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 4 << 20

// TokenProvider hands out a bearer token. Implementations used with
// RESTStore must mint a new token per call.
type TokenProvider interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

type RESTConfig struct {
	BaseURL       string
	SpreadsheetID string
	ReadRange     string
	AppendRange   string
	HTTPClient    *http.Client
	Breaker       circuitbreaker.CircuitBreaker
}

// RESTStore talks to the Sheets v4 REST API directly. Every Open mints its
// own token; nothing survives between requests.
type RESTStore struct {
	cfg     RESTConfig
	tokens  TokenProvider
	breaker circuitbreaker.CircuitBreaker
}

func NewRESTStore(tokens TokenProvider, cfg RESTConfig) (*RESTStore, error) {
	if tokens == nil {
		return nil, errors.New("sheets: token provider is required")
	}
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = withTrailingSlash(cfg.BaseURL)
	if cfg.ReadRange == "" {
		cfg.ReadRange = DefaultReadRange
	}
	if cfg.AppendRange == "" {
		cfg.AppendRange = DefaultAppendRange
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.NewCircuitBreaker(nil)
	}

	return &RESTStore{cfg: cfg, tokens: tokens, breaker: cfg.Breaker}, nil
}

func (s *RESTStore) Open(ctx context.Context) (Sheet, error) {
	var token *oauth2.Token

	err := s.breaker.Call(func() error {
		t, err := s.tokens.Token(ctx)
		token = t
		return err
	})
	if err != nil {
		return nil, err
	}

	return &restSheet{store: s, token: token}, nil
}

func (s *RESTStore) Ping(_ context.Context) error {
	if s.breaker.State() == circuitbreaker.Open {
		return circuitbreaker.ErrCircuitOpen
	}
	return nil
}

func (s *RESTStore) valuesURL(a1Range, suffix string, query url.Values) string {
	u := s.cfg.BaseURL + "v4/spreadsheets/" + url.PathEscape(s.cfg.SpreadsheetID) + "/values/" + url.PathEscape(a1Range) + suffix
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

type restSheet struct {
	store *RESTStore
	token *oauth2.Token
}

type valueRange struct {
	Values [][]interface{} `json:"values"`
}

func (rs *restSheet) ListEmails(ctx context.Context) ([]string, error) {
	var out valueRange

	target := rs.store.valuesURL(rs.store.cfg.ReadRange, "", nil)
	if err := rs.do(ctx, "read", http.MethodGet, target, nil, &out); err != nil {
		return nil, err
	}

	return EmailsFromValues(out.Values), nil
}

func (rs *restSheet) AppendRow(ctx context.Context, row SheetRow) error {
	query := url.Values{}
	query.Set("valueInputOption", valueInputRaw)

	target := rs.store.valuesURL(rs.store.cfg.AppendRange, ":append", query)
	body := valueRange{Values: [][]interface{}{row.Values()}}

	return rs.do(ctx, "append", http.MethodPost, target, body, nil)
}

func (rs *restSheet) do(ctx context.Context, op, method, target string, body, out any) error {
	return rs.store.breaker.Call(func() error {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		rs.token.SetAuthHeader(req)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := rs.store.cfg.HTTPClient.Do(req)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &TransportError{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
		}

		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}

		return nil
	})
}
