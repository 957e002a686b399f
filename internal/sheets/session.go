package sheets

import (
	"context"
	"errors"
	"net/http"

	"github.com/akeren/sheet-waitlist/pkg/googleauth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

type SessionConfig struct {
	SpreadsheetID string
	ReadRange     string
	AppendRange   string
	BaseURL       string
	TokenURL      string
	AccountEmail  string
	// PrivateKey holds PKCS#8 DER bytes.
	PrivateKey []byte
	Scope      string
	HTTPClient *http.Client
}

// SessionStore uses the Sheets client library. Token acquisition and
// refresh are left to the library's service-account session.
type SessionStore struct {
	cfg SessionConfig
	svc *sheetsapi.Service
}

func NewSessionStore(ctx context.Context, cfg SessionConfig) (*SessionStore, error) {
	if cfg.SpreadsheetID == "" {
		return nil, errors.New("sheets: spreadsheet id is required")
	}
	if cfg.AccountEmail == "" {
		return nil, errors.New("sheets: service account email is required")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, googleauth.ErrInvalidPrivateKey
	}

	if cfg.ReadRange == "" {
		cfg.ReadRange = DefaultReadRange
	}
	if cfg.AppendRange == "" {
		cfg.AppendRange = DefaultAppendRange
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = google.JWTTokenURL
	}
	if cfg.Scope == "" {
		cfg.Scope = googleauth.SpreadsheetsScope
	}

	jwtConfig := &jwt.Config{
		Email:      cfg.AccountEmail,
		PrivateKey: googleauth.EncodePEM(cfg.PrivateKey),
		Scopes:     []string{cfg.Scope},
		TokenURL:   cfg.TokenURL,
	}

	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}

	opts := []option.ClientOption{option.WithHTTPClient(jwtConfig.Client(ctx))}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(withTrailingSlash(cfg.BaseURL)))
	}

	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &SessionStore{cfg: cfg, svc: svc}, nil
}

func (s *SessionStore) Open(_ context.Context) (Sheet, error) {
	return s, nil
}

func (s *SessionStore) Ping(_ context.Context) error {
	return nil
}

func (s *SessionStore) ListEmails(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.cfg.ReadRange).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("read", err)
	}

	return EmailsFromValues(resp.Values), nil
}

func (s *SessionStore) AppendRow(ctx context.Context, row SheetRow) error {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{row.Values()}}

	_, err := s.svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, s.cfg.AppendRange, vr).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return wrapAPIError("append", err)
	}

	return nil
}

// wrapAPIError keeps token endpoint failures distinguishable from
// spreadsheet failures.
func wrapAPIError(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &googleauth.AuthenticationError{StatusCode: status, Body: string(retrieveErr.Body)}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &TransportError{Op: op, StatusCode: gerr.Code, Body: gerr.Body, Err: err}
	}

	return &TransportError{Op: op, Err: err}
}
