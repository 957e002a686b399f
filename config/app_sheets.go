package config

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/internal/sheets"
	"github.com/akeren/sheet-waitlist/pkg/circuitbreaker"
	"github.com/akeren/sheet-waitlist/pkg/constants"
	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
	"github.com/akeren/sheet-waitlist/pkg/googleauth"
	"github.com/akeren/sheet-waitlist/pkg/utils"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultGoogleHTTPTimeout = 15 * time.Second

type SheetsConfig struct {
	Backend       string
	SpreadsheetID string
	AccountEmail  string
	PrivateKey    []byte
	ReadRange     string
	AppendRange   string
	TokenURL      string
	SheetsBaseURL string
	HTTPTimeout   time.Duration
}

// NewSheetsConfig reads the backend flag and, for the spreadsheet backends,
// the Google secrets. The private key is canonicalized here so a malformed
// key stops startup instead of failing every request.
func NewSheetsConfig() (*SheetsConfig, error) {
	timeout, err := utils.EnvDuration("GOOGLE_HTTP_TIMEOUT", defaultGoogleHTTPTimeout)
	if err != nil {
		return nil, apperrors.NewConfigurationError("invalid Google HTTP timeout", err)
	}

	cfg := &SheetsConfig{
		Backend:       strings.ToLower(utils.EnvOr("WAITLIST_BACKEND", constants.DefaultBackend)),
		SpreadsheetID: utils.Env("GOOGLE_SHEET_ID"),
		AccountEmail:  utils.Env("GOOGLE_SERVICE_ACCOUNT_EMAIL"),
		ReadRange:     utils.EnvOr("GOOGLE_SHEET_RANGE", sheets.DefaultReadRange),
		AppendRange:   utils.EnvOr("GOOGLE_SHEET_APPEND_RANGE", sheets.DefaultAppendRange),
		TokenURL:      utils.Env("GOOGLE_TOKEN_URL"),
		SheetsBaseURL: utils.Env("GOOGLE_SHEETS_BASE_URL"),
		HTTPTimeout:   timeout,
	}

	switch cfg.Backend {
	case constants.BackendREST, constants.BackendSession:
	case constants.BackendDatabase:
		return cfg, nil
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown WAITLIST_BACKEND %q (allowed: rest, session, database)", cfg.Backend), nil)
	}

	missing := []string{}
	if cfg.SpreadsheetID == "" {
		missing = append(missing, "GOOGLE_SHEET_ID")
	}
	if cfg.AccountEmail == "" {
		missing = append(missing, "GOOGLE_SERVICE_ACCOUNT_EMAIL")
	}

	rawKey := utils.Env("GOOGLE_PRIVATE_KEY")
	if rawKey == "" {
		missing = append(missing, "GOOGLE_PRIVATE_KEY")
	}

	if len(missing) > 0 {
		return nil, apperrors.NewConfigurationError("missing required Google env vars: "+strings.Join(missing, ", "), nil)
	}

	der, err := googleauth.CanonicalizePrivateKey(googleauth.ExpandEscapedNewlines(rawKey))
	if err != nil {
		return nil, apperrors.NewConfigurationError("GOOGLE_PRIVATE_KEY is not a usable key", err)
	}
	cfg.PrivateKey = der

	return cfg, nil
}

// UsesSpreadsheet reports whether the backend talks to Google Sheets.
func (sc *SheetsConfig) UsesSpreadsheet() bool {
	return sc.Backend == constants.BackendREST || sc.Backend == constants.BackendSession
}

func (sc *SheetsConfig) Credential() googleauth.Credential {
	return googleauth.Credential{
		AccountEmail: sc.AccountEmail,
		PrivateKey:   sc.PrivateKey,
		Scope:        googleauth.SpreadsheetsScope,
	}
}

func (sc *SheetsConfig) httpClient() *http.Client {
	client := &http.Client{Timeout: sc.HTTPTimeout}
	if utils.IsTracingEnabled() {
		client.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}
	return client
}

// NewMinter builds the assertion signer and token exchanger used by the
// rest backend and the CLI token command.
func (sc *SheetsConfig) NewMinter() (*googleauth.Minter, error) {
	tokenURL := sc.TokenURL
	if tokenURL == "" {
		tokenURL = googleauth.DefaultTokenURL
	}

	builder, err := googleauth.NewAssertionBuilder(sc.Credential(), tokenURL)
	if err != nil {
		return nil, apperrors.NewConfigurationError("unable to build JWT assertion signer", err)
	}

	return googleauth.NewMinter(builder, googleauth.NewTokenExchanger(sc.httpClient(), tokenURL)), nil
}

// NewStore returns the spreadsheet store for the configured backend, or nil
// for the database backend.
func (sc *SheetsConfig) NewStore(ctx context.Context, logger *log.Logger) (sheets.Store, error) {
	switch sc.Backend {
	case constants.BackendREST:
		minter, err := sc.NewMinter()
		if err != nil {
			return nil, err
		}

		store, err := sheets.NewRESTStore(minter, sheets.RESTConfig{
			BaseURL:       sc.SheetsBaseURL,
			SpreadsheetID: sc.SpreadsheetID,
			ReadRange:     sc.ReadRange,
			AppendRange:   sc.AppendRange,
			HTTPClient:    sc.httpClient(),
			Breaker:       circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		})
		if err != nil {
			return nil, apperrors.NewConfigurationError("unable to create REST spreadsheet store", err)
		}

		logger.Info("Waitlist backend ready", "backend", sc.Backend, "read_range", sc.ReadRange)
		return store, nil

	case constants.BackendSession:
		store, err := sheets.NewSessionStore(ctx, sheets.SessionConfig{
			SpreadsheetID: sc.SpreadsheetID,
			ReadRange:     sc.ReadRange,
			AppendRange:   sc.AppendRange,
			BaseURL:       sc.SheetsBaseURL,
			TokenURL:      sc.TokenURL,
			AccountEmail:  sc.AccountEmail,
			PrivateKey:    sc.PrivateKey,
			HTTPClient:    sc.httpClient(),
		})
		if err != nil {
			return nil, apperrors.NewConfigurationError("unable to create session spreadsheet store", err)
		}

		logger.Info("Waitlist backend ready", "backend", sc.Backend, "read_range", sc.ReadRange)
		return store, nil

	default:
		return nil, nil
	}
}
