package sheets

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/akeren/sheet-waitlist/pkg/googleauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(t *testing.T, baseURL string) *SessionStore {
	t.Helper()

	store, err := NewSessionStore(context.Background(), SessionConfig{
		SpreadsheetID: testSpreadsheetID,
		BaseURL:       baseURL,
		TokenURL:      baseURL + "/token",
		AccountEmail:  "waitlist@project.iam.gserviceaccount.com",
		PrivateKey:    testPrivateKeyDER(t),
		HTTPClient:    http.DefaultClient,
	})
	require.NoError(t, err)
	return store
}

func TestSessionStore_ListAndAppend(t *testing.T) {
	fake, srv := newFakeSpreadsheet(t,
		[]interface{}{"Email", "Name"},
		[]interface{}{"ann@x.io", "Ann"},
	)
	store := newTestSessionStore(t, srv.URL)

	sheet, err := store.Open(context.Background())
	require.NoError(t, err)

	emails, err := sheet.ListEmails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ann@x.io", "Ann"}, emails)

	require.NoError(t, sheet.AppendRow(context.Background(), SheetRow{Email: "bob@x.io", Name: "Bob"}))

	_, appends, auth := fake.snapshot()
	require.Len(t, appends, 1)
	assert.Equal(t, "RAW", appends[0].ValueInputOption)
	assert.Equal(t, [][]interface{}{{"bob@x.io", "Bob"}}, appends[0].Values)
	for _, header := range auth {
		assert.Equal(t, "Bearer session-token", header)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.tokenCalls, "session reuses its token until expiry")
}

func TestSessionStore_TokenFailureIsAuthenticationError(t *testing.T) {
	fake, srv := newFakeSpreadsheet(t)
	fake.tokenStatus = http.StatusBadRequest
	store := newTestSessionStore(t, srv.URL)

	_, err := store.ListEmails(context.Background())

	var authErr *googleauth.AuthenticationError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusBadRequest, authErr.StatusCode)
}

func TestSessionStore_APIErrorIsTransportError(t *testing.T) {
	fake, srv := newFakeSpreadsheet(t)
	fake.appendStatus = http.StatusInternalServerError
	store := newTestSessionStore(t, srv.URL)

	err := store.AppendRow(context.Background(), SheetRow{Email: "a@x.io", Name: "A"})

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
}

func TestNewSessionStore_RequiresCredentials(t *testing.T) {
	_, err := NewSessionStore(context.Background(), SessionConfig{SpreadsheetID: "x", AccountEmail: "a@b"})
	assert.ErrorIs(t, err, googleauth.ErrInvalidPrivateKey)

	_, err = NewSessionStore(context.Background(), SessionConfig{SpreadsheetID: "x", PrivateKey: []byte{1}})
	assert.Error(t, err)
}
