package sheets

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/akeren/sheet-waitlist/pkg/circuitbreaker"
	"github.com/akeren/sheet-waitlist/pkg/googleauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRESTStore(t *testing.T, baseURL string, tokens TokenProvider, breaker circuitbreaker.CircuitBreaker) *RESTStore {
	t.Helper()

	store, err := NewRESTStore(tokens, RESTConfig{
		BaseURL:       baseURL,
		SpreadsheetID: testSpreadsheetID,
		Breaker:       breaker,
	})
	require.NoError(t, err)
	return store
}

func TestEmailsFromValues(t *testing.T) {
	tests := []struct {
		name   string
		values [][]interface{}
		want   []string
	}{
		{name: "no rows", values: nil, want: nil},
		{name: "header only", values: [][]interface{}{{"Email", "Name"}}, want: nil},
		{
			name:   "flattens rows below header",
			values: [][]interface{}{{"Email", "Name"}, {"a@x.io", "Ann"}, {"b@x.io"}},
			want:   []string{"a@x.io", "Ann", "b@x.io"},
		},
		{
			name:   "skips non-string cells",
			values: [][]interface{}{{"Email"}, {"a@x.io", float64(3)}},
			want:   []string{"a@x.io"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EmailsFromValues(tt.values))
		})
	}
}

func TestContainsEmail_IsExactMatch(t *testing.T) {
	emails := []string{"ann@x.io"}

	assert.True(t, ContainsEmail(emails, "ann@x.io"))
	assert.False(t, ContainsEmail(emails, "Ann@x.io"))
	assert.False(t, ContainsEmail(emails, "ann@x.io "))
}

func TestRESTStore_ListAndAppend(t *testing.T) {
	fake, srv := newFakeSpreadsheet(t,
		[]interface{}{"Email", "Name"},
		[]interface{}{"ann@x.io", "Ann"},
	)
	tokens := &staticTokens{prefix: "tok-"}
	store := newTestRESTStore(t, srv.URL, tokens, nil)

	sheet, err := store.Open(context.Background())
	require.NoError(t, err)

	emails, err := sheet.ListEmails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ann@x.io", "Ann"}, emails)

	require.NoError(t, sheet.AppendRow(context.Background(), SheetRow{Email: "bob@x.io", Name: "Bob"}))

	reads, appends, auth := fake.snapshot()
	assert.Equal(t, 1, reads)
	require.Len(t, appends, 1)
	assert.Equal(t, DefaultAppendRange, appends[0].Range)
	assert.Equal(t, "RAW", appends[0].ValueInputOption)
	assert.Equal(t, [][]interface{}{{"bob@x.io", "Bob"}}, appends[0].Values)
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-1"}, auth)
}

func TestRESTStore_OpenMintsPerCall(t *testing.T) {
	_, srv := newFakeSpreadsheet(t)
	tokens := &staticTokens{prefix: "tok-"}
	store := newTestRESTStore(t, srv.URL, tokens, nil)

	for i := 0; i < 3; i++ {
		_, err := store.Open(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, 3, tokens.calls)
}

func TestRESTStore_EmptySheetHasNoEmails(t *testing.T) {
	_, srv := newFakeSpreadsheet(t)
	store := newTestRESTStore(t, srv.URL, &staticTokens{}, nil)

	sheet, err := store.Open(context.Background())
	require.NoError(t, err)

	emails, err := sheet.ListEmails(context.Background())
	require.NoError(t, err)
	assert.Empty(t, emails)
}

func TestRESTStore_NonSuccessIsTransportError(t *testing.T) {
	fake, srv := newFakeSpreadsheet(t, []interface{}{"Email"})
	fake.readStatus = http.StatusForbidden
	fake.appendStatus = http.StatusInternalServerError
	store := newTestRESTStore(t, srv.URL, &staticTokens{}, nil)

	sheet, err := store.Open(context.Background())
	require.NoError(t, err)

	_, err = sheet.ListEmails(context.Background())
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "read", transportErr.Op)
	assert.Equal(t, http.StatusForbidden, transportErr.StatusCode)

	err = sheet.AppendRow(context.Background(), SheetRow{Email: "a@x.io", Name: "A"})
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, "append", transportErr.Op)
	assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
}

func TestRESTStore_AuthenticationErrorPassesThrough(t *testing.T) {
	_, srv := newFakeSpreadsheet(t)
	authErr := &googleauth.AuthenticationError{StatusCode: http.StatusBadRequest, Body: "invalid_grant"}
	store := newTestRESTStore(t, srv.URL, &staticTokens{err: authErr}, nil)

	_, err := store.Open(context.Background())

	var got *googleauth.AuthenticationError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, "invalid_grant", got.Body)
}

func TestRESTStore_BreakerOpensAndPingReports(t *testing.T) {
	fake, srv := newFakeSpreadsheet(t)
	fake.readStatus = http.StatusServiceUnavailable
	breaker := circuitbreaker.NewCircuitBreaker(&circuitbreaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	store := newTestRESTStore(t, srv.URL, &staticTokens{}, breaker)

	require.NoError(t, store.Ping(context.Background()))

	sheet, err := store.Open(context.Background())
	require.NoError(t, err)
	_, err = sheet.ListEmails(context.Background())
	require.Error(t, err)

	assert.ErrorIs(t, store.Ping(context.Background()), circuitbreaker.ErrCircuitOpen)

	_, err = store.Open(context.Background())
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

func TestNewRESTStore_Validates(t *testing.T) {
	_, err := NewRESTStore(nil, RESTConfig{SpreadsheetID: "x"})
	assert.Error(t, err)

	_, err = NewRESTStore(&staticTokens{}, RESTConfig{})
	assert.Error(t, err)
}
