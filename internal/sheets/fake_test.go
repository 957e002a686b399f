package sheets

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"golang.org/x/oauth2"
)

const testSpreadsheetID = "sheet-123"

// fakeSpreadsheet serves the subset of the Sheets v4 values API used here,
// plus a token endpoint at /token.
type fakeSpreadsheet struct {
	mu sync.Mutex

	rows         [][]interface{}
	readStatus   int
	appendStatus int
	tokenStatus  int

	reads       int
	appends     []appendCall
	tokenCalls  int
	authHeaders []string
}

type appendCall struct {
	Range            string
	ValueInputOption string
	Values           [][]interface{}
}

func newFakeSpreadsheet(t *testing.T, rows ...[]interface{}) (*fakeSpreadsheet, *httptest.Server) {
	t.Helper()

	fs := &fakeSpreadsheet{rows: rows}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)

	return fs, srv
}

func (fs *fakeSpreadsheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if r.URL.Path == "/token" {
		fs.tokenCalls++
		if fs.tokenStatus != 0 {
			http.Error(w, `{"error":"invalid_grant"}`, fs.tokenStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"session-token","token_type":"Bearer","expires_in":3600}`))
		return
	}

	prefix := "/v4/spreadsheets/" + testSpreadsheetID + "/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	fs.authHeaders = append(fs.authHeaders, r.Header.Get("Authorization"))
	a1 := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case r.Method == http.MethodGet:
		fs.reads++
		if fs.readStatus != 0 {
			http.Error(w, `{"error":{"code":403,"message":"denied"}}`, fs.readStatus)
			return
		}
		resp := map[string]interface{}{"range": a1, "majorDimension": "ROWS"}
		if len(fs.rows) > 0 {
			resp["values"] = fs.rows
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)

	case r.Method == http.MethodPost && strings.HasSuffix(a1, ":append"):
		if fs.appendStatus != 0 {
			http.Error(w, `{"error":{"code":500,"message":"backend"}}`, fs.appendStatus)
			return
		}
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		fs.appends = append(fs.appends, appendCall{
			Range:            strings.TrimSuffix(a1, ":append"),
			ValueInputOption: r.URL.Query().Get("valueInputOption"),
			Values:           body.Values,
		})
		fs.rows = append(fs.rows, body.Values...)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"` + testSpreadsheetID + `"}`))

	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func (fs *fakeSpreadsheet) snapshot() (int, []appendCall, []string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.reads, append([]appendCall(nil), fs.appends...), append([]string(nil), fs.authHeaders...)
}

type staticTokens struct {
	mu     sync.Mutex
	calls  int
	prefix string
	err    error
}

func (s *staticTokens) Token(_ context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &oauth2.Token{AccessToken: s.prefix + string(rune('0'+s.calls)), TokenType: "Bearer"}, nil
}

func testPrivateKeyDER(t *testing.T) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}
	return der
}
