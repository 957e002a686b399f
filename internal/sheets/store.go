// Package sheets reads and appends waitlist rows in a Google spreadsheet,
// either through raw REST calls authenticated with a freshly minted token or
// through the official client library session.
package sheets

import (
	"context"
	"fmt"
	"strings"
)

const (
	DefaultBaseURL     = "https://sheets.googleapis.com/"
	DefaultReadRange   = "Sheet1!A:B"
	DefaultAppendRange = "Sheet1!A"

	valueInputRaw = "RAW"
)

// SheetRow is appended by column position: A = email, B = name.
type SheetRow struct {
	Email string
	Name  string
}

func (r SheetRow) Values() []interface{} {
	return []interface{}{r.Email, r.Name}
}

// Sheet is one authenticated conversation with the spreadsheet.
type Sheet interface {
	// ListEmails returns every cell below the header row of the read range.
	ListEmails(ctx context.Context) ([]string, error)
	// AppendRow adds row after the last populated row, values taken literally.
	AppendRow(ctx context.Context, row SheetRow) error
}

type Store interface {
	Open(ctx context.Context) (Sheet, error)
	// Ping reports whether the store is currently usable without doing any
	// network I/O.
	Ping(ctx context.Context) error
}

// TransportError is any non-success answer from the spreadsheet API. Body is
// for logs only.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sheets %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sheets %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// EmailsFromValues drops the header row and flattens the rest. Non-string
// cells are ignored.
func EmailsFromValues(values [][]interface{}) []string {
	if len(values) <= 1 {
		return nil
	}

	var emails []string
	for _, row := range values[1:] {
		for _, cell := range row {
			if s, ok := cell.(string); ok {
				emails = append(emails, s)
			}
		}
	}

	return emails
}

// ContainsEmail is an exact, case-sensitive match.
func ContainsEmail(emails []string, email string) bool {
	for _, candidate := range emails {
		if candidate == email {
			return true
		}
	}
	return false
}

func withTrailingSlash(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
