package waitlist

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=waitlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/akeren/sheet-waitlist/internal/models"
	"github.com/akeren/sheet-waitlist/internal/sheets"
	"github.com/akeren/sheet-waitlist/pkg/circuitbreaker"
	"github.com/akeren/sheet-waitlist/pkg/constants"
	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
	"github.com/akeren/sheet-waitlist/pkg/googleauth"
	"gorm.io/gorm"
)

type WaitlistRepository interface {
	// AddEntry stores entry unless its email is already present.
	AddEntry(ctx context.Context, entry *models.WaitlistEntry) (JoinResult, error)
	// Ping checks that the backend is usable without changing it.
	Ping(ctx context.Context) error
}

// NewRepositoryForBackend picks the storage named by backend. store is used
// by the sheet backends and db by the database backend.
func NewRepositoryForBackend(backend string, store sheets.Store, db *gorm.DB) (WaitlistRepository, error) {
	switch backend {
	case constants.BackendREST, constants.BackendSession:
		if store == nil {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf("backend %q requires a spreadsheet store", backend), nil)
		}
		return NewSheetRepository(store), nil
	case constants.BackendDatabase:
		if db == nil {
			return nil, apperrors.NewConfigurationError("backend \"database\" requires a database connection", nil)
		}
		return NewDatabaseRepository(db), nil
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown waitlist backend %q", backend), nil)
	}
}

type sheetRepository struct {
	store sheets.Store
}

func NewSheetRepository(store sheets.Store) WaitlistRepository {
	return &sheetRepository{store: store}
}

func (r *sheetRepository) AddEntry(ctx context.Context, entry *models.WaitlistEntry) (JoinResult, error) {
	sheet, err := r.store.Open(ctx)
	if err != nil {
		return JoinResult{}, classifySheetError("unable to authenticate with the spreadsheet", err)
	}

	emails, err := sheet.ListEmails(ctx)
	if err != nil {
		return JoinResult{}, classifySheetError("unable to read waitlist rows", err)
	}

	if sheets.ContainsEmail(emails, entry.Email) {
		return JoinResult{Exists: true}, nil
	}

	if err := sheet.AppendRow(ctx, sheets.SheetRow{Email: entry.Email, Name: entry.Name}); err != nil {
		return JoinResult{}, classifySheetError("unable to append waitlist row", err)
	}

	return JoinResult{Exists: false}, nil
}

func (r *sheetRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func classifySheetError(message string, err error) error {
	var authErr *googleauth.AuthenticationError
	var transportErr *sheets.TransportError

	switch {
	case errors.Is(err, googleauth.ErrInvalidPrivateKey):
		return apperrors.NewConfigurationError(message, err)
	case errors.As(err, &authErr), errors.As(err, &transportErr), errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return apperrors.NewUpstreamError(message, err)
	default:
		return apperrors.NewInternalServerError(message, err)
	}
}

type databaseRepository struct {
	db *gorm.DB
}

// NewDatabaseRepository relies on the unique index on email instead of a
// read before insert.
func NewDatabaseRepository(db *gorm.DB) WaitlistRepository {
	return &databaseRepository{db: db}
}

func (r *databaseRepository) AddEntry(ctx context.Context, entry *models.WaitlistEntry) (JoinResult, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isDuplicateKey(err) {
			return JoinResult{Exists: true}, nil
		}
		return JoinResult{}, apperrors.NewDatabaseError("unable to create waitlist entry", err)
	}

	return JoinResult{Exists: false}, nil
}

func (r *databaseRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return apperrors.NewDatabaseError("unable to get database handle", err)
	}
	return sqlDB.PingContext(ctx)
}

func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err)
}
