package waitlist

import (
	"context"

	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/pkg/constants"
	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
)

type WaitlistService interface {
	// Join adds a validated request to the waitlist. An email that is
	// already present yields a conflict error.
	Join(ctx context.Context, req *JoinWaitlistRequest) (*JoinWaitlistResponse, error)

	// Ping reports whether the configured backend is usable.
	Ping(ctx context.Context) error
}

type waitlistService struct {
	logger     *log.Logger
	repository WaitlistRepository
	lock       EmailLock
	outcomes   OutcomeRecorder
}

func NewWaitlistService(logger *log.Logger, repository WaitlistRepository, lock EmailLock, outcomes OutcomeRecorder) WaitlistService {
	if lock == nil {
		lock = NewMemoryEmailLock(constants.DefaultEmailLockTTL)
	}
	if outcomes == nil {
		outcomes = noopOutcomeRecorder{}
	}

	return &waitlistService{
		logger:     logger,
		repository: repository,
		lock:       lock,
		outcomes:   outcomes,
	}
}

func (s *waitlistService) Join(ctx context.Context, req *JoinWaitlistRequest) (*JoinWaitlistResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		s.outcomes.Record(OutcomeInvalid)
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	entry := ToWaitlistEntryModel(req)

	release, err := s.lock.Acquire(ctx, entry.Email)
	if err != nil {
		logger.Error("Failed to acquire waitlist email lock", "error", err)
		s.outcomes.Record(OutcomeFailed)
		return nil, apperrors.NewInternalServerError("unable to acquire email lock", err)
	}
	defer release()

	result, err := s.repository.AddEntry(ctx, entry)
	if err != nil {
		logger.Error("Failed to add waitlist entry",
			"error", err,
			"error_type", apperrors.GetErrorType(err),
		)
		s.outcomes.Record(OutcomeFailed)
		return nil, asAppError(err)
	}

	if result.Exists {
		logger.Info("Waitlist signup rejected, email already present")
		s.outcomes.Record(OutcomeDuplicate)
		return nil, apperrors.NewConflictError(AlreadyJoinedMessage, nil)
	}

	logger.Info("Waitlist entry added")
	s.outcomes.Record(OutcomeJoined)

	return ToJoinWaitlistResponse(entry), nil
}

func (s *waitlistService) Ping(ctx context.Context) error {
	return s.repository.Ping(ctx)
}

// asAppError keeps classified errors and demotes anything else to an
// internal error, so no raw upstream text reaches a response.
func asAppError(err error) error {
	if apperrors.GetErrorType(err) != apperrors.ErrorTypeUnknown {
		return err
	}
	return apperrors.NewInternalServerError("waitlist backend failure", err)
}
