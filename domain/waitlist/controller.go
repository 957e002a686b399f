package waitlist

import (
	"time"

	"github.com/akeren/sheet-waitlist/config/router"
	"github.com/akeren/sheet-waitlist/pkg/constants"
	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
)

// joinForm carries the raw submission. Rules live on JoinWaitlistRequest and
// run after normalization.
type joinForm struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
}

func NewWaitlistController(service WaitlistService, outcomes OutcomeRecorder) *router.RESTController {
	if outcomes == nil {
		outcomes = noopOutcomeRecorder{}
	}

	return router.NewRESTController(
		"WaitlistController",
		"/v1/waitlist",
		func(rs *router.RouterService, c *router.RESTController) {
			joinLimiter := rs.RateLimiter(constants.WaitlistJoinRequestsPerMinute, time.Minute)

			rs.AddPostHandler(c, joinLimiter, "", joinWaitlistHandler(service, outcomes))
		},
	)
}

func joinWaitlistHandler(service WaitlistService, outcomes OutcomeRecorder) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		logger := router.GetLogger(ctx)

		var form joinForm
		if err := ctx.ShouldBind(&form); err != nil {
			logger.Warn("Failed to bind waitlist submission", "error", err)
			outcomes.Record(OutcomeInvalid)

			if validationErrors := apperrors.FormatValidationErrors(err, &JoinWaitlistRequest{}); len(validationErrors) > 0 {
				return router.BadRequestResult("Invalid request payload", validationErrors)
			}
			return router.BadRequestResult("Invalid request body", nil)
		}

		req := JoinWaitlistRequest{Name: form.Name, Email: form.Email}
		if err := ValidateJoinRequest(&req); err != nil {
			outcomes.Record(OutcomeInvalid)

			validationErrors := apperrors.FormatValidationErrors(err, &req)
			if len(validationErrors) == 0 {
				logger.Error("Waitlist validation could not run", "error", err)
				return router.InternalServerErrorResult(apperrors.GenericFailureMessage)
			}
			return router.BadRequestResult("Invalid request payload", validationErrors)
		}

		response, err := service.Join(ctx.Request.Context(), &req)
		if err != nil {
			return router.ErrorResult(
				apperrors.HTTPStatusCode(err),
				apperrors.GetHumanReadableMessage(err),
				nil,
			)
		}

		return router.CreatedResult(response, JoinedMessage)
	}
}
