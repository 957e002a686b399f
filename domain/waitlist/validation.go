package waitlist

import (
	"errors"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var personNamePattern = regexp.MustCompile(`^[A-Za-z\s\-']+$`)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators adds the custom tags used by the request models to
// gin's shared validator engine.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("waitlist: gin validator engine is not go-playground/validator")
			return
		}
		registerErr = v.RegisterValidation("personname", validatePersonName)
	})
	return registerErr
}

func validatePersonName(fl validator.FieldLevel) bool {
	return personNamePattern.MatchString(fl.Field().String())
}

// ValidateJoinRequest normalizes req in place and runs the binding rules.
func ValidateJoinRequest(req *JoinWaitlistRequest) error {
	if err := RegisterValidators(); err != nil {
		return err
	}
	req.Normalize()
	return binding.Validator.ValidateStruct(req)
}
