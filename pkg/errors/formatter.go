package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationMessenger lets a request model supply its own user-facing text
// for a failed rule. field is the JSON name, tag the validator tag.
type ValidationMessenger interface {
	ValidationMessage(field, tag string) (string, bool)
}

func msgForTag(tag string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short or too small"
	case "max":
		return "Value is too long or too large"
	case "len":
		return "Value must be exact length"
	case "alpha":
		return "Value must contain only letters"
	case "personname":
		return "Value must contain only letters, spaces, hyphens and apostrophes"
	case "url":
		return "Invalid URL format"
	default:
		return "Invalid value"
	}
}

func msgForTagWithParam(fieldError validator.FieldError) string {
	message := msgForTag(fieldError.Tag())
	if fieldError.Param() == "" {
		return message
	}

	switch fieldError.Tag() {
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fieldError.Param())
	case "max":
		return fmt.Sprintf("Must not exceed %s characters", fieldError.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fieldError.Param())
	}
	return message
}

func getJSONFieldName(structType reflect.Type, fieldName string) string {
	field, found := structType.FieldByName(fieldName)
	if !found {
		return fieldName
	}

	for _, key := range []string{"json", "form"} {
		tag := field.Tag.Get(key)
		if tag == "" || tag == "-" {
			continue
		}
		if name := strings.Split(tag, ",")[0]; name != "" {
			return name
		}
	}

	return fieldName
}

// FormatValidationErrors renders binding failures as a list of field/message
// pairs. Rule text comes from the model when it implements
// ValidationMessenger, otherwise from generic per-tag text.
func FormatValidationErrors(err error, model interface{}) []ValidationErrorResponse {
	var errorsList []ValidationErrorResponse

	if err == nil {
		return errorsList
	}

	var jsonErr *json.UnmarshalTypeError
	if errors.As(err, &jsonErr) {
		return []ValidationErrorResponse{
			{
				Field:   jsonErr.Field,
				Message: fmt.Sprintf("Invalid type for field %s. Expected %s, got %s", jsonErr.Field, jsonErr.Type, jsonErr.Value),
			},
		}
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errorsList
	}

	var structType reflect.Type
	if model != nil {
		structType = reflect.TypeOf(model)
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
	}
	messenger, _ := model.(ValidationMessenger)

	errorsList = make([]ValidationErrorResponse, len(validationErrors))

	for i, fieldError := range validationErrors {
		jsonField := fieldError.Field()
		if structType != nil {
			jsonField = getJSONFieldName(structType, fieldError.Field())
		}

		message := msgForTagWithParam(fieldError)
		if messenger != nil {
			if custom, ok := messenger.ValidationMessage(jsonField, fieldError.Tag()); ok {
				message = custom
			}
		}

		errorsList[i] = ValidationErrorResponse{
			Field:   jsonField,
			Message: message,
		}
	}

	return errorsList
}
