package handlers

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tramdoc/tramdoc/internal/auth"
	"github.com/tramdoc/tramdoc/internal/services"
	appErrors "github.com/tramdoc/tramdoc/pkg/errors"
	"github.com/tramdoc/tramdoc/pkg/response"
	appValidator "github.com/tramdoc/tramdoc/pkg/validator"
)

var registerRulesOnce sync.Once

// registerRules installs request rules that depend on the auth package.
func registerRules() {
	registerRulesOnce.Do(func() {
		_ = appValidator.RegisterValidation("strong_password", func(fl validator.FieldLevel) bool {
			return auth.ValidatePassword(fl.Field().String()) == nil
		})
	})
}

// normalizer is implemented by request payloads that clean their fields before validation.
type normalizer interface {
	normalize()
}

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	registerRules()

	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if n, ok := any(dest).(normalizer); ok {
		n.normalize()
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, validationFailure(err))
		return false
	}

	return true
}

// validationFailure surfaces the first violated password rule as a policy error and
// folds everything else into a single bad request.
func validationFailure(err error) error {
	var ve appValidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, failure := range ve {
			if failure.Tag != "strong_password" {
				continue
			}
			var violation *auth.PolicyViolation
			if errors.As(auth.ValidatePassword(failure.Value), &violation) {
				return services.ErrPasswordPolicy.WithMessage(violation.Reason)
			}
		}
	}
	return appErrors.NewBadRequest(formatValidationError(err))
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", field))
			case "email":
				messages = append(messages, fmt.Sprintf("%s must be a valid email address", field))
			case "email_domain":
				messages = append(messages, fmt.Sprintf("%s must use a supported email provider", field))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s characters", field, failure.Param))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s characters", field, failure.Param))
			case "len":
				messages = append(messages, fmt.Sprintf("%s must be exactly %s characters", field, failure.Param))
			case "numeric":
				messages = append(messages, fmt.Sprintf("%s must contain digits only", field))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}
