package handlers

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/velopay/walletd/internal/adapters/http/common"
)

var setupOnce sync.Once

// SetupValidator registers custom binding validators on gin's validator
// engine and switches field names in validation errors to json tag names.
// Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = v.RegisterValidation("money", validateMoney)
	})
}

// moneyPattern accepts plain decimal strings. Scientific notation and signs
// are rejected here; range and scale checks happen when the amount is parsed.
var moneyPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

func validateMoney(fl validator.FieldLevel) bool {
	return moneyPattern.MatchString(fl.Field().String())
}

// HandleValidationErrors writes a field-level validation response when err
// came from the binding validator, and a generic bad request otherwise.
func HandleValidationErrors(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		common.BadRequestResponse(c, "invalid request body: "+err.Error())
		return
	}

	fieldErrors := make([]common.FieldError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		fieldErrors = append(fieldErrors, common.FieldError{
			Field:   fieldErr.Field(),
			Message: validationMessage(fieldErr),
		})
	}
	common.ValidationErrorResponse(c, fieldErrors)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "uuid":
		return "must be a valid UUID"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	case "money":
		return "must be a decimal string like \"100.50\""
	default:
		return "invalid value"
	}
}
