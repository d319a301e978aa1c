package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/gglounge/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/gglounge/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/gglounge/internal/customer/domain"
	"github.com/smallbiznis/gglounge/internal/discount"
	ledgerdomain "github.com/smallbiznis/gglounge/internal/ledger/domain"
	"github.com/smallbiznis/gglounge/internal/loyalty"
	"github.com/smallbiznis/gglounge/internal/payment"
	"github.com/smallbiznis/gglounge/internal/pricing"
	"github.com/smallbiznis/gglounge/internal/saga"
	sessiondomain "github.com/smallbiznis/gglounge/internal/session/domain"
	settingsdomain "github.com/smallbiznis/gglounge/internal/settings/domain"
	pkgrepository "github.com/smallbiznis/gglounge/pkg/repository"
	"github.com/smallbiznis/gglounge/pkg/validation"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if fieldErr := asFieldErrors(err); fieldErr != nil {
		out := make([]ValidationError, 0, len(fieldErr.Fields))
		for _, f := range fieldErr.Fields {
			out = append(out, ValidationError{
				Field:   f.Field,
				Code:    f.Rule,
				Message: fieldRuleMessage(f),
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  out,
		}
	}

	if isValidationError(err) {
		code, message := validationDetail(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: message,
				},
			},
		}
	}

	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, pricing.ErrConfigurationMissing):
		return http.StatusPreconditionFailed, errorPayload{
			Type:    "configuration_missing",
			Message: "pricing or loyalty settings are not configured for this device type",
		}
	case errors.Is(err, payment.ErrPaymentMismatch):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "payment_mismatch",
			Message: "payment channels do not add up to the final amount",
		}
	case errors.Is(err, payment.ErrInsufficientWalletBalance):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "insufficient_wallet_balance",
			Message: "wallet balance is lower than the membership amount",
		}
	case errors.Is(err, loyalty.ErrRedemptionExceedsCeiling):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "redemption_exceeds_ceiling",
			Message: "requested points exceed the usable redemption ceiling",
		}
	case errors.Is(err, saga.ErrDependentWriteFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "dependent_write_failed",
			Message: "a dependent write could not be applied",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded on the request log line.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError && payload.Type == "internal_error" {
		code = "unhandled"
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func asFieldErrors(err error) *validation.Error {
	var fErr *validation.Error
	if errors.As(err, &fErr) && fErr != nil {
		return fErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, validation.ErrValidation):
		return true
	case isSessionValidationError(err),
		isCustomerValidationError(err),
		isCatalogValidationError(err),
		isSettingsValidationError(err),
		isAuditValidationError(err),
		isBillingValidationError(err):
		return true
	default:
		return false
	}
}

func isSessionValidationError(err error) bool {
	return errors.Is(err, sessiondomain.ErrInvalidBranch) ||
		errors.Is(err, sessiondomain.ErrInvalidID)
}

func isCustomerValidationError(err error) bool {
	return errors.Is(err, customerdomain.ErrInvalidBranch) ||
		errors.Is(err, customerdomain.ErrInvalidName) ||
		errors.Is(err, customerdomain.ErrInvalidPhone) ||
		errors.Is(err, customerdomain.ErrInvalidEmail) ||
		errors.Is(err, customerdomain.ErrInvalidAmount) ||
		errors.Is(err, customerdomain.ErrInvalidID) ||
		errors.Is(err, customerdomain.ErrInvalidPageToken)
}

func isCatalogValidationError(err error) bool {
	return errors.Is(err, catalogdomain.ErrInvalidBranch) ||
		errors.Is(err, catalogdomain.ErrInvalidID) ||
		errors.Is(err, catalogdomain.ErrInvalidStatus)
}

func isSettingsValidationError(err error) bool {
	return errors.Is(err, settingsdomain.ErrInvalidBranch) ||
		errors.Is(err, settingsdomain.ErrInvalidDeviceType) ||
		errors.Is(err, settingsdomain.ErrInvalidPrice) ||
		errors.Is(err, settingsdomain.ErrInvalidRewardPercent) ||
		errors.Is(err, settingsdomain.ErrInvalidRatio)
}

func isAuditValidationError(err error) bool {
	return errors.Is(err, auditdomain.ErrInvalidBranch) ||
		errors.Is(err, auditdomain.ErrInvalidPageToken) ||
		errors.Is(err, auditdomain.ErrInvalidTimeRange) ||
		errors.Is(err, auditdomain.ErrInvalidAction)
}

func isBillingValidationError(err error) bool {
	return errors.Is(err, payment.ErrInvalidMode) ||
		errors.Is(err, payment.ErrInvalidChannelAmount) ||
		errors.Is(err, discount.ErrInvalidMode) ||
		errors.Is(err, discount.ErrInvalidValue) ||
		errors.Is(err, loyalty.ErrInvalidRedemption) ||
		errors.Is(err, pricing.ErrInvalidPlayerCount) ||
		errors.Is(err, pricing.ErrInvalidDuration) ||
		errors.Is(err, pricing.ErrInvalidDurationUnit) ||
		errors.Is(err, ledgerdomain.ErrInvalidSourceType)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, sessiondomain.ErrSessionNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, settingsdomain.ErrNotFound),
		errors.Is(err, catalogdomain.ErrDeviceNotFound),
		errors.Is(err, catalogdomain.ErrGameNotFound),
		errors.Is(err, catalogdomain.ErrSnackNotFound),
		errors.Is(err, pkgrepository.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, sessiondomain.ErrSessionClosed),
		errors.Is(err, sessiondomain.ErrDeviceUnavailable),
		errors.Is(err, catalogdomain.ErrDeviceBusy),
		errors.Is(err, customerdomain.ErrPhoneTaken):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	if errors.Is(err, ErrNotFound) {
		return "not found"
	}
	return err.Error()
}

// validationDetail picks the domain error out of a validation wrap and
// splits "code: detail" messages.
func validationDetail(err error) (string, string) {
	inner := err
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if e != nil && !errors.Is(e, validation.ErrValidation) {
				inner = e
				break
			}
		}
	}
	if errors.Is(inner, ErrInvalidRequest) {
		return "invalid_request", "invalid request"
	}

	text := inner.Error()
	if code, detail, found := strings.Cut(text, ": "); found {
		return code, detail
	}
	return text, validationErrorMessage(text)
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case sessiondomain.ErrNotExtendable.Error():
		return "vr sessions have a fixed duration"
	case sessiondomain.ErrPointsAtBooking.Error():
		return "gg points can only be redeemed when closing"
	default:
		return "invalid value"
	}
}

func fieldRuleMessage(f validation.FieldError) string {
	if f.Param == "" {
		return "failed " + f.Rule
	}
	return "failed " + f.Rule + "=" + f.Param
}
