package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/sitebill/internal/audit/domain"
	deductiondomain "github.com/smallbiznis/sitebill/internal/deduction/domain"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	paymentdomain "github.com/smallbiznis/sitebill/internal/payment/domain"
	quantitydomain "github.com/smallbiznis/sitebill/internal/quantity/domain"
	reportdomain "github.com/smallbiznis/sitebill/internal/report/domain"
	statementdomain "github.com/smallbiznis/sitebill/internal/statement/domain"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
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

	// Statement failures carry a readable detail for the operator.
	var stmtErr *statementdomain.ValidationError
	if errors.As(err, &stmtErr) {
		code := stmtErr.Err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: detailOrDefault(stmtErr.Details, code),
				},
			},
		}
	}

	var cfgErr *statementdomain.ConfigurationError
	if errors.As(err, &cfgErr) {
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "configuration_error",
			Message: err.Error(),
			Errors: []ValidationError{
				{
					Code:    cfgErr.Err.Error(),
					Message: detailOrDefault(cfgErr.Details, cfgErr.Err.Error()),
				},
			},
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, masterdomain.ErrDuplicateCode),
		errors.Is(err, deductiondomain.ErrDuplicateScope),
		errors.Is(err, deductiondomain.ErrDuplicateDefault):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog mirrors mapError without building a payload.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	var unbalanced *statementdomain.UnbalancedEntryError
	if errors.As(err, &unbalanced) {
		return "internal_error", "unbalanced_entry"
	}
	status, payload := mapError(err)
	code := ""
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status == http.StatusInternalServerError && code == "" {
		code = "unexpected"
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

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, masterdomain.ErrInvalidID),
		errors.Is(err, masterdomain.ErrInvalidCode),
		errors.Is(err, masterdomain.ErrInvalidName),
		errors.Is(err, masterdomain.ErrInvalidCompany),
		errors.Is(err, masterdomain.ErrInvalidAccountType),
		errors.Is(err, masterdomain.ErrInvalidJournalType),
		errors.Is(err, masterdomain.ErrInvalidPaymentType),
		errors.Is(err, masterdomain.ErrInvalidWorkType),
		errors.Is(err, masterdomain.ErrInvalidUnit),
		errors.Is(err, masterdomain.ErrInvalidJournal),
		errors.Is(err, masterdomain.ErrInvalidAccount):
		return true
	case errors.Is(err, taxdomain.ErrInvalidCompany),
		errors.Is(err, taxdomain.ErrInvalidName),
		errors.Is(err, taxdomain.ErrInvalidID),
		errors.Is(err, taxdomain.ErrInvalidAmountType),
		errors.Is(err, taxdomain.ErrInvalidAmount),
		errors.Is(err, taxdomain.ErrInvalidAccount):
		return true
	case errors.Is(err, deductiondomain.ErrInvalidCompany),
		errors.Is(err, deductiondomain.ErrInvalidName),
		errors.Is(err, deductiondomain.ErrInvalidScope),
		errors.Is(err, deductiondomain.ErrInvalidPercentage),
		errors.Is(err, deductiondomain.ErrInvalidAccount),
		errors.Is(err, deductiondomain.ErrInactiveConfig):
		return true
	case errors.Is(err, quantitydomain.ErrInvalidKey),
		errors.Is(err, quantitydomain.ErrInvalidQuantity),
		errors.Is(err, reportdomain.ErrInvalidDateRange),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidTimeRange):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, statementdomain.ErrNotFound),
		errors.Is(err, statementdomain.ErrLineNotFound),
		errors.Is(err, masterdomain.ErrNotFound),
		errors.Is(err, taxdomain.ErrNotFound),
		errors.Is(err, deductiondomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, reportdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		if errors.Unwrap(e) == nil {
			return e.Error()
		}
	}
	return err.Error()
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
	default:
		return "invalid value"
	}
}

func detailOrDefault(details, code string) string {
	if strings.TrimSpace(details) != "" {
		return details
	}
	return strings.ReplaceAll(code, "_", " ")
}
