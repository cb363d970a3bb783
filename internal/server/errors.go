package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	"github.com/smallbiznis/partnerpayout/internal/keylock"
	"github.com/smallbiznis/partnerpayout/internal/lmsfeed"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
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

// validationRule maps a domain sentinel onto the field reported to clients.
type validationRule struct {
	err     error
	field   string
	message string
}

var validationRules = []validationRule{
	{payoutdomain.ErrMissingBatchContext, "period", "year and month are required"},
	{payoutdomain.ErrInvalidDealID, "deal_id", "invalid deal_id"},
	{cyclestatusdomain.ErrInvalidPeriod, "period", "invalid cycle period"},
	{cyclestatusdomain.ErrInvalidFeedType, "feed", "unknown feed type"},
	{cyclestatusdomain.ErrInvalidStage, "stage", "unknown cycle stage"},
	{lmsfeed.ErrUnsupportedFormat, "file", "file must be .csv, .xlsx or .xlsm"},
	{lmsfeed.ErrEmptyFeed, "file", "feed has no rows"},
	{lmsfeed.ErrMissingLoanIDColumn, "file", "feed has no loan id column"},
	{lmsfeed.ErrSheetNotFound, "sheet", "sheet not found in workbook"},
}

var notFoundErrors = []error{
	cyclestatusdomain.ErrNotFound,
	dealdomain.ErrNotFound,
	gorm.ErrRecordNotFound,
}

var unavailableErrors = []error{
	payoutdomain.ErrLockNotObtained,
	keylock.ErrNotObtained,
}

var internalPayload = errorPayload{Type: "internal_error", Message: "internal server error"}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, internalPayload
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: "validation error", Errors: vErr.Errors}
	}
	for _, rule := range validationRules {
		if errors.Is(err, rule.err) {
			return http.StatusBadRequest, errorPayload{
				Type:    "validation_error",
				Message: "validation error",
				Errors:  []ValidationError{{Field: rule.field, Code: rule.err.Error(), Message: rule.message}},
			}
		}
	}
	if matchesAny(err, notFoundErrors) {
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}
	}
	if matchesAny(err, unavailableErrors) {
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: "cycle is busy, retry later"}
	}
	return http.StatusInternalServerError, internalPayload
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classifyErrorForLog feeds the request logger's error_kind/error_code.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	if status >= http.StatusInternalServerError {
		return "server", code
	}
	return "client", code
}
