package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	"github.com/smallbiznis/partnerpayout/internal/keylock"
	"github.com/smallbiznis/partnerpayout/internal/lmsfeed"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorValidationRules(t *testing.T) {
	status, payload := mapError(fmt.Errorf("decode: %w", lmsfeed.ErrSheetNotFound))
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "sheet", payload.Errors[0].Field)
	assert.Equal(t, "sheet_not_found", payload.Errors[0].Code)

	status, payload = mapError(newValidationError("file", "required", "file is required"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "required", payload.Errors[0].Code)
}

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{cyclestatusdomain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("calc: %w", payoutdomain.ErrLockNotObtained), http.StatusServiceUnavailable},
		{keylock.ErrNotObtained, http.StatusServiceUnavailable},
		{errors.New("db down"), http.StatusInternalServerError},
		{nil, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		assert.Equal(t, tc.status, status, "%v", tc.err)
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, code := classifyErrorForLog(payoutdomain.ErrMissingBatchContext)
	assert.Equal(t, "client", kind)
	assert.Equal(t, "missing_batch_context", code)

	kind, code = classifyErrorForLog(errors.New("boom"))
	assert.Equal(t, "server", kind)
	assert.Equal(t, "internal_error", code)
}
