package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawCycleRowAcceptsNumbersStringsAndNull(t *testing.T) {
	body := `{
		"loan_id": " LN-001 ",
		"opening_pos": 100000,
		"closing_pos": "95,000.50",
		"total_interest_component_paid": null,
		"opening_dpd": "0",
		"closing_dpd": 30,
		"cycle_start_date": "2024-01-01",
		"cycle_end_date": "31-01-2024"
	}`
	var row RawCycleRow
	require.NoError(t, json.Unmarshal([]byte(body), &row))

	rec, err := row.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, "LN-001", rec.LoanID)
	assert.True(t, rec.OpeningPos.Decimal.Equal(decimal.NewFromInt(100000)))
	assert.True(t, rec.ClosingPos.Decimal.Equal(decimal.RequireFromString("95000.50")))
	assert.False(t, rec.TotalInterestComponentPaid.Valid)
	require.NotNil(t, rec.ClosingDPD)
	assert.Equal(t, 30, *rec.ClosingDPD)
	require.NotNil(t, rec.CycleEndDate)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *rec.CycleEndDate)
}

func TestRawCycleRowRejectsMalformedValues(t *testing.T) {
	_, err := RawCycleRow{}.ToRecord()
	assert.ErrorIs(t, err, ErrMissingLoanID)

	_, err = RawCycleRow{LoanID: "LN-1", TotalPaid: "12abc"}.ToRecord()
	assert.ErrorIs(t, err, ErrInvalidAmount)
	var fieldErr *FieldError
	require.True(t, errors.As(err, &fieldErr))
	assert.Equal(t, "total_paid", fieldErr.Field)

	_, err = RawCycleRow{LoanID: "LN-1", OpeningDPD: "1.5"}.ToRecord()
	assert.ErrorIs(t, err, ErrInvalidDPD)

	_, err = RawCycleRow{LoanID: "LN-1", CycleStartDate: "yesterday"}.ToRecord()
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestRawValueSpreadsheetSerialDate(t *testing.T) {
	d, err := RawValue("45292").Date()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *d)
}

func TestNewRowErrorReason(t *testing.T) {
	_, err := RawCycleRow{LoanID: "LN-9", OpeningPos: "x"}.ToRecord()
	rowErr := NewRowError(3, "LN-9", "opening_pos", err)
	assert.Equal(t, "invalid_amount", rowErr.Reason)
	assert.ErrorIs(t, rowErr, ErrInvalidAmount)
	assert.Contains(t, rowErr.Error(), "LN-9")

	assert.Equal(t, "store_failed", NewRowError(1, "LN-1", "", errors.New("boom")).Reason)
}

func TestRowErrorStatesReasonOnce(t *testing.T) {
	wrapped := fmt.Errorf("%w: %04d-%02d", ErrPriorCycleNotCalculated, 2024, 1)
	assert.Equal(t, "LN-1: prior_cycle_not_calculated: 2024-01", NewRowError(0, "LN-1", "", wrapped).Error())

	assert.Equal(t, "LN-2: lock_not_obtained", NewRowError(0, "LN-2", "", ErrLockNotObtained).Error())
	assert.Equal(t, "LN-3: store_failed: boom", NewRowError(0, "LN-3", "", errors.New("boom")).Error())
}
