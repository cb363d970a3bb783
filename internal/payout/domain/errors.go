package domain

import (
	"errors"
	"strings"
)

var (
	ErrMissingBatchContext     = errors.New("missing_batch_context")
	ErrInvalidDealID           = errors.New("invalid_deal_id")
	ErrMissingLoanID           = errors.New("missing_loan_id")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrInvalidDate             = errors.New("invalid_date")
	ErrInvalidDPD              = errors.New("invalid_dpd")
	ErrInvalidDealTerms        = errors.New("invalid_deal_terms")
	ErrPriorCycleNotCalculated = errors.New("prior_cycle_not_calculated")
	ErrLockNotObtained         = errors.New("lock_not_obtained")
	ErrStoreFailed             = errors.New("store_failed")
)

// RowError isolates a failure to one input row or one loan of a batch.
type RowError struct {
	Row    int    `json:"row"`
	LoanID string `json:"loan_id,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (e RowError) Error() string {
	msg := e.Reason
	if e.LoanID != "" {
		msg = e.LoanID + ": " + msg
	}
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if detail := e.detail(); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// detail is the wrapped error text without the reason it already starts with.
func (e RowError) detail() string {
	if e.Err == nil {
		return ""
	}
	text := e.Err.Error()
	if e.Reason == "" {
		return text
	}
	if text == e.Reason {
		return ""
	}
	return strings.TrimPrefix(text, e.Reason+": ")
}

func (e RowError) Unwrap() error { return e.Err }

// NewRowError derives the reported reason from a sentinel error.
func NewRowError(row int, loanID, field string, err error) RowError {
	reason := ErrStoreFailed.Error()
	for _, sentinel := range []error{
		ErrMissingLoanID,
		ErrInvalidAmount,
		ErrInvalidDate,
		ErrInvalidDPD,
		ErrInvalidDealTerms,
		ErrPriorCycleNotCalculated,
		ErrLockNotObtained,
	} {
		if errors.Is(err, sentinel) {
			reason = sentinel.Error()
			break
		}
	}
	return RowError{Row: row, LoanID: loanID, Field: field, Reason: reason, Err: err}
}
