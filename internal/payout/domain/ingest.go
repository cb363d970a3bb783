package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RawValue holds a feed cell as text. JSON numbers, strings and null are
// all accepted so that a malformed amount fails its own row instead of
// the whole request body.
type RawValue string

func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
		return nil
	}
	*v = RawValue(data)
	return nil
}

func (v RawValue) text() string {
	s := strings.TrimSpace(string(v))
	return strings.ReplaceAll(s, ",", "")
}

func (v RawValue) IsBlank() bool {
	s := strings.ToLower(v.text())
	return s == "" || s == "-" || s == "null" || s == "na" || s == "n/a"
}

func (v RawValue) Decimal() (decimal.NullDecimal, error) {
	if v.IsBlank() {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v.text())
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, string(v))
	}
	return Known(d), nil
}

func (v RawValue) Int() (*int, error) {
	if v.IsBlank() {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.text())
	if err != nil || !d.Equal(d.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDPD, string(v))
	}
	n := int(d.IntPart())
	return &n, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

func (v RawValue) Date() (*time.Time, error) {
	if v.IsBlank() {
		return nil, nil
	}
	s := strings.TrimSpace(string(v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &day, nil
		}
	}
	// spreadsheet serial date
	if n, err := strconv.ParseFloat(s, 64); err == nil && n > 0 && n < 2958466 {
		day := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(n))
		return &day, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// RawCycleRow is one LMS feed row for one loan. Line is the row's line in
// the source file when it was decoded from one; row errors report it.
type RawCycleRow struct {
	Line                       int      `json:"line,omitempty"`
	LoanID                     string   `json:"loan_id"`
	OpeningPos                 RawValue `json:"opening_pos"`
	ClosingPos                 RawValue `json:"closing_pos"`
	TotalPrincipalDue          RawValue `json:"total_principal_due"`
	PrincipalOverdue           RawValue `json:"principal_overdue"`
	TotalPrincipalPaid         RawValue `json:"total_principal_paid"`
	PrincipalOverduePaid       RawValue `json:"principal_overdue_paid"`
	TotalInterestDue           RawValue `json:"total_interest_due"`
	InterestOverdue            RawValue `json:"interest_overdue"`
	TotalInterestComponentPaid RawValue `json:"total_interest_component_paid"`
	InterestOverduePaid        RawValue `json:"interest_overdue_paid"`
	ForeclosurePaid            RawValue `json:"foreclosure_paid"`
	ForeclosureChargesPaid     RawValue `json:"foreclosure_charges_paid"`
	PrepaymentPaid             RawValue `json:"prepayment_paid"`
	PrepaymentChargesPaid      RawValue `json:"prepayment_charges_paid"`
	TotalChargesPaid           RawValue `json:"total_charges_paid"`
	TotalPaid                  RawValue `json:"total_paid"`
	OpeningDPD                 RawValue `json:"opening_dpd"`
	ClosingDPD                 RawValue `json:"closing_dpd"`
	CycleStartDate             RawValue `json:"cycle_start_date"`
	CycleEndDate               RawValue `json:"cycle_end_date"`
}

// FieldError names the column that failed to parse.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

// ToRecord parses the row into the raw side of a CycleRecord.
func (row RawCycleRow) ToRecord() (CycleRecord, error) {
	loanID := strings.TrimSpace(row.LoanID)
	if loanID == "" {
		return CycleRecord{}, ErrMissingLoanID
	}
	rec := CycleRecord{LoanID: loanID}

	amounts := []struct {
		field string
		raw   RawValue
		dst   *decimal.NullDecimal
	}{
		{"opening_pos", row.OpeningPos, &rec.OpeningPos},
		{"closing_pos", row.ClosingPos, &rec.ClosingPos},
		{"total_principal_due", row.TotalPrincipalDue, &rec.TotalPrincipalDue},
		{"principal_overdue", row.PrincipalOverdue, &rec.PrincipalOverdue},
		{"total_principal_paid", row.TotalPrincipalPaid, &rec.TotalPrincipalPaid},
		{"principal_overdue_paid", row.PrincipalOverduePaid, &rec.PrincipalOverduePaid},
		{"total_interest_due", row.TotalInterestDue, &rec.TotalInterestDue},
		{"interest_overdue", row.InterestOverdue, &rec.InterestOverdue},
		{"total_interest_component_paid", row.TotalInterestComponentPaid, &rec.TotalInterestComponentPaid},
		{"interest_overdue_paid", row.InterestOverduePaid, &rec.InterestOverduePaid},
		{"foreclosure_paid", row.ForeclosurePaid, &rec.ForeclosurePaid},
		{"foreclosure_charges_paid", row.ForeclosureChargesPaid, &rec.ForeclosureChargesPaid},
		{"prepayment_paid", row.PrepaymentPaid, &rec.PrepaymentPaid},
		{"prepayment_charges_paid", row.PrepaymentChargesPaid, &rec.PrepaymentChargesPaid},
		{"total_charges_paid", row.TotalChargesPaid, &rec.TotalChargesPaid},
		{"total_paid", row.TotalPaid, &rec.TotalPaid},
	}
	for _, a := range amounts {
		v, err := a.raw.Decimal()
		if err != nil {
			return CycleRecord{}, &FieldError{Field: a.field, Err: err}
		}
		*a.dst = v
	}

	var err error
	if rec.OpeningDPD, err = row.OpeningDPD.Int(); err != nil {
		return CycleRecord{}, &FieldError{Field: "opening_dpd", Err: err}
	}
	if rec.ClosingDPD, err = row.ClosingDPD.Int(); err != nil {
		return CycleRecord{}, &FieldError{Field: "closing_dpd", Err: err}
	}
	if rec.CycleStartDate, err = row.CycleStartDate.Date(); err != nil {
		return CycleRecord{}, &FieldError{Field: "cycle_start_date", Err: err}
	}
	if rec.CycleEndDate, err = row.CycleEndDate.Date(); err != nil {
		return CycleRecord{}, &FieldError{Field: "cycle_end_date", Err: err}
	}
	return rec, nil
}

type IngestRequest struct {
	DealID snowflake.ID  `json:"deal_id"`
	Year   int           `json:"year"`
	Month  int           `json:"month"`
	Rows   []RawCycleRow `json:"rows"`
}

type IngestResult struct {
	CorrelationID    string        `json:"correlation_id"`
	CycleStatusID    snowflake.ID  `json:"cycle_status_id"`
	Records          []CycleRecord `json:"records"`
	Errors           []RowError    `json:"errors"`
	Inserted         int           `json:"inserted"`
	Updated          int           `json:"updated"`
	DuplicatesHealed int           `json:"duplicates_healed"`
}

type CalculateRequest struct {
	Year   int           `json:"year"`
	Month  int           `json:"month"`
	DealID *snowflake.ID `json:"deal_id,omitempty"`
}

// BatchSummary is returned even when some loans failed.
type BatchSummary struct {
	CorrelationID string        `json:"correlation_id"`
	Year          int           `json:"year"`
	Month         int           `json:"month"`
	Processed     int           `json:"processed"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	Errors        []RowError    `json:"errors"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	Notices       []Discrepancy `json:"notices"`
}
