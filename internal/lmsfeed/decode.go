// Package lmsfeed turns an LMS export (xlsx workbook or csv) into raw cycle
// rows. Cell values are passed through untouched; parsing amounts and dates
// is left to ingestion so that a bad cell fails only its own row.
package lmsfeed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"github.com/xuri/excelize/v2"
)

type setter func(row *payoutdomain.RawCycleRow, v payoutdomain.RawValue)

func rawField(get func(*payoutdomain.RawCycleRow) *payoutdomain.RawValue) setter {
	return func(row *payoutdomain.RawCycleRow, v payoutdomain.RawValue) { *get(row) = v }
}

// columns maps a normalised header to the row field it fills.
var columns = map[string]setter{}

var (
	loanIDHeaders = []string{"loan_id", "lan", "loan account number", "loan account no", "loan no", "loan number"}
	loanIDKeys    = map[string]struct{}{}
)

func register(s setter, headers ...string) {
	for _, h := range headers {
		columns[normalize(h)] = s
	}
}

func init() {
	register(func(row *payoutdomain.RawCycleRow, v payoutdomain.RawValue) {
		row.LoanID = strings.TrimSpace(string(v))
	}, loanIDHeaders...)
	for _, h := range loanIDHeaders {
		loanIDKeys[normalize(h)] = struct{}{}
	}

	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.OpeningPos }),
		"opening_pos", "opening principal outstanding", "opening pos", "opening principal")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.ClosingPos }),
		"closing_pos", "closing principal outstanding", "closing pos", "closing principal")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.TotalPrincipalDue }),
		"total_principal_due", "principal due")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.PrincipalOverdue }),
		"principal_overdue")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.TotalPrincipalPaid }),
		"total_principal_paid", "principal paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.PrincipalOverduePaid }),
		"principal_overdue_paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.TotalInterestDue }),
		"total_interest_due", "interest due")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.InterestOverdue }),
		"interest_overdue")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.TotalInterestComponentPaid }),
		"total_interest_component_paid", "interest component paid", "interest paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.InterestOverduePaid }),
		"interest_overdue_paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.ForeclosurePaid }),
		"foreclosure_paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.ForeclosureChargesPaid }),
		"foreclosure_charges_paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.PrepaymentPaid }),
		"prepayment_paid", "part prepayment paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.PrepaymentChargesPaid }),
		"prepayment_charges_paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.TotalChargesPaid }),
		"total_charges_paid", "charges paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.TotalPaid }),
		"total_paid", "total amount paid")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.OpeningDPD }),
		"opening_dpd")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.ClosingDPD }),
		"closing_dpd", "dpd")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.CycleStartDate }),
		"cycle_start_date", "cycle start", "from date")
	register(rawField(func(r *payoutdomain.RawCycleRow) *payoutdomain.RawValue { return &r.CycleEndDate }),
		"cycle_end_date", "cycle end", "to date")
}

// normalize folds case and drops everything but letters and digits, so
// "Loan ID", "loan_id" and "LOANID" all match. A leading byte-order mark
// is dropped the same way.
func normalize(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Decode reads a feed by extension. For workbooks an empty sheet name
// selects the first sheet.
func Decode(r io.Reader, ext, sheet string) ([]payoutdomain.RawCycleRow, error) {
	var (
		grid []sourceRow
		err  error
	)
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "xlsx", "xlsm":
		grid, err = readWorkbook(r, sheet)
	case "csv":
		grid, err = readCSV(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	return rowsFromGrid(grid)
}

// DecodeFile is Decode with the extension taken from name.
func DecodeFile(r io.Reader, name, sheet string) ([]payoutdomain.RawCycleRow, error) {
	return Decode(r, filepath.Ext(name), sheet)
}

// sourceRow keeps the 1-based line a row came from so row errors point at
// the line the partner sees in the file.
type sourceRow struct {
	line  int
	cells []string
}

func readWorkbook(r io.Reader, sheet string) ([]sourceRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	// raw values keep dates as serial numbers and amounts unformatted
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	// GetRows pads gaps with empty rows, so the index is the sheet row
	out := make([]sourceRow, len(rows))
	for i, cells := range rows {
		out[i] = sourceRow{line: i + 1, cells: cells}
	}
	return out, nil
}

func readCSV(r io.Reader) ([]sourceRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []sourceRow
	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		out = append(out, sourceRow{line: line, cells: cells})
	}
}

func rowsFromGrid(grid []sourceRow) ([]payoutdomain.RawCycleRow, error) {
	headerAt := -1
	for i, src := range grid {
		if !blank(src.cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, ErrEmptyFeed
	}

	header := grid[headerAt].cells
	setters := make([]setter, len(header))
	hasLoanID := false
	for i, h := range header {
		key := normalize(h)
		if s, ok := columns[key]; ok {
			setters[i] = s
			if _, ok := loanIDKeys[key]; ok {
				hasLoanID = true
			}
		}
	}
	if !hasLoanID {
		return nil, ErrMissingLoanIDColumn
	}

	out := make([]payoutdomain.RawCycleRow, 0, len(grid)-headerAt-1)
	for _, src := range grid[headerAt+1:] {
		if blank(src.cells) {
			continue
		}
		row := payoutdomain.RawCycleRow{Line: src.line}
		for i, cell := range src.cells {
			if i < len(setters) && setters[i] != nil {
				setters[i](&row, payoutdomain.RawValue(strings.TrimSpace(cell)))
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
