package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// CycleRecord is one loan's snapshot for one monthly cycle. Values are
// passed and returned by copy; each pipeline stage builds a new record.
type CycleRecord struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CycleStatusID snowflake.ID `gorm:"column:cycle_status_id;not null;index:idx_cycle_records_status_loan,priority:1" json:"cycle_status_id"`
	CycleYear     int          `gorm:"column:cycle_year;not null;index:idx_cycle_records_loan_period,priority:2" json:"cycle_year"`
	CycleMonth    int          `gorm:"column:cycle_month;not null;index:idx_cycle_records_loan_period,priority:3" json:"cycle_month"`
	DealID        snowflake.ID `gorm:"column:deal_id;not null" json:"deal_id"`
	LoanID        string       `gorm:"column:loan_id;type:text;not null;index:idx_cycle_records_status_loan,priority:2;index:idx_cycle_records_loan_period,priority:1" json:"loan_id"`

	OpeningPos                 decimal.NullDecimal `gorm:"column:opening_pos;type:numeric(20,4)" json:"opening_pos"`
	ClosingPos                 decimal.NullDecimal `gorm:"column:closing_pos;type:numeric(20,4)" json:"closing_pos"`
	TotalPrincipalDue          decimal.NullDecimal `gorm:"column:total_principal_due;type:numeric(20,4)" json:"total_principal_due"`
	PrincipalOverdue           decimal.NullDecimal `gorm:"column:principal_overdue;type:numeric(20,4)" json:"principal_overdue"`
	TotalPrincipalPaid         decimal.NullDecimal `gorm:"column:total_principal_paid;type:numeric(20,4)" json:"total_principal_paid"`
	PrincipalOverduePaid       decimal.NullDecimal `gorm:"column:principal_overdue_paid;type:numeric(20,4)" json:"principal_overdue_paid"`
	TotalInterestDue           decimal.NullDecimal `gorm:"column:total_interest_due;type:numeric(20,4)" json:"total_interest_due"`
	InterestOverdue            decimal.NullDecimal `gorm:"column:interest_overdue;type:numeric(20,4)" json:"interest_overdue"`
	TotalInterestComponentPaid decimal.NullDecimal `gorm:"column:total_interest_component_paid;type:numeric(20,4)" json:"total_interest_component_paid"`
	InterestOverduePaid        decimal.NullDecimal `gorm:"column:interest_overdue_paid;type:numeric(20,4)" json:"interest_overdue_paid"`
	ForeclosurePaid            decimal.NullDecimal `gorm:"column:foreclosure_paid;type:numeric(20,4)" json:"foreclosure_paid"`
	ForeclosureChargesPaid     decimal.NullDecimal `gorm:"column:foreclosure_charges_paid;type:numeric(20,4)" json:"foreclosure_charges_paid"`
	PrepaymentPaid             decimal.NullDecimal `gorm:"column:prepayment_paid;type:numeric(20,4)" json:"prepayment_paid"`
	PrepaymentChargesPaid      decimal.NullDecimal `gorm:"column:prepayment_charges_paid;type:numeric(20,4)" json:"prepayment_charges_paid"`
	TotalChargesPaid           decimal.NullDecimal `gorm:"column:total_charges_paid;type:numeric(20,4)" json:"total_charges_paid"`
	TotalPaid                  decimal.NullDecimal `gorm:"column:total_paid;type:numeric(20,4)" json:"total_paid"`
	OpeningDPD                 *int                `gorm:"column:opening_dpd" json:"opening_dpd"`
	ClosingDPD                 *int                `gorm:"column:closing_dpd" json:"closing_dpd"`
	CycleStartDate             *time.Time          `gorm:"column:cycle_start_date;type:date" json:"cycle_start_date"`
	CycleEndDate               *time.Time          `gorm:"column:cycle_end_date;type:date" json:"cycle_end_date"`
	LastCycleEndDate           *time.Time          `gorm:"column:last_cycle_end_date;type:date" json:"last_cycle_end_date"`

	SellerOpeningPos                 decimal.NullDecimal `gorm:"column:seller_opening_pos;type:numeric(20,4)" json:"seller_opening_pos"`
	SellerClosingPos                 decimal.NullDecimal `gorm:"column:seller_closing_pos;type:numeric(20,4)" json:"seller_closing_pos"`
	SellerTotalPrincipalDue          decimal.NullDecimal `gorm:"column:seller_total_principal_due;type:numeric(20,4)" json:"seller_total_principal_due"`
	SellerPrincipalOverdue           decimal.NullDecimal `gorm:"column:seller_principal_overdue;type:numeric(20,4)" json:"seller_principal_overdue"`
	SellerTotalPrincipalPaid         decimal.NullDecimal `gorm:"column:seller_total_principal_paid;type:numeric(20,4)" json:"seller_total_principal_paid"`
	SellerPrincipalOverduePaid       decimal.NullDecimal `gorm:"column:seller_principal_overdue_paid;type:numeric(20,4)" json:"seller_principal_overdue_paid"`
	SellerTotalInterestDue           decimal.NullDecimal `gorm:"column:seller_total_interest_due;type:numeric(20,4)" json:"seller_total_interest_due"`
	SellerInterestOverdue            decimal.NullDecimal `gorm:"column:seller_interest_overdue;type:numeric(20,4)" json:"seller_interest_overdue"`
	SellerTotalInterestComponentPaid decimal.NullDecimal `gorm:"column:seller_total_interest_component_paid;type:numeric(20,4)" json:"seller_total_interest_component_paid"`
	SellerInterestOverduePaid        decimal.NullDecimal `gorm:"column:seller_interest_overdue_paid;type:numeric(20,4)" json:"seller_interest_overdue_paid"`
	SellerForeclosurePaid            decimal.NullDecimal `gorm:"column:seller_foreclosure_paid;type:numeric(20,4)" json:"seller_foreclosure_paid"`
	SellerForeclosureChargesPaid     decimal.NullDecimal `gorm:"column:seller_foreclosure_charges_paid;type:numeric(20,4)" json:"seller_foreclosure_charges_paid"`
	SellerPrepaymentPaid             decimal.NullDecimal `gorm:"column:seller_prepayment_paid;type:numeric(20,4)" json:"seller_prepayment_paid"`
	SellerPrepaymentChargesPaid      decimal.NullDecimal `gorm:"column:seller_prepayment_charges_paid;type:numeric(20,4)" json:"seller_prepayment_charges_paid"`
	SellerTotalChargesPaid           decimal.NullDecimal `gorm:"column:seller_total_charges_paid;type:numeric(20,4)" json:"seller_total_charges_paid"`
	SellerTotalPaid                  decimal.NullDecimal `gorm:"column:seller_total_paid;type:numeric(20,4)" json:"seller_total_paid"`

	IsOpeningPosMismatch bool `gorm:"column:is_opening_pos_mismatch;not null;default:false" json:"is_opening_pos_mismatch"`
	// CalculatedAt is set once the cycle has been evaluated, soft skips included.
	CalculatedAt *time.Time `gorm:"column:calculated_at" json:"calculated_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	ModifiedAt   time.Time  `gorm:"column:modified_at;not null" json:"modified_at"`
}

func (CycleRecord) TableName() string { return "cycle_records" }

// WithRaw returns a copy of r carrying the raw feed values of src. Identity,
// creation time and the mismatch flag are kept; seller fields and
// CalculatedAt are cleared until the cycle is calculated again.
func (r CycleRecord) WithRaw(src CycleRecord) CycleRecord {
	out := r
	out.DealID = src.DealID
	out.OpeningPos = src.OpeningPos
	out.ClosingPos = src.ClosingPos
	out.TotalPrincipalDue = src.TotalPrincipalDue
	out.PrincipalOverdue = src.PrincipalOverdue
	out.TotalPrincipalPaid = src.TotalPrincipalPaid
	out.PrincipalOverduePaid = src.PrincipalOverduePaid
	out.TotalInterestDue = src.TotalInterestDue
	out.InterestOverdue = src.InterestOverdue
	out.TotalInterestComponentPaid = src.TotalInterestComponentPaid
	out.InterestOverduePaid = src.InterestOverduePaid
	out.ForeclosurePaid = src.ForeclosurePaid
	out.ForeclosureChargesPaid = src.ForeclosureChargesPaid
	out.PrepaymentPaid = src.PrepaymentPaid
	out.PrepaymentChargesPaid = src.PrepaymentChargesPaid
	out.TotalChargesPaid = src.TotalChargesPaid
	out.TotalPaid = src.TotalPaid
	out.OpeningDPD = src.OpeningDPD
	out.ClosingDPD = src.ClosingDPD
	out.CycleStartDate = src.CycleStartDate
	out.CycleEndDate = src.CycleEndDate
	out.LastCycleEndDate = src.LastCycleEndDate
	out.clearSeller()
	return out
}

func (r *CycleRecord) clearSeller() {
	r.SellerOpeningPos = decimal.NullDecimal{}
	r.SellerClosingPos = decimal.NullDecimal{}
	r.SellerTotalPrincipalDue = decimal.NullDecimal{}
	r.SellerPrincipalOverdue = decimal.NullDecimal{}
	r.SellerTotalPrincipalPaid = decimal.NullDecimal{}
	r.SellerPrincipalOverduePaid = decimal.NullDecimal{}
	r.SellerTotalInterestDue = decimal.NullDecimal{}
	r.SellerInterestOverdue = decimal.NullDecimal{}
	r.SellerTotalInterestComponentPaid = decimal.NullDecimal{}
	r.SellerInterestOverduePaid = decimal.NullDecimal{}
	r.SellerForeclosurePaid = decimal.NullDecimal{}
	r.SellerForeclosureChargesPaid = decimal.NullDecimal{}
	r.SellerPrepaymentPaid = decimal.NullDecimal{}
	r.SellerPrepaymentChargesPaid = decimal.NullDecimal{}
	r.SellerTotalChargesPaid = decimal.NullDecimal{}
	r.SellerTotalPaid = decimal.NullDecimal{}
	r.CalculatedAt = nil
}

// DealTerms are the per-deal constants applied uniformly to one cycle.
type DealTerms struct {
	DealID             snowflake.ID
	AssignRatio        decimal.Decimal
	AnnualInterestRate decimal.Decimal
	WindowStart        time.Time
	WindowEnd          time.Time
}

// BaselineLoan is the read model of a loan's onboarding facts.
type BaselineLoan struct {
	LoanID                         string
	CurrentOutstandingPrincipal    decimal.NullDecimal
	CurrentAssignedOverdueInterest decimal.NullDecimal
}

type DiscrepancyType string

const (
	DiscrepancyCurrentMonth  DiscrepancyType = "CURRENT_MONTH"
	DiscrepancyPreviousMonth DiscrepancyType = "PREVIOUS_MONTH"
	DiscrepancyNoBaseline    DiscrepancyType = "NO_BASELINE"
)

// Discrepancy is produced fresh per reconciliation run and never stored.
type Discrepancy struct {
	LoanID      string          `json:"loan_id"`
	Declared    decimal.Decimal `json:"declared"`
	Expected    decimal.Decimal `json:"expected"`
	Difference  decimal.Decimal `json:"difference"`
	Type        DiscrepancyType `json:"type"`
	Description string          `json:"description"`
}

// Reconciliation carries every input record with its mismatch flag set,
// the actual mismatches and the informational notices.
type Reconciliation struct {
	Records       []CycleRecord `json:"-"`
	Discrepancies []Discrepancy `json:"discrepancies"`
	Notices       []Discrepancy `json:"notices"`
}
