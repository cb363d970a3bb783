package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var ErrInvalidLoanID = errors.New("invalid_loan_id")

// Loan holds the onboarding facts of one assigned loan. The overdue seed is
// only read until the loan's first cycle record exists.
type Loan struct {
	ID                             snowflake.ID        `gorm:"primaryKey" json:"id"`
	LoanID                         string              `gorm:"column:loan_id;type:text;not null;uniqueIndex" json:"loan_id"`
	DealID                         *snowflake.ID       `gorm:"column:deal_id" json:"deal_id,omitempty"`
	CurrentOutstandingPrincipal    decimal.NullDecimal `gorm:"column:current_outstanding_principal;type:numeric(20,4)" json:"current_outstanding_principal"`
	CurrentAssignedOverdueInterest decimal.NullDecimal `gorm:"column:current_assigned_overdue_interest;type:numeric(20,4)" json:"current_assigned_overdue_interest"`
	LoanStatus                     string              `gorm:"column:loan_status;type:text;not null;default:''" json:"loan_status"`
	LoanType                       string              `gorm:"column:loan_type;type:text;not null;default:''" json:"loan_type"`
	CreatedAt                      time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt                      time.Time           `gorm:"not null" json:"updated_at"`
}

func (Loan) TableName() string { return "baseline_loans" }
