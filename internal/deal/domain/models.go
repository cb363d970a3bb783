package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Deal is an assigned portfolio between the originator and a partner.
type Deal struct {
	ID                 snowflake.ID        `gorm:"primaryKey" json:"id"`
	Code               string              `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name               string              `gorm:"type:text;not null" json:"name"`
	PartnerName        string              `gorm:"column:partner_name;type:text;not null;default:''" json:"partner_name"`
	AssignRatio        decimal.NullDecimal `gorm:"column:assign_ratio;type:numeric(10,6)" json:"assign_ratio"`
	AnnualInterestRate decimal.NullDecimal `gorm:"column:annual_interest_rate;type:numeric(10,6)" json:"annual_interest_rate"`
	// CycleStartDay anchors the cycle window inside the month; nil means
	// calendar months.
	CycleStartDay *int      `gorm:"column:cycle_start_day" json:"cycle_start_day"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (Deal) TableName() string { return "deals" }

func (d *Deal) Validate() error {
	if d.Code == "" {
		return ErrInvalidCode
	}
	if d.Name == "" {
		return ErrInvalidName
	}
	if d.AssignRatio.Valid && !InUnitRange(d.AssignRatio.Decimal) {
		return ErrInvalidRatio
	}
	if d.AnnualInterestRate.Valid && !InUnitRange(d.AnnualInterestRate.Decimal) {
		return ErrInvalidRate
	}
	if d.CycleStartDay != nil && (*d.CycleStartDay < 1 || *d.CycleStartDay > 28) {
		return ErrInvalidStartDay
	}
	return nil
}

// RateChange overrides a deal's annual rate from EffectiveFrom onwards.
type RateChange struct {
	ID                 snowflake.ID    `gorm:"primaryKey" json:"id"`
	DealID             snowflake.ID    `gorm:"column:deal_id;not null;index" json:"deal_id"`
	AnnualInterestRate decimal.Decimal `gorm:"column:annual_interest_rate;type:numeric(10,6);not null" json:"annual_interest_rate"`
	EffectiveFrom      time.Time       `gorm:"column:effective_from;type:date;not null" json:"effective_from"`
	CreatedAt          time.Time       `gorm:"not null" json:"created_at"`
}

func (RateChange) TableName() string { return "deal_rate_changes" }

func InUnitRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(one)
}
