package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type FeedType string

const (
	FeedLMS            FeedType = "LMS"
	FeedDealProcessing FeedType = "DEAL_PROCESSING"
	FeedOperations     FeedType = "OPERATIONS"
	FeedSSRSFinance    FeedType = "SSRS_FINANCE"
)

type Stage string

const (
	StageInitialized Stage = "INITIALIZED"
	StageUploaded    Stage = "UPLOADED"
	StageCreated     Stage = "CREATED"
	StageProcessed   Stage = "PROCESSED"
	StageGenerated   Stage = "GENERATED"
	StageAccepted    Stage = "ACCEPTED"
	StageCompleted   Stage = "COMPLETED"
)

// Each feed progresses through its own ordered stages.
var feedStages = map[FeedType][]Stage{
	FeedLMS:            {StageInitialized, StageUploaded, StageProcessed, StageCompleted},
	FeedDealProcessing: {StageInitialized, StageCreated, StageGenerated, StageAccepted, StageCompleted},
	FeedOperations:     {StageInitialized, StageUploaded, StageAccepted, StageCompleted},
	FeedSSRSFinance:    {StageInitialized, StageUploaded, StageGenerated, StageCompleted},
}

func ParseFeedType(s string) (FeedType, error) {
	feed := FeedType(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := feedStages[feed]; !ok {
		return "", ErrInvalidFeedType
	}
	return feed, nil
}

// Stages returns the ordered stages of a feed.
func (f FeedType) Stages() []Stage {
	return append([]Stage(nil), feedStages[f]...)
}

// StageIndex reports the position of stage within the feed, or -1.
func (f FeedType) StageIndex(stage Stage) int {
	for i, s := range feedStages[f] {
		if s == stage {
			return i
		}
	}
	return -1
}

// MonthlyCycleStatus identifies one upload batch per feed and period.
type MonthlyCycleStatus struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	FeedType     FeedType          `gorm:"column:feed_type;type:text;not null;uniqueIndex:ux_monthly_cycle_statuses_feed_period,priority:1" json:"feed_type"`
	Year         int               `gorm:"column:year;not null;uniqueIndex:ux_monthly_cycle_statuses_feed_period,priority:2" json:"year"`
	Month        int               `gorm:"column:month;not null;uniqueIndex:ux_monthly_cycle_statuses_feed_period,priority:3" json:"month"`
	Stage        Stage             `gorm:"column:stage;type:text;not null" json:"stage"`
	StageHistory datatypes.JSONMap `gorm:"column:stage_history" json:"stage_history"`
	CreatedAt    time.Time         `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (MonthlyCycleStatus) TableName() string { return "monthly_cycle_statuses" }
