package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
)

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalSnowflakeID(value string) (*snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed == 0 {
		return nil, errors.New("invalid_snowflake_id")
	}
	return &parsed, nil
}

// parsePeriod reads the :year and :month path params.
func parsePeriod(c *gin.Context) (int, int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(c.Param("year")))
	if err != nil {
		return 0, 0, payoutdomain.ErrMissingBatchContext
	}
	month, err := strconv.Atoi(strings.TrimSpace(c.Param("month")))
	if err != nil {
		return 0, 0, payoutdomain.ErrMissingBatchContext
	}
	if err := payoutdomain.ValidateCycle(year, month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}
