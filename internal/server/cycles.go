package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	"github.com/smallbiznis/partnerpayout/internal/lmsfeed"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
)

type ingestLMSRequest struct {
	DealID payoutdomain.RawValue      `json:"deal_id"`
	Rows   []payoutdomain.RawCycleRow `json:"rows"`
}

type calculateRequest struct {
	DealID payoutdomain.RawValue `json:"deal_id"`
}

// resolveDeal accepts either a deal id or a deal code.
func (s *Server) resolveDeal(ctx context.Context, ref string) (snowflake.ID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return 0, payoutdomain.ErrInvalidDealID
	}
	deal, err := s.dealSvc.Get(ctx, ref)
	if err != nil {
		return 0, err
	}
	return deal.ID, nil
}

func (s *Server) IngestLMS(c *gin.Context) {
	year, month, err := parsePeriod(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req ingestLMSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dealID, err := s.resolveDeal(c.Request.Context(), string(req.DealID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.payoutSvc.Ingest(c.Request.Context(), payoutdomain.IngestRequest{
		DealID: dealID,
		Year:   year,
		Month:  month,
		Rows:   req.Rows,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UploadLMS(c *gin.Context) {
	year, month, err := parsePeriod(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		AbortWithError(c, newValidationError("file", "required", "file is required"))
		return
	}
	calculate, err := parseOptionalBool(c.PostForm("calculate"))
	if err != nil {
		AbortWithError(c, newValidationError("calculate", "invalid_calculate", "invalid calculate"))
		return
	}

	ctx := c.Request.Context()
	dealID, err := s.resolveDeal(ctx, c.PostForm("deal_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sheet := strings.TrimSpace(c.PostForm("sheet"))
	if sheet == "" {
		sheet = s.policy.Get().FeedSheet
	}

	f, err := fh.Open()
	if err != nil {
		AbortWithError(c, newValidationError("file", "unreadable", "file cannot be read"))
		return
	}
	defer f.Close()

	rows, err := lmsfeed.DecodeFile(f, fh.Filename, sheet)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ingested, err := s.payoutSvc.Ingest(ctx, payoutdomain.IngestRequest{
		DealID: dealID,
		Year:   year,
		Month:  month,
		Rows:   rows,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if calculate == nil || !*calculate {
		c.JSON(http.StatusOK, gin.H{"data": ingested})
		return
	}

	summary, err := s.payoutSvc.Calculate(ctx, payoutdomain.CalculateRequest{
		Year:   year,
		Month:  month,
		DealID: &dealID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"ingest":      ingested,
		"calculation": summary,
	}})
}

func (s *Server) CalculateCycle(c *gin.Context) {
	year, month, err := parsePeriod(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req calculateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	var dealID *snowflake.ID
	if !req.DealID.IsBlank() {
		id, err := s.resolveDeal(c.Request.Context(), string(req.DealID))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		dealID = &id
	}

	resp, err := s.payoutSvc.Calculate(c.Request.Context(), payoutdomain.CalculateRequest{
		Year:   year,
		Month:  month,
		DealID: dealID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ReconcileCycle(c *gin.Context) {
	year, month, err := parsePeriod(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.payoutSvc.Reconcile(c.Request.Context(), year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"discrepancies": resp.Discrepancies,
		"notices":       resp.Notices,
	}})
}

func (s *Server) ListCycleRecords(c *gin.Context) {
	year, month, err := parsePeriod(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dealID, err := parseOptionalSnowflakeID(c.Query("deal_id"))
	if err != nil {
		AbortWithError(c, newValidationError("deal_id", "invalid_deal_id", "invalid deal_id"))
		return
	}

	resp, err := s.payoutSvc.ListRecords(c.Request.Context(), year, month, dealID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCycleStatus(c *gin.Context) {
	feed, err := cyclestatusdomain.ParseFeedType(c.Param("feed"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	year, month, err := parsePeriod(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.cycleStatusSvc.Get(c.Request.Context(), feed, year, month)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
