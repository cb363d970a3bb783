package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/partnerpayout/internal/config"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	"github.com/smallbiznis/partnerpayout/internal/observability"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePayoutService struct {
	ingested   []payoutdomain.IngestRequest
	calculated []payoutdomain.CalculateRequest
}

func (f *fakePayoutService) Ingest(_ context.Context, req payoutdomain.IngestRequest) (*payoutdomain.IngestResult, error) {
	if err := payoutdomain.ValidateCycle(req.Year, req.Month); err != nil {
		return nil, err
	}
	f.ingested = append(f.ingested, req)
	return &payoutdomain.IngestResult{Inserted: len(req.Rows)}, nil
}

func (f *fakePayoutService) Calculate(_ context.Context, req payoutdomain.CalculateRequest) (*payoutdomain.BatchSummary, error) {
	f.calculated = append(f.calculated, req)
	return &payoutdomain.BatchSummary{Year: req.Year, Month: req.Month}, nil
}

func (f *fakePayoutService) Reconcile(_ context.Context, year, month int) (*payoutdomain.Reconciliation, error) {
	return &payoutdomain.Reconciliation{
		Discrepancies: []payoutdomain.Discrepancy{{LoanID: "LN-1", Type: payoutdomain.DiscrepancyCurrentMonth}},
	}, nil
}

func (f *fakePayoutService) ListRecords(_ context.Context, year, month int, dealID *snowflake.ID) ([]payoutdomain.CycleRecord, error) {
	return []payoutdomain.CycleRecord{{LoanID: "LN-1", CycleYear: year, CycleMonth: month}}, nil
}

type fakeCycleStatusService struct{}

func (fakeCycleStatusService) Ensure(context.Context, cyclestatusdomain.FeedType, int, int) (*cyclestatusdomain.MonthlyCycleStatus, error) {
	return nil, nil
}

func (fakeCycleStatusService) Advance(context.Context, cyclestatusdomain.FeedType, int, int, cyclestatusdomain.Stage) (*cyclestatusdomain.MonthlyCycleStatus, error) {
	return nil, nil
}

func (fakeCycleStatusService) Get(_ context.Context, feed cyclestatusdomain.FeedType, year, month int) (*cyclestatusdomain.MonthlyCycleStatus, error) {
	if year != 2024 || month != 1 {
		return nil, cyclestatusdomain.ErrNotFound
	}
	return &cyclestatusdomain.MonthlyCycleStatus{FeedType: feed, Year: year, Month: month, Stage: cyclestatusdomain.StageUploaded}, nil
}

type fakeDealService struct{}

func (fakeDealService) Create(context.Context, dealdomain.CreateRequest) (*dealdomain.Deal, error) {
	return nil, nil
}

func (fakeDealService) Get(_ context.Context, ref string) (*dealdomain.Deal, error) {
	if ref == "D-1" || ref == "42" {
		return &dealdomain.Deal{ID: 42, Code: "D-1"}, nil
	}
	return nil, dealdomain.ErrNotFound
}

func (fakeDealService) AddRateChange(context.Context, dealdomain.RateChangeRequest) (*dealdomain.RateChange, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*gin.Engine, *fakePayoutService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	payout := &fakePayoutService{}
	engine := NewEngine(observability.Config{Environment: "test"}, nil)
	NewServer(ServerParams{
		Gin:            engine,
		Log:            zap.NewNop(),
		Policy:         config.NewStaticPayoutPolicyHolder(config.DefaultPayoutPolicy()),
		PayoutSvc:      payout,
		CycleStatusSvc: fakeCycleStatusService{},
		DealSvc:        fakeDealService{},
	})
	return engine, payout
}

func decodeError(t *testing.T, body []byte) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	engine, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngestLMSResolvesDealCode(t *testing.T) {
	engine, payout := newTestServer(t)
	body := `{"deal_id":"D-1","rows":[{"loan_id":"LN-1","opening_pos":1000.5,"closing_pos":"900"}]}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cycles/2024/1/lms", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, payout.ingested, 1)
	got := payout.ingested[0]
	assert.Equal(t, snowflake.ID(42), got.DealID)
	assert.Equal(t, 2024, got.Year)
	assert.Equal(t, 1, got.Month)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, payoutdomain.RawValue("1000.5"), got.Rows[0].OpeningPos)
}

func TestIngestLMSRejectsBadPeriod(t *testing.T) {
	engine, payout := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cycles/2024/13/lms", bytes.NewBufferString(`{"deal_id":"42","rows":[]}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec.Body.Bytes())
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "missing_batch_context", payload.Errors[0].Code)
	assert.Empty(t, payout.ingested)
}

func TestIngestLMSUnknownDeal(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cycles/2024/1/lms", bytes.NewBufferString(`{"deal_id":"nope","rows":[]}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadLMSDecodesCSVAndCalculates(t *testing.T) {
	engine, payout := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "feed.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("LAN,Opening POS\nLN-1,100\nLN-2,200\n"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("deal_id", "42"))
	require.NoError(t, w.WriteField("calculate", "true"))
	require.NoError(t, w.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cycles/2024/2/lms/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, payout.ingested, 1)
	assert.Len(t, payout.ingested[0].Rows, 2)
	require.Len(t, payout.calculated, 1)
	require.NotNil(t, payout.calculated[0].DealID)
	assert.Equal(t, snowflake.ID(42), *payout.calculated[0].DealID)
}

func TestUploadLMSRejectsFeedWithoutLoanColumn(t *testing.T) {
	engine, payout := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "feed.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("opening_pos\n100\n"))
	require.NoError(t, err)
	require.NoError(t, w.WriteField("deal_id", "42"))
	require.NoError(t, w.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cycles/2024/2/lms/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec.Body.Bytes())
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "missing_loan_id_column", payload.Errors[0].Code)
	assert.Empty(t, payout.ingested)
}

func TestCalculateWithoutBodyCoversAllDeals(t *testing.T) {
	engine, payout := newTestServer(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cycles/2024/1/calculate", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, payout.calculated, 1)
	assert.Nil(t, payout.calculated[0].DealID)
}

func TestReconcileReturnsDiscrepancies(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cycles/2024/1/reconcile", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data struct {
			Discrepancies []payoutdomain.Discrepancy `json:"discrepancies"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Discrepancies, 1)
	assert.Equal(t, "LN-1", resp.Data.Discrepancies[0].LoanID)
}

func TestListCycleRecordsRejectsBadDealFilter(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cycles/2024/1/records?deal_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cycles/2024/1/records", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetCycleStatus(t *testing.T) {
	engine, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cycle-status/lms/2024/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cycle-status/lms/2024/2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cycle-status/payroll/2024/1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec.Body.Bytes())
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_feed_type", payload.Errors[0].Code)
}
