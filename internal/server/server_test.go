package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/credia/internal/clock"
	"github.com/smallbiznis/credia/internal/config"
	ledgerdomain "github.com/smallbiznis/credia/internal/ledger/domain"
	ledgerservice "github.com/smallbiznis/credia/internal/ledger/service"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	loanservice "github.com/smallbiznis/credia/internal/loan/service"
	reportdomain "github.com/smallbiznis/credia/internal/report/domain"
	reportservice "github.com/smallbiznis/credia/internal/report/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	srv  *Server
	db   *gorm.DB
	node *snowflake.Node

	fundingAccount snowflake.ID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&loandomain.Loan{},
		&loandomain.Payment{},
		&loandomain.Lead{},
		&loandomain.Route{},
		&ledgerdomain.Account{},
		&ledgerdomain.Transaction{},
		&reportdomain.ReportSnapshot{},
	))

	// sqlite cannot parse the FOR UPDATE clause the services take on writes.
	db.Callback().Query().Before("gorm:query").Register("sqlite_strip_row_locks", func(d *gorm.DB) {
		delete(d.Statement.Clauses, "FOR")
	})

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, time.March, 12, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	cfg := config.Config{Environment: "test", HTTPAddr: ":0"}

	loanSvc := loanservice.NewService(loanservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
	})
	ledgerSvc := ledgerservice.NewService(ledgerservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
	})
	reportSvc := reportservice.NewService(reportservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fake,
	})

	srv := NewServer(ServerParams{
		Gin:       NewEngine(cfg),
		LoanSvc:   loanSvc,
		LedgerSvc: ledgerSvc,
		ReportSvc: reportSvc,
	})

	account, err := ledgerSvc.CreateAccount(context.Background(), ledgerdomain.CreateAccountRequest{
		Name: "Bank", Type: ledgerdomain.AccountTypeBank,
	})
	require.NoError(t, err)

	return &testServer{srv: srv, db: db, node: node, fundingAccount: account.ID}
}

func (ts *testServer) seedLead(t *testing.T) loandomain.Lead {
	t.Helper()
	lead := loandomain.Lead{
		ID:       ts.node.Generate(),
		FullName: "Ana Torres",
		Locality: "San Pedro",
	}
	require.NoError(t, ts.db.Create(&lead).Error)
	return lead
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestOriginateLoanEndpoint(t *testing.T) {
	ts := newTestServer(t)
	lead := ts.seedLead(t)

	rec := ts.do(t, http.MethodPost, "/api/loans", gin.H{
		"lead_id":          lead.ID.String(),
		"requested_amount": "1000",
		"rate":             "0.40",
		"term_weeks":       10,
		"funding_account":  ts.fundingAccount.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data loandomain.Loan `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1400", resp.Data.TotalDebtAcquired.String())
	assert.Equal(t, loandomain.LoanStatusActive, resp.Data.Status)

	get := ts.do(t, http.MethodGet, "/api/loans/"+resp.Data.ID.String(), nil)
	assert.Equal(t, http.StatusOK, get.Code)
}

func TestOriginateLoanValidation(t *testing.T) {
	ts := newTestServer(t)
	lead := ts.seedLead(t)

	rec := ts.do(t, http.MethodPost, "/api/loans", gin.H{
		"lead_id":          lead.ID.String(),
		"requested_amount": "1000",
		"rate":             "0.40",
		"term_weeks":       0,
		"funding_account":  ts.fundingAccount.String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "invalid_term")
}

func TestGetLoanNotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/loans/"+ts.node.Generate().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordAndCancelPaymentEndpoints(t *testing.T) {
	ts := newTestServer(t)
	lead := ts.seedLead(t)

	origination := ts.do(t, http.MethodPost, "/api/loans", gin.H{
		"lead_id":          lead.ID.String(),
		"requested_amount": "1000",
		"rate":             "0.40",
		"term_weeks":       10,
		"funding_account":  ts.fundingAccount.String(),
	})
	require.Equal(t, http.StatusCreated, origination.Code)

	var created struct {
		Data loandomain.Loan `json:"data"`
	}
	require.NoError(t, json.Unmarshal(origination.Body.Bytes(), &created))

	payment := ts.do(t, http.MethodPost, "/api/payments", gin.H{
		"loan_id":            created.Data.ID.String(),
		"amount":             "140",
		"payment_method":     "CASH",
		"collection_account": ts.fundingAccount.String(),
	})
	require.Equal(t, http.StatusCreated, payment.Code, payment.Body.String())

	var recorded struct {
		Data loandomain.RecordPaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payment.Body.Bytes(), &recorded))
	assert.Equal(t, "40", recorded.Data.Allocation.ProfitRecognized.String())
	assert.Equal(t, "1260", recorded.Data.Loan.PendingAmount.String())

	cancel := ts.do(t, http.MethodDelete, "/api/payments/"+recorded.Data.Payment.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, cancel.Code)
}

func TestWeeklyReportEndpoint(t *testing.T) {
	ts := newTestServer(t)
	lead := ts.seedLead(t)

	rec := ts.do(t, http.MethodPost, "/api/loans", gin.H{
		"lead_id":          lead.ID.String(),
		"requested_amount": "1000",
		"rate":             "0.40",
		"term_weeks":       10,
		"sign_date":        "2025-01-06T00:00:00Z",
		"funding_account":  ts.fundingAccount.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	report := ts.do(t, http.MethodGet, "/api/reports/weekly?year=2025&week=5", nil)
	require.Equal(t, http.StatusOK, report.Code, report.Body.String())
	assert.Contains(t, report.Body.String(), "status_count")
}

func TestSnapshotRejectsOpenWeek(t *testing.T) {
	ts := newTestServer(t)

	// Clock is frozen mid-March 2025; week 11 is still open.
	rec := ts.do(t, http.MethodPost, "/api/reports/weekly/snapshot", gin.H{
		"year": 2025,
		"week": 11,
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
