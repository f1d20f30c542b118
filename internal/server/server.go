package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/credia/internal/config"
	ledgerdomain "github.com/smallbiznis/credia/internal/ledger/domain"
	loandomain "github.com/smallbiznis/credia/internal/loan/domain"
	obsmiddleware "github.com/smallbiznis/credia/internal/observability/logger"
	obstracing "github.com/smallbiznis/credia/internal/observability/tracing"
	reportdomain "github.com/smallbiznis/credia/internal/report/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: cfg.Environment != "production",
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config) *gin.Engine {
	return NewEngine(cfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	loanSvc   loandomain.Service
	ledgerSvc ledgerdomain.Service
	reportSvc reportdomain.Service
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	LoanSvc   loandomain.Service
	LedgerSvc ledgerdomain.Service
	ReportSvc reportdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:    p.Gin,
		loanSvc:   p.LoanSvc,
		ledgerSvc: p.LedgerSvc,
		reportSvc: p.ReportSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Loans --------
	api.GET("/loans", s.ListLoans)
	api.POST("/loans", s.OriginateLoan)
	api.POST("/loans/batch", s.BatchOriginateLoans)
	api.GET("/loans/:id", s.GetLoanByID)
	api.POST("/loans/:id/renew", s.RenewLoan)
	api.POST("/loans/:id/mark-bad-debt", s.MarkLoanBadDebt)
	api.POST("/loans/:id/unmark-bad-debt", s.UnmarkLoanBadDebt)

	// -------- Payments --------
	api.POST("/payments", s.RecordPayment)
	api.DELETE("/payments/:id", s.CancelPayment)

	// -------- Accounts --------
	api.GET("/accounts", s.ListAccounts)
	api.POST("/accounts", s.CreateAccount)
	api.GET("/accounts/:id", s.GetAccountByID)
	api.POST("/accounts/:id/recalculate", s.RecalculateAccount)

	// -------- Transactions --------
	api.GET("/transactions", s.ListTransactions)
	api.POST("/transactions", s.CreateTransaction)
	api.DELETE("/transactions/:id", s.DeleteTransaction)

	// -------- Reports --------
	api.GET("/reports/weekly", s.GetWeeklyReport)
	api.GET("/reports/monthly", s.GetMonthlyReport)
	api.GET("/reports/breakdown", s.GetBreakdownReport)
	api.GET("/reports/write-off-candidates", s.GetWriteOffCandidates)
	api.POST("/reports/weekly/snapshot", s.SnapshotWeeklyReport)
}
