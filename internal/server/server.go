package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/sitebill/internal/audit"
	auditdomain "github.com/smallbiznis/sitebill/internal/audit/domain"
	"github.com/smallbiznis/sitebill/internal/config"
	"github.com/smallbiznis/sitebill/internal/deduction"
	deductiondomain "github.com/smallbiznis/sitebill/internal/deduction/domain"
	"github.com/smallbiznis/sitebill/internal/ledger"
	ledgerdomain "github.com/smallbiznis/sitebill/internal/ledger/domain"
	"github.com/smallbiznis/sitebill/internal/masterdata"
	masterdomain "github.com/smallbiznis/sitebill/internal/masterdata/domain"
	"github.com/smallbiznis/sitebill/internal/observability"
	obsmiddleware "github.com/smallbiznis/sitebill/internal/observability/logger"
	obstracing "github.com/smallbiznis/sitebill/internal/observability/tracing"
	"github.com/smallbiznis/sitebill/internal/payment"
	paymentdomain "github.com/smallbiznis/sitebill/internal/payment/domain"
	"github.com/smallbiznis/sitebill/internal/providers"
	"github.com/smallbiznis/sitebill/internal/quantity"
	quantitydomain "github.com/smallbiznis/sitebill/internal/quantity/domain"
	"github.com/smallbiznis/sitebill/internal/report"
	reportdomain "github.com/smallbiznis/sitebill/internal/report/domain"
	"github.com/smallbiznis/sitebill/internal/statement"
	statementdomain "github.com/smallbiznis/sitebill/internal/statement/domain"
	"github.com/smallbiznis/sitebill/internal/tax"
	taxdomain "github.com/smallbiznis/sitebill/internal/tax/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	audit.Module,
	masterdata.Module,
	tax.Module,
	deduction.Module,
	quantity.Module,
	ledger.Module,
	payment.Module,
	statement.Module,
	providers.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	statementSvc  statementdomain.Service
	masterDataSvc masterdomain.Service
	taxSvc        taxdomain.Service
	deductionSvc  deductiondomain.Service
	quantitySvc   quantitydomain.Service
	ledgerSvc     ledgerdomain.Service
	paymentSvc    paymentdomain.Service
	reportSvc     reportdomain.Service
	auditSvc      auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	StatementSvc  statementdomain.Service
	MasterDataSvc masterdomain.Service
	TaxSvc        taxdomain.Service
	DeductionSvc  deductiondomain.Service
	QuantitySvc   quantitydomain.Service
	LedgerSvc     ledgerdomain.Service
	PaymentSvc    paymentdomain.Service
	ReportSvc     reportdomain.Service
	AuditSvc      auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		statementSvc:  p.StatementSvc,
		masterDataSvc: p.MasterDataSvc,
		taxSvc:        p.TaxSvc,
		deductionSvc:  p.DeductionSvc,
		quantitySvc:   p.QuantitySvc,
		ledgerSvc:     p.LedgerSvc,
		paymentSvc:    p.PaymentSvc,
		reportSvc:     p.ReportSvc,
		auditSvc:      p.AuditSvc,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Statements --------
	api.GET("/statements", s.ListStatements)
	api.POST("/statements", s.CreateStatement)
	api.GET("/statements/:id", s.GetStatement)
	api.PATCH("/statements/:id", s.UpdateStatement)
	api.DELETE("/statements/:id", s.DeleteStatement)
	api.GET("/statements/:id/preview", s.PreviewStatement)
	api.POST("/statements/:id/lines", s.AddStatementLine)
	api.PATCH("/statements/:id/lines/:lineId", s.UpdateStatementLine)
	api.DELETE("/statements/:id/lines/:lineId", s.RemoveStatementLine)
	api.POST("/statements/:id/confirm", s.ConfirmStatement)
	api.POST("/statements/:id/reset", s.ResetStatement)
	api.POST("/statements/:id/approve", s.ApproveStatement)
	api.POST("/statements/:id/pay", s.PayStatement)
	api.GET("/statements/:id/export.xlsx", s.ExportStatementWorkbook)
	api.GET("/statements/:id/export.pdf", s.ExportStatementPDF)

	// -------- Accounting --------
	api.GET("/ledger-entries/:id", s.GetLedgerEntry)
	api.GET("/payments/:id", s.GetPayment)

	// -------- Reports --------
	api.GET("/reports/analysis", s.StatementAnalysis)
	api.GET("/reports/analysis/export.xlsx", s.ExportStatementAnalysis)

	// -------- Deduction configs --------
	api.GET("/deduction-configs", s.ListDeductionConfigs)
	api.POST("/deduction-configs", s.CreateDeductionConfig)
	api.GET("/deduction-configs/:id", s.GetDeductionConfig)
	api.PUT("/deduction-configs/:id", s.UpdateDeductionConfig)
	api.POST("/deduction-configs/:id/default", s.SetDefaultDeductionConfig)
	api.POST("/deduction-configs/:id/deactivate", s.DeactivateDeductionConfig)

	// -------- Taxes --------
	api.GET("/taxes", s.ListTaxes)
	api.POST("/taxes", s.CreateTax)
	api.POST("/taxes/:id/disable", s.DisableTax)

	// -------- Quantities --------
	api.GET("/quantities", s.ListQuantityEntries)
	api.PUT("/quantities/contract", s.SetContractQuantity)
	api.POST("/quantities/reconcile", s.ReconcileQuantity)
	api.POST("/quantities/backfill", s.BackfillQuantity)

	// -------- Master data --------
	api.GET("/companies", s.ListCompanies)
	api.POST("/companies", s.CreateCompany)
	api.PUT("/companies/:id/defaults", s.SetCompanyDefaults)
	api.GET("/accounts", s.ListAccounts)
	api.POST("/accounts", s.CreateAccount)
	api.GET("/journals", s.ListJournals)
	api.POST("/journals", s.CreateJournal)
	api.GET("/projects", s.ListProjects)
	api.POST("/projects", s.CreateProject)
	api.GET("/work-types", s.ListWorkTypes)
	api.POST("/work-types", s.CreateWorkType)
	api.GET("/contractors", s.ListContractors)
	api.POST("/contractors", s.CreateContractor)
	api.GET("/products", s.ListProducts)
	api.POST("/products", s.CreateProduct)
	api.GET("/payment-methods", s.ListPaymentMethods)
	api.POST("/payment-methods", s.CreatePaymentMethod)

	// -------- Audit --------
	api.GET("/audit-logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
