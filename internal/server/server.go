package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/partnerpayout/internal/config"
	cyclestatusdomain "github.com/smallbiznis/partnerpayout/internal/cyclestatus/domain"
	dealdomain "github.com/smallbiznis/partnerpayout/internal/deal/domain"
	"github.com/smallbiznis/partnerpayout/internal/observability"
	obslogger "github.com/smallbiznis/partnerpayout/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/partnerpayout/internal/observability/metrics"
	obstracing "github.com/smallbiznis/partnerpayout/internal/observability/tracing"
	payoutdomain "github.com/smallbiznis/partnerpayout/internal/payout/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

type EngineParams struct {
	fx.In

	ObsCfg  observability.Config
	Metrics *obsmetrics.Metrics `optional:"true"`
}

func NewEngine(obsCfg observability.Config, m *obsmetrics.Metrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(HTTPMetrics(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(p EngineParams) *gin.Engine {
	return NewEngine(p.ObsCfg, p.Metrics)
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
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	engine         *gin.Engine
	log            *zap.Logger
	policy         *config.PayoutPolicyHolder
	payoutSvc      payoutdomain.Service
	cycleStatusSvc cyclestatusdomain.Service
	dealSvc        dealdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Log            *zap.Logger
	Policy         *config.PayoutPolicyHolder
	PayoutSvc      payoutdomain.Service
	CycleStatusSvc cyclestatusdomain.Service
	DealSvc        dealdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		log:            p.Log.Named("http.server"),
		policy:         p.Policy,
		payoutSvc:      p.PayoutSvc,
		cycleStatusSvc: p.CycleStatusSvc,
		dealSvc:        p.DealSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	// -------- Cycles --------
	cycles := api.Group("/cycles/:year/:month")
	cycles.POST("/lms", s.IngestLMS)
	cycles.POST("/lms/upload", s.UploadLMS)
	cycles.POST("/calculate", s.CalculateCycle)
	cycles.POST("/reconcile", s.ReconcileCycle)
	cycles.GET("/records", s.ListCycleRecords)

	// -------- Cycle status --------
	api.GET("/cycle-status/:feed/:year/:month", s.GetCycleStatus)
}
