package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"molgenx/config"
	"molgenx/models"
	"molgenx/providers"
	"molgenx/providers/catalog"
	"molgenx/providers/optimizer"
	"molgenx/services"
	"molgenx/storage"
)

var sessionsCreatedCounter prometheus.Counter

func init() {
	sessionsCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "molgenx_sessions_created_total",
			Help: "Total number of sessions created.",
		},
	)
	prometheus.MustRegister(sessionsCreatedCounter)
}

// optimizerClient ist der Teil des Optimierungs-Fetchers, den die Routen brauchen.
type optimizerClient interface {
	RequestOptimization(ctx context.Context, proteinKey string, weights models.OptimizationWeights) (*services.OptimizationResult, error)
}

// exportFunc lädt die Momentaufnahme einer Session hoch; nil heißt Export deaktiviert.
type exportFunc func(ctx context.Context, view services.SessionView) (string, error)

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logging, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	// Setup Providers
	catalogFetcher := catalog.NewFetcher(cfg, logging)
	optimizerFetcher := optimizer.NewFetcher(cfg, logging)
	logging.Info("Providers loaded",
		zap.String("search", catalogFetcher.Name()),
		zap.String("optimizer", optimizerFetcher.BaseURL),
		zap.String("protein_key_mode", cfg.ProteinKeyMode))

	// Setup Sessions
	store := services.NewSessionStore(logging)
	sweeper, err := store.StartSweeper(cfg.SessionSweepSchedule, cfg.SessionIdleTTL)
	if err != nil {
		logging.Fatal("Session sweeper could not be scheduled", zap.Error(err))
	}
	defer sweeper.Stop()

	// Setup Export
	var exporter exportFunc
	if cfg.ExportEnabled() {
		s3Client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		exporter = func(ctx context.Context, view services.SessionView) (string, error) {
			return storage.ExportView(ctx, s3Client, cfg, view, time.Now())
		}
	} else {
		logging.Info("S3-Export nicht konfiguriert, /export ist deaktiviert.")
	}

	router := newRouter(cfg, logging, store, catalogFetcher, optimizerFetcher, exporter)

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// Optimierungen dürfen bis REQUEST_TIMEOUT laufen
		WriteTimeout: cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, log *zap.Logger, store *services.SessionStore, search providers.Provider, opt optimizerClient, exporter exportFunc) *gin.Engine {
	router := gin.Default()
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": store.Len()})
	})

	setupSessionRoutes(router, store, log)
	setupSearchRoutes(router, store, search, services.KeyMode(cfg.ProteinKeyMode), log)
	setupOptimizeRoutes(router, store, opt, services.KeyMode(cfg.ProteinKeyMode), log)
	setupViewRoutes(router, store)
	setupExportRoutes(router, store, exporter, log)
	return router
}

// statusFor bildet Fehlerklassen auf HTTP-Status ab.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrAlreadyLoading), errors.Is(err, services.ErrNoOptimized):
		return http.StatusConflict
	case errors.Is(err, services.ErrRequestFailed), errors.Is(err, services.ErrNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// lookupSession schreibt 404, wenn die Session nicht existiert.
func lookupSession(c *gin.Context, store *services.SessionStore) (*services.Session, bool) {
	s, ok := store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return s, true
}

func setupSessionRoutes(router *gin.Engine, store *services.SessionStore, log *zap.Logger) {
	rg := router.Group("/sessions")

	rg.POST("", func(c *gin.Context) {
		s := store.Create()
		sessionsCreatedCounter.Inc()
		log.Debug("Session created", zap.String("session", s.ID))
		c.JSON(http.StatusCreated, s.Snapshot(false))
	})

	// Meldungen werden beim Abruf geleert, außer mit ?drain=false
	rg.GET("/:id", func(c *gin.Context) {
		s, ok := lookupSession(c, store)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, s.Snapshot(c.DefaultQuery("drain", "true") != "false"))
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		if !store.Delete(c.Param("id")) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func setupSearchRoutes(router *gin.Engine, store *services.SessionStore, search providers.Provider, mode services.KeyMode, log *zap.Logger) {
	router.POST("/sessions/:id/search", func(c *gin.Context) {
		s, ok := lookupSession(c, store)
		if !ok {
			return
		}

		var req struct {
			Protein string `json:"protein"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		key, err := services.ValidateProteinKey(req.Protein, mode)
		if err != nil {
			s.RejectInput(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "session": s.Snapshot(false)})
			return
		}

		ticket, err := s.BeginExclusive(services.RequestSearch, key)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		compounds, err := search.Search(c.Request.Context(), key)
		if err != nil {
			log.Error("Search failed", zap.String("provider", search.Name()), zap.String("session", s.ID), zap.Error(err))
			s.Fail(ticket, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "session": s.Snapshot(false)})
			return
		}
		s.CompleteSearch(ticket, compounds)
		c.JSON(http.StatusOK, s.Snapshot(false))
	})
}

func setupOptimizeRoutes(router *gin.Engine, store *services.SessionStore, opt optimizerClient, mode services.KeyMode, log *zap.Logger) {
	router.POST("/sessions/:id/optimize", func(c *gin.Context) {
		s, ok := lookupSession(c, store)
		if !ok {
			return
		}

		var req struct {
			Protein string          `json:"protein"`
			Weights json.RawMessage `json:"weights"`
		}
		// leerer Body: gespeicherter Schlüssel und aktuelle Gewichte
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
				return
			}
		}

		raw := req.Protein
		if raw == "" {
			raw = s.ProteinKey()
		}
		key, err := services.ValidateProteinKey(raw, mode)
		if err != nil {
			s.RejectInput(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "session": s.Snapshot(false)})
			return
		}
		// Teil-Update: fehlende Gewichte bleiben erhalten. Erst nach BeginExclusive
		// übernehmen, ein abgewiesener Request ändert die Session nicht.
		w := s.Weights()
		if len(req.Weights) > 0 {
			if err := json.Unmarshal(req.Weights, &w); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid weights"})
				return
			}
			if err := w.Validate(); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": services.InvalidInputf("%v", err).Error()})
				return
			}
		}

		ticket, err := s.BeginExclusive(services.RequestOptimization, key)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		if len(req.Weights) > 0 {
			if err := s.SetWeights(w); err != nil {
				s.Fail(ticket, err)
				c.JSON(statusFor(err), gin.H{"error": err.Error()})
				return
			}
		}

		res, err := opt.RequestOptimization(c.Request.Context(), key, w)
		if err != nil {
			log.Error("Optimization failed", zap.String("session", s.ID), zap.Error(err))
			s.Fail(ticket, err)
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "session": s.Snapshot(false)})
			return
		}
		s.CompleteOptimization(ticket, res)
		c.JSON(http.StatusOK, s.Snapshot(false))
	})
}

func setupViewRoutes(router *gin.Engine, store *services.SessionStore) {
	rg := router.Group("/sessions/:id")

	// Nur gesendete Felder überschreiben
	rg.PUT("/filters", func(c *gin.Context) {
		s, ok := lookupSession(c, store)
		if !ok {
			return
		}
		f := s.Filters()
		if err := c.ShouldBindJSON(&f); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := s.SetFilters(f); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, s.Snapshot(false))
	})

	rg.PUT("/weights", func(c *gin.Context) {
		s, ok := lookupSession(c, store)
		if !ok {
			return
		}
		w := s.Weights()
		if err := c.ShouldBindJSON(&w); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := s.SetWeights(w); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"weights": s.Weights()})
	})

	rg.PUT("/weights/:name", func(c *gin.Context) {
		s, ok := lookupSession(c, store)
		if !ok {
			return
		}
		var req struct {
			Value *float64 `json:"value"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Value == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := s.SetWeight(c.Param("name"), *req.Value); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"weights": s.Weights()})
	})

	rg.PUT("/active", func(c *gin.Context) {
		s, ok := lookupSession(c, store)
		if !ok {
			return
		}
		var req struct {
			Active services.Selector `json:"active"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := s.SetActive(req.Active); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, s.Snapshot(false))
	})

	rg.POST("/panels/:panel/toggle", func(c *gin.Context) {
		s, ok := lookupSession(c, store)
		if !ok {
			return
		}
		panel := services.Panel(c.Param("panel"))
		open, err := s.TogglePanel(panel)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"panel": panel, "open": open})
	})
}

func setupExportRoutes(router *gin.Engine, store *services.SessionStore, exporter exportFunc, log *zap.Logger) {
	router.POST("/sessions/:id/export", func(c *gin.Context) {
		s, ok := lookupSession(c, store)
		if !ok {
			return
		}
		if exporter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export not configured"})
			return
		}
		link, err := exporter(c.Request.Context(), s.Snapshot(false))
		if err != nil {
			log.Error("Export failed", zap.String("session", s.ID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "export failed"})
			return
		}
		log.Info("Session exported", zap.String("session", s.ID), zap.String("url", link))
		c.JSON(http.StatusCreated, gin.H{"url": link})
	})
}
