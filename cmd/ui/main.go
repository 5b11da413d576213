package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forex-journal/internal/backend"
	"forex-journal/internal/config"
	"forex-journal/internal/database"
	"forex-journal/internal/journal"
	"forex-journal/internal/logger"
	"forex-journal/internal/trace"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := trace.Init(cfg.Trace, version); err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	var (
		store journal.TradeStore
		auth  Authenticator
	)
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		db, err := database.NewDatabase(cfg.Database.DSN)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer func() {
			if err := database.Close(db); err != nil {
				log.Error("Failed to close database", zap.Error(err))
			}
		}()
		store = database.NewTradeStore(db)
		log.Info("Using local database", zap.String("dsn", cfg.Database.DSN), zap.String("owner", cfg.Store.LocalOwner))
	default:
		client := backend.NewClient(&cfg.Backend, log)
		store = client
		auth = client
		log.Info("Using hosted backend", zap.String("url", cfg.Backend.URL))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	apiHandler := NewAPIHandler(log, journal.NewService(store, log), auth, cfg.Store.LocalOwner)
	apiHandler.Register(router)

	// Static file serving for CSS, JS, etc.
	router.Static("/static", "web/static")
	router.NoRoute(func(c *gin.Context) {
		c.File("web/templates/index.html")
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("Starting web server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Web server failed", zap.Error(err))
		}
	}()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
	<-sigchan
	log.Info("Shutdown signal received, gracefully shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := trace.Shutdown(ctx); err != nil {
		log.Error("Trace shutdown failed", zap.Error(err))
	}
	log.Info("Server has been shut down.")
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
