package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/config"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/database"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/handler"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/middleware"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/queue"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/repository"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/router"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/scheduler"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/service"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/telemetry"
)

const serviceName = "divecenter-api"

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using process environment")
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	// money travels as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()

	shutdownTelemetry := telemetry.Setup(serviceName)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		slog.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if cfg.DBMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			slog.Error("db migrate failed", "err", err)
			os.Exit(1)
		}
	}

	// nil when Redis is unreachable; cache and rate limit then pass through
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb != nil {
		defer rdb.Close()
	}

	var events *queue.Publisher
	if cfg.Events.Enabled {
		events = queue.NewPublisher(cfg.Events.URL, cfg.Events.Queue)
	}

	// Repositories
	txm := repository.NewTxManager(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	customers := repository.NewCustomerRepo(db)
	bookings := repository.NewBookingRepo(db)
	equipment := repository.NewEquipmentRepo(db)
	baskets := repository.NewBasketRepo(db)
	invoices := repository.NewInvoiceRepo(db)
	payments := repository.NewPaymentRepo(db)
	expenses := repository.NewExpenseRepo(db)
	settings := repository.NewSettingsRepo(db)

	// Services
	equipmentSvc := service.NewEquipmentService(txm, equipment, events)
	basketSvc := service.NewBasketService(txm, baskets, equipment, events)
	invoiceSvc := service.NewInvoiceService(txm, invoices, payments, settings, baskets, events)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(middleware.Slog())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders: []string{handler.HeaderReconciled, "X-Cache", "Retry-After"},
	}))
	e.Use(echomw.BodyLimit(bodyLimit(cfg.UploadMaxBytes)))

	router.RegisterRoutes(e, db, cfg.UploadDir, cfg.UploadBaseURL)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterResources(e, router.Handlers{
		Customers: handler.NewCustomerHandler(customers),
		Bookings:  handler.NewBookingHandler(bookings),
		Equipment: handler.NewEquipmentHandler(equipment, equipmentSvc, cfg.ServiceDueDays),
		Baskets:   handler.NewBasketHandler(basketSvc),
		Invoices:  handler.NewInvoiceHandler(invoiceSvc),
		Expenses:  handler.NewExpenseHandler(expenses, settings),
		Settings:  handler.NewSettingsHandler(settings),
		Uploads:   handler.NewUploadHandler(cfg.UploadDir, cfg.UploadBaseURL, cfg.UploadMaxBytes),
	}, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, middleware.DefaultDependents()),
	)

	jobs, err := scheduler.Start(cfg.ServiceDueCron, cfg.ServiceDueDays, equipmentSvc)
	if err != nil {
		slog.Error("scheduler start failed", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Events.Enabled && cfg.Events.ConsumeEnabled {
		go queue.NewConsumer(cfg.Events.URL, cfg.Events.Queue, cfg.Events.ActivityLogDir).Run(ctx)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(e, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		slog.Info("listening", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	<-jobs.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
}

// bodyLimit renders the upload cap plus multipart overhead in echo's size
// syntax.
func bodyLimit(uploadMax int64) string {
	const overhead = 1 << 20
	kb := (uploadMax + overhead) / 1024
	if kb < 1024 {
		kb = 1024
	}
	return strconv.FormatInt(kb, 10) + "K"
}
