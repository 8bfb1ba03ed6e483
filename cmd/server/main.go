package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/telecom-settlement-backend/config"
	"github.com/ikkim/telecom-settlement-backend/internal/app/controller"
	"github.com/ikkim/telecom-settlement-backend/internal/app/repository"
	"github.com/ikkim/telecom-settlement-backend/internal/app/service"
	"github.com/ikkim/telecom-settlement-backend/internal/db"
	"github.com/ikkim/telecom-settlement-backend/internal/middleware"
	"github.com/ikkim/telecom-settlement-backend/internal/router"
	"github.com/ikkim/telecom-settlement-backend/internal/scheduler"
	"github.com/ikkim/telecom-settlement-backend/internal/storage"
	ws "github.com/ikkim/telecom-settlement-backend/internal/websocket"
	"github.com/ikkim/telecom-settlement-backend/pkg/logger"
	redisclient "github.com/ikkim/telecom-settlement-backend/pkg/redis"
	"github.com/ikkim/telecom-settlement-backend/pkg/util"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	format := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		format = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      format,
		EnableColor: format == "console",
	})

	logger.Info("Starting Settlement Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis는 선택. 없으면 프로세스 내부 락으로 대체하고 토큰 차단은 하지 않는다
	var (
		locker    service.DealerLocker
		blacklist middleware.BlacklistChecker
		revoke    controller.TokenRevoker
	)
	if cfg.Redis.Enabled {
		if err := redisclient.Init(&cfg.Redis); err != nil {
			logger.Fatal("Failed to initialize Redis", err)
		}
		defer func() {
			if err := redisclient.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
		locker = redisclient.NewLocker(redisclient.GetClient(), "lock:dealer:", cfg.Redis.LockTTL)
		blacklist = redisclient.IsTokenBlacklisted
		revoke = redisclient.BlacklistToken
	} else {
		logger.Warn("Redis disabled: dealer policy locks are process-local")
		locker = service.NewLocalLocker()
	}

	var uploader service.ReportUploader
	if cfg.S3.Bucket != "" {
		uploader = storage.NewS3Storage(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
		)
	} else {
		logger.Warn("AWS_S3_BUCKET not set: report archiving disabled")
	}

	conn := db.GetDB()

	// Initialize repositories
	userRepo := repository.NewUserRepository(conn)
	storeRepo := repository.NewStoreRepository(conn)
	saleRepo := repository.NewSaleRepository(conn)
	goalRepo := repository.NewGoalRepository(conn)
	customerRepo := repository.NewCustomerRepository(conn)
	expenseRepo := repository.NewFixedExpenseRepository(conn)
	jobRepo := repository.NewRecalculationJobRepository(conn)

	hasher, err := util.NewPasswordHasher(cfg.Password.BcryptCost)
	if err != nil {
		logger.Fatal("Invalid BCRYPT_COST", err)
	}

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
		service.WithPasswordHasher(hasher),
	)
	scopeService := service.NewScopeService(userRepo, storeRepo)
	policyService := service.NewPolicyService(conn, locker)
	storeService := service.NewStoreService(conn, scopeService)
	customerService := service.NewCustomerService(customerRepo, scopeService)
	saleService := service.NewSaleService(saleRepo, storeRepo, customerRepo, scopeService, policyService)
	// 재계산 진행 상황 구독 허브
	hub := ws.NewHub(cfg.CORS.AllowedOrigins)
	recalcService := service.NewRecalculationService(
		saleRepo,
		jobRepo,
		scopeService,
		policyService,
		cfg.Recalculation.ChunkSize,
		cfg.Recalculation.Workers,
		service.WithJobProgress(hub),
	)
	goalService := service.NewGoalService(goalRepo, saleRepo, scopeService)
	expenseService := service.NewFixedExpenseService(expenseRepo, storeRepo, policyService, scopeService)
	reportService := service.NewReportService(saleService, uploader)

	// 재계산 작업은 요청과 분리된 컨텍스트에서 실행하고 종료 시 취소한다
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go hub.Run(jobCtx)
	var jobs sync.WaitGroup
	dispatch := func(id uuid.UUID) {
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			if _, err := recalcService.RunJob(jobCtx, id); err != nil {
				logger.Error("Recalculation job stopped", err, map[string]interface{}{
					"job_id": id.String(),
				})
			}
		}()
	}

	recalcScheduler := scheduler.NewRecalculationScheduler(recalcService, cfg.Recalculation.CronSpec)
	if err := recalcScheduler.Start(); err != nil {
		logger.Fatal("Failed to start recalculation scheduler", err)
	}

	// Initialize controllers
	authController := controller.NewAuthController(authService, revoke, cfg.JWT.AccessTokenExpiry)
	storeController := controller.NewStoreController(storeService, scopeService)
	customerController := controller.NewCustomerController(customerService)
	dealerController := controller.NewDealerController(policyService)
	saleController := controller.NewSaleController(saleService, recalcService)
	recalculationController := controller.NewRecalculationController(recalcService, dispatch, hub)
	goalController := controller.NewGoalController(goalService)
	fixedExpenseController := controller.NewFixedExpenseController(expenseService)
	reportController := controller.NewReportController(reportService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, blacklist)

	// Setup router
	r := router.NewRouter(
		authController,
		storeController,
		customerController,
		dealerController,
		saleController,
		recalculationController,
		goalController,
		fixedExpenseController,
		reportController,
		authMiddleware,
		scopeService,
		cfg,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           r.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	recalcScheduler.Stop()
	// 진행 중인 청크는 커서가 저장되지 않은 채 중단되고 다음 실행에서 이어진다
	cancelJobs()
	jobs.Wait()

	logger.Info("Server stopped successfully")
}
