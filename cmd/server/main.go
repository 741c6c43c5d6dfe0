package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/farmhub/internal/config"
	"github.com/iliyamo/farmhub/internal/database"
	"github.com/iliyamo/farmhub/internal/handler"
	"github.com/iliyamo/farmhub/internal/jobs"
	"github.com/iliyamo/farmhub/internal/logger"
	"github.com/iliyamo/farmhub/internal/queue"
	"github.com/iliyamo/farmhub/internal/repository"
	"github.com/iliyamo/farmhub/internal/router"
	"github.com/iliyamo/farmhub/internal/service"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.IsProd(), cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn := database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if cfg.MigrateOnStart {
		if err := database.MigrateUp(dsn); err != nil {
			return err
		}
		log.Info("migrations applied")
	}
	db, err := database.Open(dsn, database.Pool{MaxOpen: cfg.DBMaxOpen, MaxIdle: cfg.DBMaxIdle})
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Warn("redis unavailable; rate limit, cache and job claims run without it")
	}

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	fields := repository.NewFieldRepo(db)
	activities := repository.NewActivityRepo(db)
	harvests := repository.NewHarvestRepo(db)
	materials := repository.NewMaterialRepo(db)
	supplyListings := repository.NewSupplyListingRepo(db)
	supplyOrders := repository.NewSupplyOrderRepo(db)
	productListings := repository.NewProductListingRepo(db)
	productOrders := repository.NewProductOrderRepo(db)
	notifications := repository.NewNotificationRepo(db)
	exchanges := repository.NewExchangeRepo(db)
	tx := database.SQLTx{DB: db}

	// Notification pipeline: services publish, the consumer persists.
	notifSvc := service.NewNotificationService(notifications)
	brokerCfg := config.LoadBrokerConfig()
	publisher := queue.NewPublisher(brokerCfg, log, notifSvc.Store)
	defer publisher.Close()
	if brokerCfg.Enabled {
		consumer := queue.NewConsumer(brokerCfg, log, notifSvc.Store)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("event consumer stopped", zap.Error(err))
			}
		}()
	}

	// Services
	authSvc := service.NewAuthService(users, tokens, service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	})
	farmingSvc := service.NewFarmingService(fields, activities, harvests, materials, tx, log)
	supplySvc := service.NewSupplyService(supplyListings, supplyOrders, materials, tx, publisher, log)
	marketSvc := service.NewMarketService(productListings, productOrders, harvests, tx, publisher, log)
	laborSvc := service.NewLaborService(service.LaborDeps{
		Profiles:    repository.NewWorkerProfileRepo(db),
		Household:   repository.NewHouseholdWorkerRepo(db),
		Requests:    repository.NewLaborRequestRepo(db),
		Assignments: repository.NewLaborAssignmentRepo(db),
		Exchanges:   exchanges,
		Fields:      fields,
		Tx:          tx,
		Notifier:    publisher,
		Log:         log,
	})
	exchangeSvc := service.NewExchangeService(exchanges, users, tx, publisher, log)

	// Scheduled jobs
	scheduler := jobs.NewScheduler(log)
	check := jobs.NewMaterialCheck(materials, jobs.NewClaimer(rdb), publisher, log)
	if err := scheduler.Add("material_check", cfg.MaterialCheckCron, 5*time.Minute, func(ctx context.Context) error {
		_, err := check.Run(ctx)
		return err
	}); err != nil {
		return err
	}
	cleanup := jobs.NewTokenCleanup(tokens, cfg.TokenRetention, log)
	if err := scheduler.Add("token_cleanup", cfg.TokenCleanupCron, time.Minute, func(ctx context.Context) error {
		_, err := cleanup.Run(ctx)
		return err
	}); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	e := router.New(router.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Farming:       handler.NewFarmingHandler(farmingSvc),
		Supply:        handler.NewSupplyHandler(supplySvc),
		Market:        handler.NewMarketHandler(marketSvc),
		Notifications: handler.NewNotificationHandler(notifSvc),
		Labor:         handler.NewLaborHandler(laborSvc, exchangeSvc),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		DB:        db,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       log,
	})

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
