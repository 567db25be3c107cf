package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dress-rental/internal/auth"
	"dress-rental/internal/cache"
	"dress-rental/internal/config"
	"dress-rental/internal/database"
	"dress-rental/internal/db"
	"dress-rental/internal/events"
	"dress-rental/internal/handlers"
	"dress-rental/internal/health"
	h "dress-rental/internal/http"
	"dress-rental/internal/middleware"
	"dress-rental/internal/realtime"
	"dress-rental/internal/repositories"
	"dress-rental/internal/services"
	"dress-rental/internal/storage"
	"dress-rental/internal/timeutil"
)

func main() {
	port := flag.Int("port", 0, "Server port (overrides config)")
	migrateOnly := flag.Bool("migrate", false, "Run database migrations and exit")
	flag.Parse()

	cfg := config.Load()
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := timeutil.SetLocation(cfg.Timezone); err != nil {
		log.Printf("[Config] unknown timezone %q, keeping %s: %v", cfg.Timezone, timeutil.Shop, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := db.Connect(cfg)
	defer pool.Close()

	migrator := database.NewMigrator(pool, cfg.Server.MigrationsDir)
	if err := migrator.RunMigrations(ctx); err != nil {
		log.Fatalf("[Migrate] %v", err)
	}
	if *migrateOnly {
		return
	}

	// Redis is optional; a disabled store falls through to the database
	store, err := cache.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Printf("[Redis] cache disabled: %v", err)
	}
	defer store.Close()

	// Events fan out to the dashboard hub and, when brokers are set, Kafka
	hub := realtime.NewHub(cfg.Server.CorsAllowedOrigins)
	go hub.Run(ctx)
	defer hub.Close()

	publishers := events.Multi{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ClientID, 0)
		kafkaPub.Start()
		defer kafkaPub.Close()
		publishers = append(publishers, kafkaPub)
		log.Printf("[Kafka] publishing to %s on %v", cfg.Kafka.Topic, cfg.Kafka.Brokers)
	}

	// Report bundles are archived only when a bucket is configured
	var archive services.Archiver
	if cfg.Storage.Bucket != "" {
		s3Archive, err := storage.NewS3Archive(ctx, storage.Options{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			PathStyle: cfg.Storage.PathStyle,
		})
		if err != nil {
			log.Printf("[Storage] report archive disabled: %v", err)
		} else {
			archive = s3Archive
			log.Printf("[Storage] archiving report bundles to bucket %s", cfg.Storage.Bucket)
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpirationHours)

	// Repositories
	customerRepo := repositories.NewCustomerRepository(pool)
	dressRepo := repositories.NewDressRepository(pool)
	rentalRepo := repositories.NewRentalRepository(pool)
	paymentRepo := repositories.NewPaymentRepository(pool)
	onlineRepo := repositories.NewOnlineTransactionRepository(pool)
	userRepo := repositories.NewUserRepository(pool)
	activityRepo := repositories.NewActivityLogRepository(pool)
	settingRepo := repositories.NewSystemSettingRepository(pool)
	reportRepo := repositories.NewReportRepository(pool)

	// Services
	activityService := services.NewActivityLogService(activityRepo)
	settingService := services.NewSystemSettingService(settingRepo, cfg.RentalRules(), activityService)
	customerService := services.NewCustomerService(customerRepo, activityService)
	dressService := services.NewDressService(dressRepo, store, settingService, activityService)
	rentalService := services.NewRentalService(rentalRepo, settingService, activityService, publishers, store)
	paymentService := services.NewPaymentService(paymentRepo, rentalRepo, customerRepo, settingService, activityService, publishers)
	onlineService := services.NewOnlinePaymentService(
		services.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret),
		cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.Currency,
		onlineRepo, paymentService,
	)
	userService := services.NewUserService(userRepo, jwtManager, activityService)
	totpService := services.NewTOTPService(userRepo, activityService)
	reportService := services.NewReportService(reportRepo, dressService, settingService, store, archive)

	if onlineService.Enabled() {
		log.Println("[Razorpay] online payments enabled")
	}

	if err := userService.EnsureBootstrapAdmin(ctx, cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword); err != nil {
		log.Fatalf("[Bootstrap] %v", err)
	}

	// Health reports the cache only when one is connected
	var cachePinger health.Pinger
	if store.Enabled() {
		cachePinger = store
	}
	healthChecker := health.NewHealthChecker(pool, cachePinger)

	router := h.NewRouter(h.Handlers{
		Auth:      handlers.NewAuthHandler(userService, totpService),
		Users:     handlers.NewUserHandler(userService),
		Customers: handlers.NewCustomerHandler(customerService),
		Dresses:   handlers.NewDressHandler(dressService, rentalService),
		Rentals:   handlers.NewRentalHandler(rentalService),
		Payments:  handlers.NewPaymentHandler(paymentService, onlineService),
		Reports:   handlers.NewReportHandler(reportService),
		Settings:  handlers.NewSystemSettingHandler(settingService),
		Activity:  handlers.NewActivityLogHandler(activityService),
		Health:    handlers.NewHealthHandler(healthChecker),
		Realtime:  hub,
	}, middleware.NewAuthMiddleware(jwtManager, userRepo))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           middleware.NewCORS(cfg)(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute, // report bundles
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Printf("Server running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
