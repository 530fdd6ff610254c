package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/gatewise/checkin/internal/domain"
	"github.com/gatewise/checkin/internal/handlers"
	"github.com/gatewise/checkin/internal/repository"
	"github.com/gatewise/checkin/internal/service"
	"github.com/gatewise/checkin/pkg/config"
	"github.com/gatewise/checkin/pkg/database"
	"github.com/gatewise/checkin/pkg/events"
	"github.com/gatewise/checkin/pkg/logger"
	"github.com/gatewise/checkin/pkg/mailer"
	mw "github.com/gatewise/checkin/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Failed to parse redis url", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Password != "" {
		redisOpts.Password = cfg.Redis.Password
	}
	redisOpts.DB = cfg.Redis.DB
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Repositories
	guestRepo := repository.NewGuestRepository(pool)
	hostRepo := repository.NewHostRepository(pool)
	locationRepo := repository.NewLocationRepository(pool)
	visitRepo := repository.NewVisitRepository(pool)
	acceptanceRepo := repository.NewAcceptanceRepository(pool)
	discountRepo := repository.NewDiscountRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	policyRepo := repository.NewCachedPolicyRepository(
		repository.NewPolicyRepository(pool), rdb, cfg.Checkin.PolicyCacheTTL)

	var termsMailer mailer.TermsMailer
	if cfg.Email.DevMode {
		termsMailer = mailer.NewDevMailer()
	} else {
		termsMailer = mailer.NewMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}

	// Services
	consentResolver := service.NewConsentResolver(acceptanceRepo, eventBus)
	overrideAuthorizer := service.NewOverrideAuthorizer(auditRepo, cfg.Checkin.OverridePasswordHash)
	discountEvaluator := service.NewDiscountEvaluator(visitRepo, discountRepo, eventBus)
	checkinService := service.NewCheckinService(
		guestRepo, hostRepo, locationRepo, visitRepo, policyRepo,
		consentResolver, overrideAuthorizer, discountEvaluator,
		eventBus, termsMailer, cfg,
	)

	h := handlers.New(checkinService, visitRepo, guestRepo, cfg)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("checkin"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(mw.CORS())

	r.Route("/v1", func(r chi.Router) {
		r.With(h.RequireRole(domain.RoleHost)).Post("/checkin", h.PostCheckin)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireRole(domain.RoleSecurity))
			r.Get("/visits/{id}", h.GetVisit)
			r.Get("/visits", h.ListGuestVisits)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down check-in service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Check-in service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting check-in service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Check-in service error", "error", err)
		os.Exit(1)
	}
}
