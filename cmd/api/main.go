package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Mihirdhami7/hms-api/config"
	"github.com/Mihirdhami7/hms-api/internal/handler"
	appointmentHandler "github.com/Mihirdhami7/hms-api/internal/handler/appointment"
	notificationHandler "github.com/Mihirdhami7/hms-api/internal/handler/notification"
	prescriptionHandler "github.com/Mihirdhami7/hms-api/internal/handler/prescription"
	"github.com/Mihirdhami7/hms-api/internal/middleware"
	"github.com/Mihirdhami7/hms-api/internal/repository/postgres"
	"github.com/Mihirdhami7/hms-api/internal/router"
	appointmentService "github.com/Mihirdhami7/hms-api/internal/service/appointment"
	identityService "github.com/Mihirdhami7/hms-api/internal/service/identity"
	notificationService "github.com/Mihirdhami7/hms-api/internal/service/notification"
	prescriptionService "github.com/Mihirdhami7/hms-api/internal/service/prescription"
	"github.com/Mihirdhami7/hms-api/pkg/auth"
	"github.com/Mihirdhami7/hms-api/pkg/logger"
	"github.com/Mihirdhami7/hms-api/pkg/metrics"
	"github.com/Mihirdhami7/hms-api/pkg/validator"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	if err := validator.RegisterCustom(); err != nil {
		log.Fatal().Err(err).Msg("failed to register request validators")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("hms_api")

	appointmentRepo := postgres.NewAppointmentRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	userRepo := postgres.NewUserRepository(db)

	identitySvc := identityService.NewService(userRepo)
	notificationSvc := notificationService.NewService(notificationRepo, m)
	appointmentSvc := appointmentService.NewService(appointmentRepo, identitySvc, notificationSvc, m, appLogger)
	prescriptionSvc := prescriptionService.NewService(prescriptionRepo, appointmentRepo, notificationSvc, m, appLogger)

	authMiddleware := middleware.NewAuthMiddleware(auth.NewVerifier(cfg.JWT.Secret))

	r := router.NewRouter(
		authMiddleware,
		appointmentHandler.NewHandler(appointmentSvc),
		prescriptionHandler.NewHandler(prescriptionSvc),
		notificationHandler.NewHandler(notificationSvc),
		handler.NewHealthHandler(db),
		m,
		router.Config{
			RateLimit:  rate.Limit(cfg.Server.RateLimitRPS),
			RateBurst:  cfg.Server.RateLimitBurst,
			CORSConfig: middleware.DefaultCORSConfig(),
			Release:    true,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
