package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/dnt-org/dnt-be/internal/core/port"
	"github.com/dnt-org/dnt-be/internal/infra/config"
	"github.com/dnt-org/dnt-be/internal/infra/database"
	kafkainfra "github.com/dnt-org/dnt-be/internal/infra/kafka"
	"github.com/dnt-org/dnt-be/internal/infra/logger"
	redisinfra "github.com/dnt-org/dnt-be/internal/infra/redis"
	"github.com/dnt-org/dnt-be/internal/infra/security"
	postgresrepo "github.com/dnt-org/dnt-be/internal/repository/postgres"
	redisrepo "github.com/dnt-org/dnt-be/internal/repository/redis"
	"github.com/dnt-org/dnt-be/internal/transport/http/middleware"
	"github.com/dnt-org/dnt-be/internal/transport/http/routes"
	"github.com/dnt-org/dnt-be/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	tokens, err := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.SessionTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	qrSessionTTL := cfg.Redis.QRSessionTTL
	if qrSessionTTL <= 0 {
		qrSessionTTL = 5 * time.Minute
	}
	qrSessions := redisrepo.NewQRSessionRepository(redisClient.Client(), redisrepo.QRSessionConfig{
		KeyPrefix:  cfg.Redis.QRSessionPrefix,
		DefaultTTL: qrSessionTTL,
	})

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})
	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	policy := usecase.EscalationPolicy{
		MaxLoginFailures:    cfg.Security.MaxLoginFailures,
		MaxRecoveryFailures: cfg.Security.MaxRecoveryFailures,
		TempBlockDuration:   cfg.Security.TempBlockDuration,
		ResetTokenTTL:       cfg.Security.ResetTokenTTL,
		FallbackOTPCode:     cfg.Security.FallbackOTPCode,
	}

	verifier := usecase.NewCredentialVerifier(log)
	audit := usecase.NewAuditRecorder(repos.Audit, log)

	loginService := usecase.NewLoginService(repos.Accounts, verifier, tokens, audit, eventPublisher, policy, log)
	recoveryService := usecase.NewRecoveryService(repos.Accounts, verifier, audit, eventPublisher, policy, log)
	registrationService := usecase.NewRegistrationService(repos.Accounts, eventPublisher, cfg.Security.AutoConfirmAccounts, log)
	profileService := usecase.NewProfileService(repos.Accounts)
	qrLoginService := usecase.NewQRLoginService(qrSessions, loginService, qrSessionTTL, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Tokens:      tokens,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Login:        loginService,
			Registration: registrationService,
			Recovery:     recoveryService,
			Profile:      profileService,
			QRLogin:      qrLoginService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting account security API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
