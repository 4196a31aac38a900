package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Krish-Depani/account-security/activity"
	"github.com/Krish-Depani/account-security/config"
	"github.com/Krish-Depani/account-security/controllers"
	"github.com/Krish-Depani/account-security/database"
	"github.com/Krish-Depani/account-security/logger"
	"github.com/Krish-Depani/account-security/mailer"
	"github.com/Krish-Depani/account-security/metrics"
	"github.com/Krish-Depani/account-security/middleware"
	"github.com/Krish-Depani/account-security/routes"
	"github.com/Krish-Depani/account-security/services"
	"github.com/Krish-Depani/account-security/store"
	"github.com/Krish-Depani/account-security/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		log.Fatal("Error loading config: ", err)
	}

	zlog := logger.New(env.LogLevel, env.AppEnv)
	defer func() { _ = zlog.Sync() }()

	pgClient, err := database.NewPostgresClient(env.DBHost, env.DBUser, env.DBPassword, env.DBName, env.DBPort)
	if err != nil {
		zlog.Fatal("Error connecting to database", zap.Error(err))
	}
	if err := database.Migrate(pgClient); err != nil {
		zlog.Fatal("Error migrating database", zap.Error(err))
	}

	redisClient, err := database.GetRedisClient(env.RedisAddr, env.RedisPass, env.RedisDB)
	if err != nil {
		zlog.Fatal("Error connecting to redis", zap.Error(err))
	}
	defer redisClient.Close()

	cipher, err := utils.NewEmailCipher(env.EncryptionKey, env.EmailIndexKey)
	if err != nil {
		zlog.Fatal("Error creating email cipher", zap.Error(err))
	}
	if env.EncryptionKey == "" {
		zlog.Warn("ENCRYPTION_KEY not set, emails are stored in plaintext")
	}

	m := metrics.New()

	activityRepo := activity.NewRepository(pgClient)
	var activityOpts []activity.Option
	if env.GeoLookupEnabled {
		activityOpts = append(activityOpts, activity.WithLocator(utils.GetIPLocation))
	}
	dispatcher := activity.NewDispatcher(activityRepo, env.ActivityBuffer, zlog.Named("activity"), m, activityOpts...)
	defer dispatcher.Close()

	var sender mailer.Sender
	if env.SMTPHost != "" {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     env.SMTPHost,
			Port:     env.SMTPPort,
			Username: env.SMTPUser,
			Password: env.SMTPPass,
			From:     env.SMTPFrom,
			Timeout:  env.MailTimeout,
		})
	} else {
		zlog.Warn("SMTP_HOST not set, verification emails are logged instead of sent")
		sender = mailer.NewLogSender(zlog.Named("mailer"))
	}

	deps := services.Deps{
		Store:    store.NewPostgresStore(pgClient, cipher),
		Tokens:   utils.NewTokenIssuer(env.JWTSecret, env.JWTIssuer, env.SessionTTL),
		Mailer:   mailer.NewVerification(sender, env.FrontendURL, env.VerificationTTL),
		Recorder: dispatcher,
		Denylist: redisClient,
		Metrics:  m,
		Logger:   zlog,
	}

	authService := services.NewAuthService(deps, services.Config{
		LockoutThreshold: env.LockoutThreshold,
		LockoutDuration:  env.LockoutDuration,
		PasswordMaxAge:   env.PasswordMaxAge,
		VerificationTTL:  env.VerificationTTL,
		MFAIssuer:        env.MFAIssuer,
	})
	userService := services.NewUserService(deps)

	if env.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.Middleware(zlog), middleware.CORS(env.CORSOrigins), middleware.Timeout(env.RequestTimeout))

	routes.SetupRoutes(r, routes.Deps{
		Auth:          controllers.NewAuthController(authService, env.SessionTTL, env.IsProduction()),
		User:          controllers.NewUserController(userService),
		Activity:      controllers.NewActivityController(activityRepo, userService),
		Authenticator: authService,
		Limiter:       redisClient,
		SigninLimit:   routes.Limit{Requests: env.SigninRateLimit, Window: env.SigninRateWindow},
		SignupLimit:   routes.Limit{Requests: env.SignupRateLimit, Window: env.SignupRateWindow},
		Logger:        zlog,
	})
	r.GET("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              ":" + env.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		zlog.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", env.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("server shutdown failed", zap.Error(err))
	}
}
