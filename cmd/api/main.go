package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"voyager-api/internal/config"
	"voyager-api/internal/db"
	"voyager-api/internal/email"
	apihttp "voyager-api/internal/http"
	"voyager-api/internal/llm"
	"voyager-api/internal/repository"
	"voyager-api/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	productRepo := repository.NewPgProductRepository(pool)

	emailSender := email.Sender(email.NewDisabledSender("email sender not configured"))
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPorts, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var (
		otpLimiter   service.OTPRateLimiter
		pendingStore service.PendingStore
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			otpWindow := time.Duration(cfg.OTPRateWindowMinutes) * time.Minute
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, otpWindow, cfg.OTPRateMax)
			pendingStore = service.NewRedisPendingStore(redisClient)
		}
		cancel()
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	authSvc := service.NewAuthService(logger, userRepo, emailSender, pendingStore, otpLimiter, cfg.FrontendURL)
	llmClient := llm.NewGeminiClient(cfg.LLMBaseURL, cfg.GeminiAPIKey, nil, logger)
	if cfg.GeminiAPIKey == "" {
		logger.Warn("gemini api key not configured, chat will be unavailable")
	}

	authHandler := apihttp.NewAuthHandler(logger, authSvc, jwtSvc)
	productHandler := apihttp.NewProductHandler(logger, productRepo)
	contactHandler := apihttp.NewContactHandler(logger, emailSender, cfg.ContactEmail)
	chatHandler := apihttp.NewChatHandler(logger, llmClient)
	router := apihttp.NewRouter(logger, jwtSvc, authHandler, productHandler, contactHandler, chatHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
