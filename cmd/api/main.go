package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/Seryozh/logiscan/internal/core/cache"
	"github.com/Seryozh/logiscan/internal/core/config"
	"github.com/Seryozh/logiscan/internal/core/logger"
	"github.com/Seryozh/logiscan/internal/core/server"
	detectionadapter "github.com/Seryozh/logiscan/internal/features/detection/adapters"
	visionports "github.com/Seryozh/logiscan/internal/features/detection/ports"
	"github.com/Seryozh/logiscan/internal/features/manifest/parser"
	sessionadapter "github.com/Seryozh/logiscan/internal/features/session/adapters"
	sessionhandler "github.com/Seryozh/logiscan/internal/features/session/handler"
	sessionservice "github.com/Seryozh/logiscan/internal/features/session/service"

	"go.uber.org/zap"
)

// @title Logiscan API
// @version 1.0
// @description Package arrival reconciliation: manifest import, sticker scanning and matching.
// @contact.name API Support
// @contact.email support@logiscan.dev
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// Initialize the session store and verify connectivity
	redisCache, err := cache.NewRedisAdapter(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Failed to create Redis adapter", zap.Error(err))
	}
	defer redisCache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisCache.Ping(ctx); err != nil {
		l.Fatal("Redis Health Check Failed", zap.Error(err))
	}
	l.Info("Redis connection verified")

	sessionTTL := time.Duration(cfg.Redis.SessionTTLHours) * time.Hour
	sessionRepo := sessionadapter.NewRedisSessionRepository(redisCache, sessionTTL)

	// Initialize the vision oracle
	var vision visionports.VisionProvider
	switch strings.ToLower(cfg.Vision.Provider) {
	case "tesseract":
		vision = detectionadapter.NewTesseractAdapter(cfg.Vision.TesseractLang)
	default:
		oracle, err := detectionadapter.NewHTTPOracleAdapter(cfg.Vision)
		if err != nil {
			l.Fatal("Failed to create vision oracle adapter", zap.Error(err))
		}
		if err := oracle.HealthCheck(); err != nil {
			l.Fatal("Vision Oracle Health Check Failed", zap.Error(err))
		}
		l.Info("Vision oracle connection verified")
		vision = oracle
	}

	// Initialize Session Service & Handler
	manifestParser := parser.New(parser.WithAllowedPrefixes(cfg.Scan.ApartmentPrefixes))
	sessionSvc := sessionservice.NewSessionService(sessionRepo, vision, manifestParser)
	sessionHdl := sessionhandler.NewSessionHandler(sessionSvc)

	srv := server.New(cfg)

	// Register Routes
	sessionHdl.RegisterRoutes(srv.App)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
