package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/roomly/roomly-server/internal/api"
	"github.com/roomly/roomly-server/internal/assets"
	"github.com/roomly/roomly-server/internal/chat"
	"github.com/roomly/roomly-server/internal/config"
	"github.com/roomly/roomly-server/internal/database"
	"github.com/roomly/roomly-server/internal/server"
	"github.com/roomly/roomly-server/internal/stats"
)

const defaultSigningKey = "XDfqAZEiMIvdmKpczP8YEf8FZJ4uWtc8EXiODIwZfrk="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(envOr(key, strconv.FormatBool(def)))
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(envOr(key, def.String()))
	if err != nil {
		return def
	}
	return v
}

var (
	addr           string
	dsn            string
	signingKey     string
	tokenTTL       time.Duration
	allowedOrigins stringSliceFlag
	assetCfg       config.AssetConfig
)

func main() {
	logger := log.New(os.Stderr, "[roomly] ", log.LstdFlags)

	// a missing .env file is fine, the environment may be set directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Println("load .env:", err)
	}

	flag.StringVar(&addr, "addr", envOr("ROOMLY_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", envOr("JWT_SECRET", defaultSigningKey), "base64 encoded signing key")
	flag.DurationVar(&tokenTTL, "token-ttl", envDuration("JWT_TTL", 7*24*time.Hour), "lifetime of issued session tokens")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.StringVar(&assetCfg.Backend, "asset-backend", envOr("ASSET_BACKEND", config.AssetBackendDisk), "attachment storage backend (disk or s3)")
	flag.StringVar(&assetCfg.UploadDir, "upload-dir", envOr("UPLOAD_DIR", "uploads"), "directory for attachments with the disk backend")
	flag.StringVar(&assetCfg.BaseURL, "asset-base-url", envOr("ASSET_BASE_URL", "/uploads"), "URL prefix of attachments with the disk backend")
	flag.StringVar(&assetCfg.S3Endpoint, "s3-endpoint", envOr("S3_ENDPOINT", ""), "S3 endpoint")
	flag.StringVar(&assetCfg.S3AccessKey, "s3-access-key", envOr("S3_ACCESS_KEY", ""), "S3 access key")
	flag.StringVar(&assetCfg.S3SecretKey, "s3-secret-key", envOr("S3_SECRET_KEY", ""), "S3 secret key")
	flag.StringVar(&assetCfg.S3Bucket, "s3-bucket", envOr("S3_BUCKET", "roomly-attachments"), "S3 bucket")
	flag.BoolVar(&assetCfg.S3UseSSL, "s3-use-ssl", envBool("S3_USE_SSL", false), "use TLS for S3")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		if v := envOr("ALLOWED_ORIGINS", ""); v != "" {
			allowedOrigins.Set(v)
		}
	}

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}
	cfg.TokenTTL = tokenTTL
	cfg.Assets = assetCfg
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config:", err)
	}

	if err := database.Migrate(cfg.DatabaseDSN); err != nil {
		logger.Fatal("db migrate:", err)
	}

	dbConn, err := database.NewPgRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	store, err := newAssetStore(cfg.Assets)
	if err != nil {
		logger.Fatal("asset store:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatService := chat.NewService(logger, dbConn)

	chatServer, err := server.NewChatServer(logger, chatService, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}
	chatService.SetNotifier(chatServer)

	srv := api.NewRoomlyApp(mux, logger, chatServer, chatService, dbConn, store, cfg)

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Println("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Println("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}

func newAssetStore(cfg config.AssetConfig) (assets.Store, error) {
	if cfg.Backend != config.AssetBackendS3 {
		disk, err := assets.NewDiskStore(cfg.UploadDir, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return disk, nil
	}

	s3, err := assets.NewS3Store(assets.S3Config{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		Bucket:    cfg.S3Bucket,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3.EnsureBucket(ctx); err != nil {
		return nil, err
	}

	return s3, nil
}
