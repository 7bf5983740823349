package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"campusevents/internal/config"
	"campusevents/internal/crypto"
	"campusevents/internal/db"
	eventsgrpc "campusevents/internal/grpc"
	internalhttp "campusevents/internal/http"
	"campusevents/internal/logger"
	"campusevents/internal/mail"
	"campusevents/internal/operations"
	"campusevents/internal/qr"
	"campusevents/internal/repository"
)

func main() {
	cfg := config.Load()

	logg, err := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogOutput,
	}, logger.DefaultServiceName)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
			logg.Fatal("migrations failed", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logg.Fatal("db connection failed", zap.Error(err))
	}
	defer pool.Close()

	store := repository.NewStore(pool)

	sealer, err := crypto.NewSealer(cfg.QREncryptionKey)
	if err != nil {
		logg.Fatal("qr sealer init failed", zap.Error(err))
	}
	ops := operations.NewService(store, qr.NewIssuer(sealer, cfg.QRImageSize), logg)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logg.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	mailer := mail.New(cfg.BrevoAPIURL, cfg.BrevoAPIKey, mail.Address{Email: cfg.MailSenderEmail, Name: cfg.MailSenderName}, logg)
	if cfg.BrevoAPIKey == "" {
		logg.Info("confirmation email disabled: BREVO_API_KEY not set")
	}
	server := internalhttp.NewServer(cfg, store, ops, redisClient, mailer, logg)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logg.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Fatal("http server error", zap.Error(err))
		}
	}()

	var grpcServer *grpc.Server
	if cfg.ServiceAuthToken != "" {
		guard, err := eventsgrpc.NewQueryGuard(cfg.ServiceAuthToken, logg)
		if err != nil {
			logg.Fatal("grpc query guard init failed", zap.Error(err))
		}
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(guard))
		eventsgrpc.RegisterEventQueryServiceServer(grpcServer, eventsgrpc.NewEventQueryServer(ops, logg))

		go func() {
			listener, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				logg.Fatal("grpc listen error", zap.Error(err))
			}
			logg.Info("grpc listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcServer.Serve(listener); err != nil {
				logg.Fatal("grpc server error", zap.Error(err))
			}
		}()
	} else {
		logg.Info("grpc disabled: SERVICE_AUTH_TOKEN not set")
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logg.Warn("shutdown error", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
}
