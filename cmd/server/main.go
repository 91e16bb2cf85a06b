package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gctu/certificate-registry/internal/api"
	"github.com/gctu/certificate-registry/internal/infrastructure/anchor"
	"github.com/gctu/certificate-registry/internal/infrastructure/config"
	mongorepo "github.com/gctu/certificate-registry/internal/infrastructure/db/mongo"
	redisdb "github.com/gctu/certificate-registry/internal/infrastructure/db/redis"
	"github.com/gctu/certificate-registry/internal/infrastructure/queue"
	"github.com/gctu/certificate-registry/internal/infrastructure/storage"
	"github.com/gctu/certificate-registry/pkg/logger"
)

// @title        Certificate Registry API
// @version      1.0
// @description  Academic certificate issuance and verification service.
// @BasePath     /
//
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.Init(logger.Options{})
		bootLog.Fatal().Err(err).Msg("configuration error")
	}

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
	})

	mongoClient, db, err := mongorepo.Connect(ctx, mongorepo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()

	if err := ensureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	store, err := storage.NewLocalStore(cfg.Storage.UploadsDir, cfg.Storage.StagingDir)
	if err != nil {
		log.Fatal().Err(err).Msg("artifact storage init failed")
	}

	dispatcher := queue.NewAuditDispatcher(cfg.AuditWorkers, mongorepo.NewAuditRepository(db), log)
	dispatcher.Start(ctx)

	e := api.NewRouter(api.RouterDeps{
		Mongo:          db,
		Redis:          rdb,
		Store:          store,
		Anchor:         anchor.New(cfg.Anchor.Mode),
		Audit:          dispatcher,
		JWTSecret:      cfg.JWTSecret,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		Logger:         log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// ensureIndexes creates the unique and query indexes every repository relies
// on. The unique certificate_hash index is the authoritative duplicate guard,
// so startup fails hard when index creation does.
func ensureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := mongorepo.NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := mongorepo.NewInstitutionRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := mongorepo.NewCertificateRepository(db).EnsureIndexes(ctx); err != nil {
		return err
	}
	return mongorepo.NewAuditRepository(db).EnsureIndexes(ctx)
}
