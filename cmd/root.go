package main

import (
	"context"
	"fmt"

	s3 "qbank/aws"
	"qbank/database"
	"qbank/internal/config"
	"qbank/internal/logger"
	"qbank/internal/service"
	"qbank/internal/utility"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "qbank",
	Short:         "Question bank backend",
	Long:          "qbank serves and bulk-imports subjects, units and their MCQ, fill-in-the-blank and descriptive questions.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
}

// app holds what every subcommand needs once configuration is loaded.
type app struct {
	cfg *config.Config
	db  *database.DB
	qb  *service.QuestionBank
	log *zap.Logger
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.InitLogger(cfg.Log.Level, cfg.Log.File)

	db, err := database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Timeout)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureIndexes(ctx); err != nil {
		_ = db.Close(context.Background())
		return nil, err
	}

	assets, err := newAssetStore(cfg.Storage)
	if err != nil {
		_ = db.Close(context.Background())
		return nil, err
	}

	qb := service.New(db, assets, log, service.Options{
		Folder:          cfg.Storage.Folder,
		MaxImageBytes:   cfg.Storage.MaxImageBytes,
		UploadBatchSize: cfg.Import.UploadBatchSize,
	})
	return &app{cfg: cfg, db: db, qb: qb, log: log}, nil
}

func (a *app) close() {
	if err := a.db.Close(context.Background()); err != nil {
		a.log.Warn("mongo disconnect", zap.Error(err))
	}
	_ = a.log.Sync()
}

// newAssetStore picks the object storage backend. Without a bucket no store
// is configured and image operations report it.
func newAssetStore(cfg config.StorageConfig) (utility.AssetStore, error) {
	if cfg.Bucket == "" {
		logger.Log.Warn("storage bucket not configured, image uploads are disabled")
		return nil, nil
	}
	switch cfg.Type {
	case "minio":
		store, err := utility.NewMinioStore(utility.MinioConfig{
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Bucket:        cfg.Bucket,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio store: %w", err)
		}
		return store, nil
	default:
		store, err := s3.NewStore(s3.AWSConfig{
			AccessKeyID:     cfg.AccessKey,
			AccessKeySecret: cfg.SecretKey,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			Bucket:          cfg.Bucket,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 store: %w", err)
		}
		return store, nil
	}
}
