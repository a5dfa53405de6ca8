package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/skinarb/internal/blob/s3"
	"github.com/alanyoungcy/skinarb/internal/cache/redis"
	"github.com/alanyoungcy/skinarb/internal/config"
	"github.com/alanyoungcy/skinarb/internal/domain"
	"github.com/alanyoungcy/skinarb/internal/export"
	"github.com/alanyoungcy/skinarb/internal/notify"
	"github.com/alanyoungcy/skinarb/internal/pace"
	"github.com/alanyoungcy/skinarb/internal/pipeline"
	"github.com/alanyoungcy/skinarb/internal/store/postgres"
)

// Dependencies bundles everything the modes need. Optional backends that are
// disabled in the configuration stay nil; the pipelines treat nil
// collaborators as absent.
type Dependencies struct {
	// Stores (nil unless Postgres is enabled)
	OpportunityStore domain.OpportunityStore
	DealStore        domain.DealStore

	// RateLimiter is Redis-backed when Redis is enabled, otherwise a local
	// in-process pacer. Never nil.
	RateLimiter domain.RateLimiter

	// FeedCache is nil unless Redis is enabled.
	FeedCache *redis.FeedCache

	// Snapshots is nil unless S3 is enabled.
	Snapshots domain.SnapshotStore

	// Exporter is nil unless export is enabled.
	Exporter *export.CSVExporter

	// Retention is nil unless retention is enabled; it needs Postgres and
	// archives to S3 when that is available.
	Retention *pipeline.Retention

	Notifier *notify.Notifier
}

// sourceSpacing maps each marketplace to its configured minimum delay.
func sourceSpacing(cfg *config.Config) map[domain.Source]time.Duration {
	return map[domain.Source]time.Duration{
		domain.SourceLisSkins: cfg.LisSkins.MinDelay.Duration,
		domain.SourceSkinport: cfg.Skinport.MinDelay.Duration,
	}
}

// Wire constructs the concrete dependency implementations from the
// configuration and returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// Concrete handles kept for retention wiring; the interfaces on deps
	// hide the archive and prune methods.
	var (
		oppStore   *postgres.OpportunityStore
		dealStore  *postgres.DealStore
		blobWriter *s3blob.Writer
	)

	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		oppStore = postgres.NewOpportunityStore(pool)
		dealStore = postgres.NewDealStore(pool)
		deps.OpportunityStore = oppStore
		deps.DealStore = dealStore
	}

	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient, sourceSpacing(cfg))
		deps.FeedCache = redis.NewFeedCache(redisClient, cfg.Deals.MaxFeedAge.Duration)
	} else {
		deps.RateLimiter = pace.New(sourceSpacing(cfg))
	}

	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		blobWriter = s3blob.NewWriter(s3Client)
		deps.Snapshots = s3blob.NewSnapshotStore(blobWriter)
	}

	if cfg.Export.Enabled {
		deps.Exporter = export.NewCSVExporter(cfg.Export.Dir)
	}

	if cfg.Retention.Enabled && oppStore != nil {
		retention := pipeline.NewRetention(
			cfg.Retention.MaxAge.Duration,
			cfg.Retention.Interval.Duration,
			logger,
		).WithOpportunityStore(oppStore).WithDealStore(dealStore)
		if blobWriter != nil {
			retention = retention.WithArchiver(s3blob.NewArchiver(blobWriter, oppStore, dealStore))
		}
		deps.Retention = retention
	}

	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.New(logger, cfg.Notify.Events, senders...)

	return deps, cleanup, nil
}
