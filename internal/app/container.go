// Package app assembles the ledger's storage, repositories and services from
// configuration. Both the HTTP gateway and ledgerctl build on it.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-merit-api/internal/repository"
	"github.com/noah-isme/sma-merit-api/internal/service"
	"github.com/noah-isme/sma-merit-api/pkg/cache"
	"github.com/noah-isme/sma-merit-api/pkg/config"
	"github.com/noah-isme/sma-merit-api/pkg/seed"
	"github.com/noah-isme/sma-merit-api/pkg/storage"
	"github.com/noah-isme/sma-merit-api/pkg/tablestore"
)

// Container holds the wired dependencies of one process.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *service.MetricsService
	Store   tablestore.Transport

	CatalogRepo *repository.CatalogRepository
	EventRepo   *repository.EventRepository
	PlanRepo    *repository.PlanRepository
	CacheRepo   *repository.CacheRepository

	Cache       *service.CacheService
	Catalog     *service.CatalogService
	Ledger      *service.LedgerService
	Plans       *service.PlanService
	Aggregation *service.AggregationService
	Auth        *service.AuthService
}

// Build opens the configured transport and wires every service on top of it.
// The returned cleanup releases the transport and the cache client.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := service.NewMetricsService()

	base, closeStore, err := tablestore.Open(ctx, cfg, repository.Schema())
	if err != nil {
		return nil, func() {}, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	store := tablestore.Instrument(tablestore.WithTimeout(base, cfg.Storage.Timeout), metrics)

	c := &Container{
		Config:      cfg,
		Logger:      logger,
		Metrics:     metrics,
		Store:       store,
		CatalogRepo: repository.NewCatalogRepository(store, cfg.Meals.AbsenceKeyword),
		EventRepo:   repository.NewEventRepository(store),
		PlanRepo:    repository.NewPlanRepository(store),
	}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, aggregation cache disabled", zap.Error(err))
		} else {
			c.CacheRepo = repository.NewCacheRepository(redisClient, logger)
		}
	}
	cleanup := func() {
		if redisClient != nil {
			_ = redisClient.Close()
		}
		closeStore()
	}

	var cacheRepo service.CacheRepository
	if c.CacheRepo != nil {
		cacheRepo = c.CacheRepo
	}
	c.Cache = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logger, c.CacheRepo != nil)

	loc := cfg.Location()
	validate := validator.New()

	policy, err := service.NewStatusPolicy(cfg.Plans, loc)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	artifacts, err := storage.NewLocalStorage(cfg.Artifacts.StorageDir, cfg.Artifacts.MaxFileSizeBytes, cfg.Artifacts.AllowedExts)
	if err != nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("prepare artifact storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Artifacts.SignedURLSecret, cfg.Artifacts.SignedURLTTL)

	c.Catalog = service.NewCatalogService(c.CatalogRepo, c.Cache, logger)
	c.Ledger = service.NewLedgerService(c.CatalogRepo, c.EventRepo, service.NewScoringResolver(c.CatalogRepo), c.Cache, metrics, validate, logger, loc)
	c.Plans = service.NewPlanService(c.PlanRepo, policy, artifacts, signer, c.Cache, metrics, validate, logger, service.PlanConfig{
		Weeks:        cfg.Plans.Weeks,
		DownloadPath: strings.TrimRight(cfg.APIPrefix, "/") + "/artifacts",
	})
	c.Aggregation = service.NewAggregationService(c.CatalogRepo, c.EventRepo, c.PlanRepo, c.Cache, logger, cfg.Meals.AbsenceKeyword, loc)
	c.Auth = service.NewAuthService(c.CatalogRepo, validate, logger, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	return c, cleanup, nil
}

// Provision loads the seed document at path (built-in catalog when empty)
// and writes it into empty catalog tables.
func (c *Container) Provision(ctx context.Context, path string) (int, error) {
	doc, err := seed.Load(path)
	if err != nil {
		return 0, err
	}
	return c.Catalog.Provision(ctx, doc)
}
