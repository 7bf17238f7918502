package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-redis/redis/v8"

	"github.com/anoixa/image-store/cache"
	"github.com/anoixa/image-store/cache/types"
	"github.com/anoixa/image-store/config"
	"github.com/anoixa/image-store/database"
	"github.com/anoixa/image-store/database/repo/images"
	"github.com/anoixa/image-store/internal/services/image"
	"github.com/anoixa/image-store/internal/services/reconcile"
	"github.com/anoixa/image-store/storage"
	"github.com/anoixa/image-store/utils"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config *config.Config

	objectCache  types.Cache
	store        storage.Provider
	gormProvider *database.GormProvider
	badgerDB     *badger.DB
	repo         images.RepositoryInterface
	ledgerClient *redis.Client
	ledger       reconcile.Ledger

	imageService *image.Service
	reconciler   *reconcile.Reconciler
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// Init 按依赖顺序初始化全部组件，失败时释放已创建的资源
func (c *Container) Init(ctx context.Context) (err error) {
	utils.LogIfDevf("Initializing DI container...")
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	if err = c.initMetadataStore(); err != nil {
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	if err = c.initObjectStore(ctx); err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}
	if err = c.initLedger(ctx); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	c.initServices()

	utils.LogIfDevf("DI container initialized successfully")
	return nil
}

// initMetadataStore 初始化元数据仓库
func (c *Container) initMetadataStore() error {
	if !c.config.IsSQL() {
		db, err := images.OpenBadger(c.config.DBBadgerDir)
		if err != nil {
			return err
		}
		c.badgerDB = db
		c.repo = images.NewBadgerRepository(db)
		log.Printf("[Database] Using badger metadata store at %s", c.config.DBBadgerDir)
		return nil
	}

	provider, err := database.NewGormProvider(c.config)
	if err != nil {
		return err
	}
	c.gormProvider = provider
	c.repo = images.NewRepository(provider)
	log.Printf("[Database] Using %s metadata store", provider.Name())
	return nil
}

// initObjectStore 初始化对象缓存与对象存储
func (c *Container) initObjectStore(ctx context.Context) error {
	objectCache, err := cache.New(ctx, c.config)
	if err != nil {
		return err
	}
	c.objectCache = objectCache

	store, err := storage.NewProvider(ctx, c.config, objectCache)
	if err != nil {
		return err
	}
	c.store = store
	return nil
}

// initLedger 初始化孤儿对象账本
func (c *Container) initLedger(ctx context.Context) error {
	if c.config.LedgerType != "redis" {
		c.ledger = reconcile.NewMemoryLedger(reconcile.DefaultMemoryLedgerSize)
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.config.CacheRedisAddr,
		Password: c.config.CacheRedisPassword,
		DB:       c.config.CacheRedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("failed to connect redis ledger at %s: %w", c.config.CacheRedisAddr, err)
	}

	c.ledgerClient = client
	c.ledger = reconcile.NewRedisLedger(client, c.config.LedgerRedisPrefix)
	log.Printf("[Ledger] Using redis ledger at %s", c.config.CacheRedisAddr)
	return nil
}

func (c *Container) initServices() {
	c.imageService = image.NewService(c.repo, c.store, c.ledger, image.Options{
		MaxUploadBytes: c.config.UploadMaxBytes(),
		StrictDecode:   c.config.UploadStrictDecode,
	})
	c.reconciler = reconcile.NewReconciler(c.ledger, c.repo, c.store, reconcile.Config{
		Interval:    c.config.ReconcileInterval,
		BatchSize:   c.config.ReconcileBatchSize,
		Concurrency: c.config.ReconcileConcurrency,
	})
}

// Migrate 执行数据库迁移，badger 无需迁移
func (c *Container) Migrate(ctx context.Context) error {
	if c.gormProvider == nil {
		return nil
	}
	sqlDB, err := c.gormProvider.SQLDB()
	if err != nil {
		return err
	}
	return database.Migrate(ctx, sqlDB, c.gormProvider.Name())
}

// MigrationVersion 当前迁移版本，badger 返回 0
func (c *Container) MigrationVersion() (int64, error) {
	if c.gormProvider == nil {
		return 0, nil
	}
	sqlDB, err := c.gormProvider.SQLDB()
	if err != nil {
		return 0, err
	}
	return database.MigrationVersion(sqlDB, c.gormProvider.Name())
}

// HealthChecks 各存储的健康检查
func (c *Container) HealthChecks() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"metadata": c.repo.Ping,
		"storage":  c.store.Health,
	}
}

// Health 检查两个存储的连通性
func (c *Container) Health(ctx context.Context) error {
	if err := c.repo.Ping(ctx); err != nil {
		return fmt.Errorf("metadata store: %w", err)
	}
	if err := c.store.Health(ctx); err != nil {
		return fmt.Errorf("object store %s: %w", c.store.Name(), err)
	}
	return nil
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// ImageService 图片协调服务
func (c *Container) ImageService() *image.Service {
	return c.imageService
}

// Reconciler 对账任务
func (c *Container) Reconciler() *reconcile.Reconciler {
	return c.reconciler
}

// Ledger 孤儿对象账本
func (c *Container) Ledger() reconcile.Ledger {
	return c.ledger
}

// Storage 对象存储
func (c *Container) Storage() storage.Provider {
	return c.store
}

// Close 关闭所有服务
func (c *Container) Close() error {
	utils.LogIfDevf("Closing DI container...")

	var errs []error
	if c.reconciler != nil {
		c.reconciler.Stop()
	}
	if c.ledgerClient != nil {
		errs = append(errs, c.ledgerClient.Close())
		c.ledgerClient = nil
	}
	if c.objectCache != nil {
		errs = append(errs, c.objectCache.Close())
		c.objectCache = nil
	}
	if c.gormProvider != nil {
		errs = append(errs, c.gormProvider.Close())
		c.gormProvider = nil
	}
	if c.badgerDB != nil {
		errs = append(errs, c.badgerDB.Close())
		c.badgerDB = nil
	}

	utils.LogIfDevf("DI container closed")
	return errors.Join(errs...)
}
