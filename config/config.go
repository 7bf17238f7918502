package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

var (
	globalConfig *Config
	once         sync.Once
)

// Config 扁平化配置结构体
type Config struct {
	// 服务器配置
	ServerHost           string        `mapstructure:"server_host"`
	ServerPort           int           `mapstructure:"server_port"`
	ServerReadTimeout    time.Duration `mapstructure:"server_read_timeout"`
	ServerWriteTimeout   time.Duration `mapstructure:"server_write_timeout"`
	ServerIdleTimeout    time.Duration `mapstructure:"server_idle_timeout"`
	ServerCorsOrigins    []string      `mapstructure:"server_cors_origins"`
	ServerMaxConcurrency int64         `mapstructure:"server_max_concurrency"`

	// 元数据存储配置
	DBType            string `mapstructure:"db_type"`
	DBHost            string `mapstructure:"db_host"`
	DBPort            int    `mapstructure:"db_port"`
	DBUsername        string `mapstructure:"db_username"`
	DBPassword        string `mapstructure:"db_password"`
	DBName            string `mapstructure:"db_name"`
	DBFilePath        string `mapstructure:"db_file_path"`
	DBBadgerDir       string `mapstructure:"db_badger_dir"`
	DBMaxOpenConns    int    `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int    `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime int    `mapstructure:"db_conn_max_lifetime"`

	// 对象存储配置
	StorageType      string `mapstructure:"storage_type"`
	StorageLocalPath string `mapstructure:"storage_local_path"`

	StorageMinioEndpoint  string `mapstructure:"storage_minio_endpoint"`
	StorageMinioAccessKey string `mapstructure:"storage_minio_access_key"`
	StorageMinioSecretKey string `mapstructure:"storage_minio_secret_key"`
	StorageMinioBucket    string `mapstructure:"storage_minio_bucket"`
	StorageMinioUseSSL    bool   `mapstructure:"storage_minio_use_ssl"`
	StorageMinioRegion    string `mapstructure:"storage_minio_region"`

	StorageS3Bucket    string `mapstructure:"storage_s3_bucket"`
	StorageS3Region    string `mapstructure:"storage_s3_region"`
	StorageS3Endpoint  string `mapstructure:"storage_s3_endpoint"`
	StorageS3Prefix    string `mapstructure:"storage_s3_prefix"`
	StorageS3PathStyle bool   `mapstructure:"storage_s3_path_style"`
	StorageS3AccessKey string `mapstructure:"storage_s3_access_key"`
	StorageS3SecretKey string `mapstructure:"storage_s3_secret_key"`

	StorageWebDAVURL      string        `mapstructure:"storage_webdav_url"`
	StorageWebDAVUsername string        `mapstructure:"storage_webdav_username"`
	StorageWebDAVPassword string        `mapstructure:"storage_webdav_password"`
	StorageWebDAVRootPath string        `mapstructure:"storage_webdav_root_path"`
	StorageWebDAVTimeout  time.Duration `mapstructure:"storage_webdav_timeout"`

	// 对象缓存配置
	CacheType          string        `mapstructure:"cache_type"`
	CacheMaxSizeMB     int64         `mapstructure:"cache_max_size_mb"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	CacheRedisAddr     string        `mapstructure:"cache_redis_addr"`
	CacheRedisPassword string        `mapstructure:"cache_redis_password"`
	CacheRedisDB       int           `mapstructure:"cache_redis_db"`

	// 孤儿对象账本与对账
	LedgerType           string        `mapstructure:"ledger_type"`
	LedgerRedisPrefix    string        `mapstructure:"ledger_redis_prefix"`
	ReconcileEnabled     bool          `mapstructure:"reconcile_enabled"`
	ReconcileInterval    time.Duration `mapstructure:"reconcile_interval"`
	ReconcileBatchSize   int           `mapstructure:"reconcile_batch_size"`
	ReconcileConcurrency int           `mapstructure:"reconcile_concurrency"`

	// 上传配置
	UploadMaxSizeMB    int  `mapstructure:"upload_max_size_mb"`
	UploadStrictDecode bool `mapstructure:"upload_strict_decode"`

	// 限流配置
	RateLimitApiRPS     float64       `mapstructure:"rate_limit_api_rps"`
	RateLimitApiBurst   int           `mapstructure:"rate_limit_api_burst"`
	RateLimitImageRPS   float64       `mapstructure:"rate_limit_image_rps"`
	RateLimitImageBurst int           `mapstructure:"rate_limit_image_burst"`
	RateLimitExpireTime time.Duration `mapstructure:"rate_limit_expire_time"`

	// 调用方身份
	AuthJWTSecret  string `mapstructure:"auth_jwt_secret"`
	AuthUserHeader string `mapstructure:"auth_user_header"`
}

// InitConfig Initialize configuration
func InitConfig(path string) {
	once.Do(func() {
		cfg, err := Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
			os.Exit(1)
		}
		globalConfig = cfg
	})
}

// Get 返回全局配置，未初始化时使用默认值
func Get() *Config {
	if globalConfig == nil {
		InitConfig("")
	}
	return globalConfig
}

// Load 读取配置文件与环境变量
// path 为空时尝试读取当前目录下的 .env
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigFile(".env")
		v.SetConfigType("env")
	} else {
		v.SetConfigFile(path)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" || ext == "env" {
			v.SetConfigType("env")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		fmt.Fprintln(os.Stderr, "Info: .env file not found, using defaults and environment variables")
	}

	v.AutomaticEnv()
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("server_host", "127.0.0.1")
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_read_timeout", "15s")
	v.SetDefault("server_write_timeout", "30s")
	v.SetDefault("server_idle_timeout", "120s")
	v.SetDefault("server_cors_origins", "*")
	v.SetDefault("server_max_concurrency", 100)

	v.SetDefault("db_type", "sqlite")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_username", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "image-store")
	v.SetDefault("db_file_path", "./data/images.db")
	v.SetDefault("db_badger_dir", "./data/badger")
	v.SetDefault("db_max_open_conns", 100)
	v.SetDefault("db_max_idle_conns", 25)
	v.SetDefault("db_conn_max_lifetime", 3600)

	v.SetDefault("storage_type", "local")
	v.SetDefault("storage_local_path", "./data/objects")
	v.SetDefault("storage_minio_endpoint", "")
	v.SetDefault("storage_minio_access_key", "")
	v.SetDefault("storage_minio_secret_key", "")
	v.SetDefault("storage_minio_bucket", "images")
	v.SetDefault("storage_minio_use_ssl", false)
	v.SetDefault("storage_minio_region", "")
	v.SetDefault("storage_s3_bucket", "")
	v.SetDefault("storage_s3_region", "us-east-1")
	v.SetDefault("storage_s3_endpoint", "")
	v.SetDefault("storage_s3_prefix", "")
	v.SetDefault("storage_s3_path_style", false)
	v.SetDefault("storage_s3_access_key", "")
	v.SetDefault("storage_s3_secret_key", "")
	v.SetDefault("storage_webdav_url", "")
	v.SetDefault("storage_webdav_username", "")
	v.SetDefault("storage_webdav_password", "")
	v.SetDefault("storage_webdav_root_path", "")
	v.SetDefault("storage_webdav_timeout", "30s")

	v.SetDefault("cache_type", "none")
	v.SetDefault("cache_max_size_mb", 64)
	v.SetDefault("cache_ttl", "1h")
	v.SetDefault("cache_redis_addr", "localhost:6379")
	v.SetDefault("cache_redis_password", "")
	v.SetDefault("cache_redis_db", 0)

	v.SetDefault("ledger_type", "memory")
	v.SetDefault("ledger_redis_prefix", "image-store:ledger")
	v.SetDefault("reconcile_enabled", true)
	v.SetDefault("reconcile_interval", "10m")
	v.SetDefault("reconcile_batch_size", 100)
	v.SetDefault("reconcile_concurrency", 4)

	v.SetDefault("upload_max_size_mb", 50)
	v.SetDefault("upload_strict_decode", true)

	v.SetDefault("rate_limit_api_rps", 30.0)
	v.SetDefault("rate_limit_api_burst", 60)
	v.SetDefault("rate_limit_image_rps", 100.0)
	v.SetDefault("rate_limit_image_burst", 200)
	v.SetDefault("rate_limit_expire_time", "10m")

	v.SetDefault("auth_jwt_secret", "")
	v.SetDefault("auth_user_header", "X-User-Id")
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.DBType {
	case "sqlite", "sqlite3", "postgres", "postgresql", "badger":
	default:
		return fmt.Errorf("unsupported db_type: %q", c.DBType)
	}
	switch c.StorageType {
	case "local", "minio", "s3", "webdav", "memory":
	default:
		return fmt.Errorf("unsupported storage_type: %q", c.StorageType)
	}
	switch c.CacheType {
	case "none", "", "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache_type: %q", c.CacheType)
	}
	switch c.LedgerType {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported ledger_type: %q", c.LedgerType)
	}
	if c.UploadMaxSizeMB <= 0 {
		return fmt.Errorf("upload_max_size_mb must be positive, got %d", c.UploadMaxSizeMB)
	}
	if c.ReconcileBatchSize <= 0 || c.ReconcileConcurrency <= 0 {
		return fmt.Errorf("reconcile_batch_size and reconcile_concurrency must be positive")
	}
	if c.ReconcileEnabled && c.ReconcileInterval <= 0 {
		return fmt.Errorf("reconcile_interval must be positive when reconciliation is enabled")
	}
	return nil
}

// Addr 返回监听地址，格式为 "host:port"
func (c *Config) Addr() string {
	host := c.ServerHost
	if host == "" {
		host = "0.0.0.0"
	}
	port := c.ServerPort
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// UploadMaxBytes 单个上传的最大字节数
func (c *Config) UploadMaxBytes() int64 {
	return int64(c.UploadMaxSizeMB) << 20
}

// IsSQL 元数据是否存放在关系型数据库
func (c *Config) IsSQL() bool {
	return c.DBType != "badger"
}
