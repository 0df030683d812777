package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"

	StateBackendMemory = "memory"
	StateBackendRedis  = "redis"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	StoreDriver string // postgres / bolt

	DatabaseURL      string // あれば POSTGRES_* より優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	BoltPath string // STORE_DRIVER=bolt のときのファイル

	StateBackend  string // memory / redis
	StateTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret string // cookie署名
	SessionCookie string

	MaxImageBytes int64  // 画像1枚の上限
	BodyLimit     string // echoのBodyLimit（10M など）

	LogMode string // development / production
	LogFile string // 空ならstdoutのみ
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod" || c.GoEnv == "production"
}

// Addr は PORT を ":8080" 形式にする。
func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := atoiOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	redisDB, err := atoiOr("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	maxImage, err := atoiOr("MAX_IMAGE_BYTES", 5<<20)
	if err != nil {
		return Config{}, err
	}
	stateTTL, err := durationOr("STATE_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		StoreDriver: getenv("STORE_DRIVER", StoreDriverPostgres),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "pantry"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		BoltPath: getenv("BOLT_PATH", "pantry.db"),

		StateBackend:  getenv("STATE_BACKEND", StateBackendMemory),
		StateTTL:      stateTTL,
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionCookie: getenv("SESSION_COOKIE", "pantry_session"),

		MaxImageBytes: int64(maxImage),
		BodyLimit:     getenv("BODY_LIMIT", "10M"),

		LogMode: getenv("LOG_MODE", "development"),
		LogFile: os.Getenv("LOG_FILE"),
	}

	//必須チェック
	switch cfg.StoreDriver {
	case StoreDriverPostgres, StoreDriverBolt:
	default:
		return Config{}, fmt.Errorf("STORE_DRIVER must be %s or %s", StoreDriverPostgres, StoreDriverBolt)
	}
	switch cfg.StateBackend {
	case StateBackendMemory, StateBackendRedis:
	default:
		return Config{}, fmt.Errorf("STATE_BACKEND must be %s or %s", StateBackendMemory, StateBackendRedis)
	}
	if cfg.MaxImageBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_IMAGE_BYTES must be > 0")
	}
	if cfg.StateTTL <= 0 {
		return Config{}, fmt.Errorf("STATE_TTL must be > 0")
	}
	if cfg.SessionSecret == "" {
		if cfg.IsProd() {
			return Config{}, fmt.Errorf("SESSION_SECRET is required")
		}
		cfg.SessionSecret = "dev_secret_change_me"
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}
