package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig aggregates runtime configuration; everything comes from the environment.
type AppConfig struct {
	HTTPAddr string
	DBPath   string

	// Host is the public base URL used for scan links and player redirects.
	Host string
	// MediaBaseURL hosts small.mp4 / medium.mp4 / large.mp4.
	MediaBaseURL string
	QRSize       int

	ShopifyAPISecret   string
	ShopifyAPIVersion  string
	ShopifyShop        string
	ShopifyAccessToken string
	ShopifyScopes      string

	// Redis is optional; empty RedisAddr disables rate limiting and the scan outbox.
	RedisAddr string
	RedisDB   int

	ScanEventStream   string
	ScanEventGroup    string
	ScanEventConsumer string

	// Kafka is optional; empty KafkaBrokers records scans straight into SQLite.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	ScanRateLimit  int
	ScanRateWindow time.Duration

	LogLevel  string
	LogFormat string

	// Serverless is true when running inside AWS Lambda.
	Serverless bool
}

// Load reads .env if present, then the environment, and validates the result.
func Load() (AppConfig, error) {
	_ = godotenv.Load()

	serverless := os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
	defaultDB := "database.sqlite"
	if serverless {
		// only /tmp is writable in Lambda
		defaultDB = "/tmp/database.sqlite"
	}

	cfg := AppConfig{
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DBPath:             getEnv("DB_PATH", defaultDB),
		Host:               strings.TrimRight(getEnv("HOST", ""), "/"),
		MediaBaseURL:       strings.TrimRight(getEnv("MEDIA_BASE_URL", ""), "/"),
		QRSize:             256,
		ShopifyAPISecret:   getEnv("SHOPIFY_API_SECRET", ""),
		ShopifyAPIVersion:  getEnv("SHOPIFY_API_VERSION", "2024-10"),
		ShopifyShop:        getEnv("SHOPIFY_SHOP", ""),
		ShopifyAccessToken: getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		ShopifyScopes:      getEnv("SCOPES", "read_orders"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisDB:            0,
		ScanEventStream:    getEnv("SCAN_EVENT_STREAM", "order_video:scan_events"),
		ScanEventGroup:     getEnv("SCAN_EVENT_GROUP", "order-video-relay-group"),
		ScanEventConsumer:  getEnv("SCAN_EVENT_CONSUMER", "order-video-relay-1"),
		KafkaBrokers:       splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "order-video-scans"),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "order-video-scan-consumer"),
		ScanRateLimit:      60,
		ScanRateWindow:     time.Minute,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		Serverless:         serverless,
	}

	if err := requireURL("HOST", cfg.Host); err != nil {
		return AppConfig{}, err
	}
	if err := requireURL("MEDIA_BASE_URL", cfg.MediaBaseURL); err != nil {
		return AppConfig{}, err
	}

	qrSize, err := getEnvInt("QR_SIZE", cfg.QRSize)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid QR_SIZE: %w", err)
	}
	if qrSize < 64 || qrSize > 2048 {
		return AppConfig{}, fmt.Errorf("QR_SIZE must be between 64 and 2048")
	}
	cfg.QRSize = qrSize

	redisDB, err := getEnvInt("REDIS_DB", cfg.RedisDB)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	cfg.RedisDB = redisDB

	rateLimit, err := getEnvInt("SCAN_RATE_LIMIT", cfg.ScanRateLimit)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SCAN_RATE_LIMIT: %w", err)
	}
	if rateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("SCAN_RATE_LIMIT must be > 0")
	}
	cfg.ScanRateLimit = rateLimit

	rateWindowSec, err := getEnvInt("SCAN_RATE_WINDOW_SEC", int(cfg.ScanRateWindow.Seconds()))
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid SCAN_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("SCAN_RATE_WINDOW_SEC must be > 0")
	}
	cfg.ScanRateWindow = time.Duration(rateWindowSec) * time.Second

	if len(cfg.KafkaBrokers) > 0 {
		if cfg.KafkaTopic == "" {
			return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty")
		}
		if cfg.KafkaGroupID == "" {
			return AppConfig{}, fmt.Errorf("KAFKA_GROUP_ID must not be empty")
		}
	}
	if cfg.RedisAddr != "" && cfg.ScanEventStream == "" {
		return AppConfig{}, fmt.Errorf("SCAN_EVENT_STREAM must not be empty")
	}

	return cfg, nil
}

// RedisEnabled reports whether a Redis address is configured.
func (c AppConfig) RedisEnabled() bool { return c.RedisAddr != "" }

// KafkaEnabled reports whether Kafka brokers are configured.
func (c AppConfig) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

func requireURL(key, v string) error {
	if v == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	u, err := url.Parse(v)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", key, v)
	}
	return nil
}

// getEnv returns the trimmed variable or fallback when unset/blank.
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// splitCSV splits a comma separated list, dropping blanks.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
