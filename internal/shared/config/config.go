package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Encryption EncryptionConfig
	Aggregator AggregatorConfig
	Scheduler  SchedulerConfig
	TLS        TLSConfig
	Firebase   FirebaseConfig
	Telemetry  TelemetryConfig
	Internal   InternalConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
}

type EncryptionConfig struct {
	Key string
}

type AggregatorConfig struct {
	ClientID    string
	Secret      string
	Environment string
	// BaseURL overrides the host derived from Environment.
	BaseURL             string
	CountryCodes        []string
	ClientName          string
	Language            string
	WebhookURL          string
	RequestsPerSecond   float64
	Timeout             time.Duration
	VerifyWebhooks      bool
	MaxTransactionPages int
}

type SchedulerConfig struct {
	Enabled       bool
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	JobTimeout    time.Duration
	QueueSize     int
	RunOnStartup  bool
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type FirebaseConfig struct {
	CredentialsFile string
	MessagesFile    string
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
}

type InternalConfig struct {
	APIKey string
}

// LoadDotEnv loads variables from a .env file without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func Load() (*Config, error) {

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	dbMaxOpen, err := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}

	// Parse scheduler configuration
	schedulerEnabled := getBoolEnv("SCHEDULER_ENABLED", true)
	schedulerTimes := splitList(getEnv("SCHEDULER_TIMES", "05:00,10:00,14:00,20:00"))
	schedulerWorkers, err := strconv.Atoi(getEnv("SCHEDULER_WORKERS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_WORKERS: %w", err)
	}
	schedulerJobDelay, err := time.ParseDuration(getEnv("SCHEDULER_JOB_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_DELAY: %w", err)
	}
	schedulerJobTimeout, err := time.ParseDuration(getEnv("SCHEDULER_JOB_TIMEOUT", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_JOB_TIMEOUT: %w", err)
	}
	schedulerQueueSize, err := strconv.Atoi(getEnv("SCHEDULER_QUEUE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_QUEUE_SIZE: %w", err)
	}
	schedulerRunOnStartup := getBoolEnv("SCHEDULER_RUN_ON_STARTUP", false)

	// Parse aggregator configuration
	aggregatorRPS, err := strconv.ParseFloat(getEnv("AGGREGATOR_REQUESTS_PER_SECOND", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AGGREGATOR_REQUESTS_PER_SECOND: %w", err)
	}
	aggregatorTimeout, err := time.ParseDuration(getEnv("AGGREGATOR_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid AGGREGATOR_TIMEOUT: %w", err)
	}
	maxPages, err := strconv.Atoi(getEnv("AGGREGATOR_MAX_TRANSACTION_PAGES", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid AGGREGATOR_MAX_TRANSACTION_PAGES: %w", err)
	}

	// Webhook URL defaults to this service's own endpoint
	webhookURL := getEnv("AGGREGATOR_WEBHOOK_URL", "")
	if hostURL := getEnv("HOST_URL", ""); webhookURL == "" && hostURL != "" {
		webhookURL = strings.TrimRight(hostURL, "/") + "/api/webhooks/aggregator"
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: splitList(getEnv("ALLOWED_HOSTS", "")),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         dbPort,
			User:         getEnv("DB_USER", "ledgerly"),
			Password:     getEnv("DB_PASSWORD", ""),
			DBName:       getEnv("DB_NAME", "ledgerly"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: dbMaxOpen,
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Aggregator: AggregatorConfig{
			ClientID:            getEnv("AGGREGATOR_CLIENT_ID", ""),
			Secret:              getEnv("AGGREGATOR_SECRET", ""),
			Environment:         getEnv("AGGREGATOR_ENV", "sandbox"),
			BaseURL:             getEnv("AGGREGATOR_BASE_URL", ""),
			CountryCodes:        splitList(getEnv("AGGREGATOR_COUNTRY_CODES", "US")),
			ClientName:          getEnv("AGGREGATOR_CLIENT_NAME", "Ledgerly"),
			Language:            getEnv("AGGREGATOR_LANGUAGE", "en"),
			WebhookURL:          webhookURL,
			RequestsPerSecond:   aggregatorRPS,
			Timeout:             aggregatorTimeout,
			VerifyWebhooks:      getBoolEnv("AGGREGATOR_VERIFY_WEBHOOKS", true),
			MaxTransactionPages: maxPages,
		},
		Scheduler: SchedulerConfig{
			Enabled:       schedulerEnabled,
			ScheduleTimes: schedulerTimes,
			WorkerCount:   schedulerWorkers,
			JobDelay:      schedulerJobDelay,
			JobTimeout:    schedulerJobTimeout,
			QueueSize:     schedulerQueueSize,
			RunOnStartup:  schedulerRunOnStartup,
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			MessagesFile:    getEnv("NOTIFICATION_MESSAGES_FILE", "internal/shared/messages/notifications.json"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "ledgerly-banksync"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		},
		Internal: InternalConfig{
			APIKey: getEnv("INTERNAL_API_KEY", ""),
		},
	}

	// Validate required fields
	if cfg.Encryption.Key == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(cfg.Encryption.Key) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes")
	}
	if cfg.Aggregator.ClientID == "" || cfg.Aggregator.Secret == "" {
		return nil, fmt.Errorf("AGGREGATOR_CLIENT_ID and AGGREGATOR_SECRET are required")
	}
	if cfg.Internal.APIKey == "" {
		return nil, fmt.Errorf("INTERNAL_API_KEY is required")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// splitList splits a comma-separated value, dropping blanks
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
