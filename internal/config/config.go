package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	RabbitMQ RabbitMQConfig
	ATS      ATSConfig
	Sync     SyncConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	LogLevel    string
	AppEnv      string `validate:"oneof=development staging production"`
	CORSOrigins string
	// ConnectRedirectURL is where the browser lands after the OAuth callback.
	ConnectRedirectURL string `validate:"url"`
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RabbitMQConfig struct {
	URL           string
	Host          string
	Port          string
	User          string
	Password      string
	VHost         string
	TaskQueue     string
	ResultQueue   string
	PrefetchCount int `validate:"gt=0"`
}

// ATSConfig holds the OAuth app and API endpoints for the connected
// applicant tracking system.
type ATSConfig struct {
	BaseURL      string `validate:"url"`
	AuthorizeURL string `validate:"url"`
	TokenURL     string `validate:"url"`
	ClientID     string
	ClientSecret string
	RedirectURI  string `validate:"url"`
	// WebhookCallbackURL is this service's public webhook endpoint,
	// registered with the ATS after a tenant connects.
	WebhookCallbackURL string `validate:"url"`
	WebhookSecret      string
	Scopes             string
}

type SyncConfig struct {
	Interval              time.Duration `validate:"gt=0"`
	PageSize              int           `validate:"gt=0"`
	MaxConcurrentTenants  int           `validate:"gt=0"`
	InitialSyncMaxRecords int           `validate:"gte=0"`
}

func Load() (*Config, error) {
	var missing []string

	get := func(key string) string {
		val := os.Getenv(key)
		if val == "" {
			missing = append(missing, key)
		}
		return val
	}
	getOr := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	config := &Config{
		Server: ServerConfig{
			Port:               get("SERVER_PORT"),
			Host:               getOr("SERVER_HOST", "0.0.0.0"),
			LogLevel:           getOr("LOG_LEVEL", "info"),
			AppEnv:             getOr("APP_ENV", "development"),
			CORSOrigins:        getOr("CORS_ORIGINS", "*"),
			ConnectRedirectURL: get("CONNECT_REDIRECT_URL"),
		},
		Database: DatabaseConfig{
			Host:     get("DB_HOST"),
			Port:     get("DB_PORT"),
			User:     get("DB_USER"),
			Password: get("DB_PASSWORD"),
			DBName:   get("DB_NAME"),
			SSLMode:  getOr("DB_SSLMODE", "disable"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:         os.Getenv("RABBITMQ_URL"),
			Host:        get("RABBITMQ_HOST"),
			Port:        get("RABBITMQ_PORT"),
			User:        get("RABBITMQ_USER"),
			Password:    get("RABBITMQ_PASSWORD"),
			VHost:       getOr("RABBITMQ_VHOST", "/"),
			TaskQueue:   getOr("ENRICHMENT_TASK_QUEUE", "enrichment.tasks"),
			ResultQueue: getOr("ENRICHMENT_RESULT_QUEUE", "enrichment.results"),
		},
		ATS: ATSConfig{
			BaseURL:            get("ATS_BASE_URL"),
			AuthorizeURL:       get("ATS_AUTHORIZE_URL"),
			TokenURL:           get("ATS_TOKEN_URL"),
			ClientID:           get("ATS_CLIENT_ID"),
			ClientSecret:       get("ATS_CLIENT_SECRET"),
			RedirectURI:        get("ATS_REDIRECT_URI"),
			WebhookCallbackURL: get("ATS_WEBHOOK_CALLBACK_URL"),
			WebhookSecret:      os.Getenv("ATS_WEBHOOK_SECRET"),
			Scopes:             getOr("ATS_SCOPES", "read:jobs read:candidates webhooks"),
		},
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %v", missing)
	}

	prefetch, err := strconv.Atoi(getOr("RABBITMQ_PREFETCH_COUNT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RABBITMQ_PREFETCH_COUNT: %w", err)
	}
	config.RabbitMQ.PrefetchCount = prefetch

	interval, err := time.ParseDuration(getOr("SYNC_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_INTERVAL: %w", err)
	}
	pageSize, err := strconv.Atoi(getOr("SYNC_PAGE_SIZE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_PAGE_SIZE: %w", err)
	}
	maxTenants, err := strconv.Atoi(getOr("SYNC_MAX_CONCURRENT_TENANTS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_MAX_CONCURRENT_TENANTS: %w", err)
	}
	maxInitial, err := strconv.Atoi(getOr("INITIAL_SYNC_MAX_RECORDS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_SYNC_MAX_RECORDS: %w", err)
	}
	config.Sync = SyncConfig{
		Interval:              interval,
		PageSize:              pageSize,
		MaxConcurrentTenants:  maxTenants,
		InitialSyncMaxRecords: maxInitial,
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// IsProduction reports whether the service runs with production safeguards,
// such as mandatory webhook signature verification.
func (c *ServerConfig) IsProduction() bool {
	return c.AppEnv == "production"
}

// ConnectionString returns a DSN string for GORM
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.DBName, c.Port, c.SSLMode)
}

// ConnectionURL returns a postgres:// URL, used by the migration runner.
func (c *DatabaseConfig) ConnectionURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

func (c *RabbitMQConfig) ConnectionURL() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s%s",
		c.User, c.Password, c.Host, c.Port, c.VHost)
}
