package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	BackendFirestore = "firestore"
	BackendBadger    = "badger"
)

type Config struct {
	ServerPort  string `envconfig:"SERVER_PORT" default:"8080"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// StoreBackend selects the persistence layer: firestore in production,
	// badger for local development.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"badger"`
	BadgerPath   string `envconfig:"BADGER_PATH" default:"./data/badger"`
	SeedFile     string `envconfig:"SEED_FILE"`

	FirebaseProject            string `envconfig:"FIREBASE_PROJECT_ID"`
	FirebaseServiceAccountJSON string `envconfig:"FIREBASE_SERVICE_ACCOUNT_JSON"`
	FirebaseServiceAccountPath string `envconfig:"FIREBASE_SERVICE_ACCOUNT_PATH"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"your-secret-key"`
	JWTExpiry time.Duration `envconfig:"JWT_EXPIRY" default:"24h"`

	RedisURL     string `envconfig:"REDIS_URL"`
	RedisChannel string `envconfig:"REDIS_CHANNEL_PREFIX" default:"tradechat:"`

	RequestTimeout          time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	NotificationDedupWindow time.Duration `envconfig:"NOTIFICATION_DEDUP_WINDOW" default:"5m"`
	ConversationPreviewSize int           `envconfig:"CONVERSATION_PREVIEW_SIZE" default:"20"`

	WSSendBuffer     int      `envconfig:"WS_SEND_BUFFER" default:"256"`
	WSAllowedOrigins []string `envconfig:"WS_ALLOWED_ORIGINS"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	switch cfg.StoreBackend {
	case BackendFirestore:
		if cfg.FirebaseProject == "" {
			return nil, fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore backend")
		}
	case BackendBadger:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.WSSendBuffer <= 0 {
		return nil, fmt.Errorf("WS_SEND_BUFFER must be positive")
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
