package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration. The WhatsApp credentials, the
// webhook verify token and the backend base URL are required: a production
// build must fail fast instead of silently defaulting.
type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	WhatsAppToken      string `envconfig:"WHATSAPP_TOKEN" required:"true"`
	PhoneNumberID      string `envconfig:"WHATSAPP_PHONE_NUMBER_ID" required:"true"`
	WebhookVerifyToken string `envconfig:"WEBHOOK_VERIFY_TOKEN" required:"true"`
	BackendBaseURL     string `envconfig:"BACKEND_BASE_URL" required:"true"`

	// Optional: when set, webhook deliveries must carry a valid
	// X-Hub-Signature-256 header.
	AppSecret string `envconfig:"WHATSAPP_APP_SECRET"`

	GraphBaseURL string `envconfig:"GRAPH_API_BASE_URL" default:"https://graph.facebook.com/v19.0"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"REQUEST_MAX_ATTEMPTS" default:"3"`
	RetryBackoff   time.Duration `envconfig:"REQUEST_RETRY_BACKOFF" default:"1s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads configuration from the environment, after a best-effort .env
// load for local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}
