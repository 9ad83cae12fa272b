package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	JWTSecret string `envconfig:"SUPABASE_JWT_SECRET" required:"true"`

	// Supabase storage is S3-compatible; exported conversation PDFs land here.
	S3URL       string `envconfig:"SUPABASE_S3_URL" required:"true"`
	S3Bucket    string `envconfig:"SUPABASE_S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"SUPABASE_S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"SUPABASE_S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"SUPABASE_S3_SECRET_KEY" required:"true"`

	// Perplexity chat completions settings
	PerplexityBaseURL string `envconfig:"PERPLEXITY_BASE_URL" default:"https://api.perplexity.ai"`
	PerplexityAPIKey  string `envconfig:"PERPLEXITY_API_KEY" required:"true"`
	PerplexityModel   string `envconfig:"PERPLEXITY_MODEL" default:"llama-3.1-sonar-small-128k-online"`

	// YouTube Data API settings
	YouTubeAPIKey string `envconfig:"YOUTUBE_API_KEY" required:"true"`

	// Stripe settings
	StripeSecretKey       string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret   string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripePriceMonthly    string `envconfig:"STRIPE_PRICE_MONTHLY" required:"true"`
	StripePriceAnnual     string `envconfig:"STRIPE_PRICE_ANNUAL" required:"true"`
	StripePriceFree       string `envconfig:"STRIPE_PRICE_FREE" required:"true"`
	StripePortalReturnURL string `envconfig:"STRIPE_PORTAL_RETURN_URL" required:"true"`

	// GCP settings (Pub/Sub usage events, Secret Manager)
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	GCPProjectIDLocal  string `envconfig:"GCP_PROJECT_ID_LOCAL"`
	PubSubEmulatorHost string `envconfig:"PUBSUB_EMULATOR_HOST"`
	UsageEventsTopic   string `envconfig:"PUBSUB_USAGE_EVENTS_TOPIC" default:"usage-events"`

	// External video downloader service
	DownloaderBaseURL string `envconfig:"DOWNLOADER_SERVICE_BASE_URL" required:"true"`

	// Video fetch orchestrator settings
	VideoFetchQueueName           string `envconfig:"VIDEO_FETCH_QUEUE_NAME" default:"video_fetch_queue"`
	VideoFetchPollTimeoutSec      int    `envconfig:"VIDEO_FETCH_POLL_TIMEOUT_SEC" default:"30"`
	VideoFetchPollMaxMsg          int    `envconfig:"VIDEO_FETCH_POLL_MAX_MSG" default:"1"`
	VideoFetchMaxRetries          int    `envconfig:"VIDEO_FETCH_MAX_RETRIES" default:"5"`
	VideoFetchBackoffInitialSec   int    `envconfig:"VIDEO_FETCH_BACKOFF_INITIAL_SEC" default:"1"`
	VideoFetchBackoffMaxSec       int    `envconfig:"VIDEO_FETCH_BACKOFF_MAX_SEC" default:"60"`
	VideoFetchRequestTimeoutSec   int    `envconfig:"VIDEO_FETCH_REQUEST_TIMEOUT_SEC" default:"300"`
	VideoFetchDeadLetterQueueName string `envconfig:"VIDEO_FETCH_DEAD_LETTER_QUEUE_NAME" default:"video_fetch_queue_dlq"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetGCPProjectID returns the project ID for the current environment.
// When the Pub/Sub emulator is running we are in local development.
func (c *Config) GetGCPProjectID() string {
	if c.PubSubEmulatorHost != "" && c.GCPProjectIDLocal != "" {
		return c.GCPProjectIDLocal
	}
	return c.GCPProjectID
}
