// Package config aggregates the environment driven settings of every
// process role (action server, event server, schedulers, mail pollers).
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Chative-core-poc-v1/actionserver/internal/core"
	pkgmongo "github.com/Chative-core-poc-v1/actionserver/pkg/mongo"
	pkgredis "github.com/Chative-core-poc-v1/actionserver/pkg/redis"
)

type (
	// AppConfig defines all configurable parameters, sourced from environment
	// variables (loaded from .env for local runs).
	AppConfig struct {
		Env        core.Environment `envconfig:"APP_ENV" default:"development"`
		ServerAddr string           `envconfig:"SERVER_ADDR" default:":5055"`
		SecretKey  string           `envconfig:"SECRET_KEY" required:"true"`

		// Infrastructure
		Mongo          pkgmongo.Config
		Redis          pkgredis.Config
		ConfigCacheTTL time.Duration `envconfig:"CONFIG_CACHE_TTL" default:"60s"`

		Evaluator   EvaluatorConfig
		Search      SearchConfig
		SMTP        SMTPConfig
		IMAP        IMAPConfig
		Scheduler   SchedulerConfig
		Endpoints   EndpointConfig
		LLM         LLMConfig
		VectorDB    VectorDBConfig
		HTTPTimeout int `envconfig:"ACTION_REQUEST_TIMEOUT" default:"30"`
	}

	EvaluatorConfig struct {
		URL    string `envconfig:"EVALUATOR_URL" default:"http://localhost:8082/evaluate"`
		Lambda bool   `envconfig:"EVALUATOR_LAMBDA" default:"false"`
	}

	SearchConfig struct {
		WebSearchURL    string `envconfig:"WEB_SEARCH_URL"`
		GoogleSearchURL string `envconfig:"GOOGLE_SEARCH_URL" default:"https://www.googleapis.com/customsearch/v1"`
	}

	SMTPConfig struct {
		Host     string `envconfig:"SMTP_HOST"`
		Port     int    `envconfig:"SMTP_PORT" default:"587"`
		Username string `envconfig:"SMTP_USERNAME"`
		Password string `envconfig:"SMTP_PASSWORD"`
		Sender   string `envconfig:"SMTP_SENDER"`
	}

	IMAPConfig struct {
		Host string `envconfig:"IMAP_HOST"`
		Port int    `envconfig:"IMAP_PORT" default:"993"`
	}

	SchedulerConfig struct {
		Collection          string        `envconfig:"SCHEDULER_COLLECTION" default:"kscheduler"`
		MailCollection      string        `envconfig:"MAIL_SCHEDULER_COLLECTION" default:"mail_scheduler"`
		PollInterval        time.Duration `envconfig:"SCHEDULER_POLL_INTERVAL" default:"5s"`
		Workers             int           `envconfig:"SCHEDULER_WORKERS" default:"4"`
		MinCronInterval     time.Duration `envconfig:"SCHEDULER_MIN_CRON_INTERVAL" default:"10m"`
		MailMinCronInterval time.Duration `envconfig:"MAIL_MIN_CRON_INTERVAL" default:"1m"`
	}

	EndpointConfig struct {
		EventServerURL  string `envconfig:"EVENT_SERVER_URL" default:"http://localhost:5056"`
		CallbackBaseURL string `envconfig:"CALLBACK_BASE_URL" default:"http://localhost:5056/callback/d"`
		ChatServerURL   string `envconfig:"CHAT_SERVER_URL" default:"http://localhost:5000"`
		WhatsAppBSPURL  string `envconfig:"WHATSAPP_BSP_URL" default:"https://waba-v2.360dialog.io"`
	}

	LLMConfig struct {
		Provider       string `envconfig:"LLM_PROVIDER" default:"gemini"`
		APIKey         string `envconfig:"LLM_API_KEY"`
		BaseURL        string `envconfig:"LLM_BASE_URL"`
		ChatModel      string `envconfig:"LLM_CHAT_MODEL" default:"gemini-2.5-flash"`
		EmbeddingKey   string `envconfig:"EMBEDDING_API_KEY"`
		EmbeddingURL   string `envconfig:"EMBEDDING_BASE_URL"`
		EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	}

	VectorDBConfig struct {
		URL    string `envconfig:"VECTOR_DB_URL" default:"http://localhost:6333"`
		APIKey string `envconfig:"VECTOR_DB_API_KEY"`
	}
)

// Load reads the environment into an AppConfig.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	return &cfg, nil
}

// RequestTimeout is the per-call timeout for outbound action requests.
func (c *AppConfig) RequestTimeout() time.Duration {
	if c.HTTPTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.HTTPTimeout) * time.Second
}
