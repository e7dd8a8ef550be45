package config

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App struct {
		Env       string `env:"APP_ENV" env-default:"development"`
		Port      int    `env:"APP_PORT" env-default:"8080"`
		SentryUrl string `env:"SENTRY_URL"`
	}
	Postgres struct {
		Port    int    `env:"POSTGRES_PORT" env-default:"5432"`
		Host    string `env:"POSTGRES_HOST"`
		User    string `env:"POSTGRES_USER"`
		Pass    string `env:"POSTGRES_PASS"`
		Name    string `env:"POSTGRES_NAME"`
		SslMode string `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	}
	CartoDB struct {
		User   string `env:"CARTODB_USER"`
		ApiKey string `env:"CARTODB_API_KEY"`
		Table  string `env:"CARTODB_TABLE" env-default:"story_production"`
		ApiUrl string `env:"CARTODB_API_URL"`
	}
	Geostore struct {
		Url string `env:"GEOSTORE_URL"`
	}
	Gateway struct {
		Url string `env:"GATEWAY_URL"`
	}
	Redis struct {
		Url       string `env:"REDIS_URL" env-default:"redis://localhost:6379"`
		MailQueue string `env:"REDIS_MAIL_QUEUE" env-default:"mail"`
	}
	Mail struct {
		StoryTemplate  string `env:"MAIL_STORY_TEMPLATE" env-default:"story-confirmation"`
		MyStoriesUrl   string `env:"MAIL_MY_STORIES_URL"`
		StoryDetailUrl string `env:"MAIL_STORY_DETAIL_URL"`
		WriTemplate    string `env:"WRI_MAIL_TEMPLATE" env-default:"story-new"`
		WriRecipients  string `env:"WRI_MAIL_RECIPIENTS"`
	}
}

var (
	once sync.Once
	cfg  *Config
)

func New() (*Config, error) {
	once.Do(func() {
		cfg = &Config{}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			help, _ := cleanenv.GetDescription(cfg, nil)
			log.Fatalf("Failed to read configuration: %v\n%v", err, help)
		}
	})
	return cfg, nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Postgres.User,
		c.Postgres.Pass,
		c.Postgres.Host,
		c.Postgres.Port,
		c.Postgres.Name,
		c.Postgres.SslMode,
	)
}

// CartoApiUrl returns the SQL API endpoint, deriving the conventional
// per-account URL when no explicit override is configured.
func (c *Config) CartoApiUrl() string {
	if c.CartoDB.ApiUrl != "" {
		return c.CartoDB.ApiUrl
	}
	return fmt.Sprintf("https://%s.cartodb.com/api/v2/sql", c.CartoDB.User)
}

// WriRecipientList splits the configured comma-separated recipient list.
func (c *Config) WriRecipientList() []string {
	if c.Mail.WriRecipients == "" {
		return nil
	}
	parts := strings.Split(c.Mail.WriRecipients, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
