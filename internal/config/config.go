package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrConfiguration = errors.New("configuration error")

const (
	ProviderHTTP     = "http"
	ProviderPostgres = "postgres"
)

type Config struct {
	App       AppConfig       `yaml:"app"`
	Log       LogConfig       `yaml:"log"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Site      SiteConfig      `yaml:"site"`
	Reference ReferenceConfig `yaml:"reference"`
	Provider  ProviderConfig  `yaml:"provider"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type AppConfig struct {
	Name string `yaml:"name" env:"APP_NAME"`
	Port string `yaml:"port" env:"APP_PORT" validate:"required,numeric"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty" env:"LOG_PRETTY"`
}

// GatewayConfig holds the values issued by the payment gateway for this deployment.
type GatewayConfig struct {
	MerchantID     string `yaml:"merchant_id" env:"GATEWAY_MERCHANT_ID" validate:"required"`
	MerchantSecret string `yaml:"merchant_secret" env:"GATEWAY_MERCHANT_SECRET" json:"-" validate:"required"`
	Currency       string `yaml:"currency" env:"GATEWAY_CURRENCY" validate:"required,len=3,alpha"`
	URL            string `yaml:"url" env:"GATEWAY_URL" validate:"required,url"`
}

type SiteConfig struct {
	SiteBaseURL string `yaml:"site_base_url" env:"SITE_BASE_URL" validate:"required,url"`
	APIBaseURL  string `yaml:"api_base_url" env:"API_BASE_URL" validate:"required,url"`
	NotifyPath  string `yaml:"notify_path" env:"NOTIFY_PATH" validate:"required,startswith=/"`
}

type ReferenceConfig struct {
	Alphabet  string `yaml:"alphabet" env:"REFERENCE_ALPHABET"`
	MinLength int    `yaml:"min_length" env:"REFERENCE_MIN_LENGTH" validate:"min=0,max=255"`
	Salt      string `yaml:"salt" env:"REFERENCE_SALT" json:"-"`
}

type ProviderConfig struct {
	Kind    string        `yaml:"kind" env:"PROVIDER_KIND" validate:"oneof=http postgres"`
	BaseURL string        `yaml:"base_url" env:"PROVIDER_BASE_URL" validate:"required_if=Kind http"`
	Token   string        `yaml:"token" env:"PROVIDER_TOKEN" json:"-"`
	Timeout time.Duration `yaml:"timeout" env:"PROVIDER_TIMEOUT" validate:"gt=0"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST"`
	Port            string        `yaml:"port" env:"DB_PORT"`
	User            string        `yaml:"user" env:"DB_USER"`
	Password        string        `yaml:"password" env:"DB_PASSWORD" json:"-"`
	DBName          string        `yaml:"dbname" env:"DB_NAME"`
	SSLMode         string        `yaml:"sslmode" env:"DB_SSLMODE"`
	MigrationsPath  string        `yaml:"migrations_path" env:"DB_MIGRATIONS_PATH"`
	MaxConns        int32         `yaml:"max_conns" env:"DB_MAX_CONNS"`
	MinConns        int32         `yaml:"min_conns" env:"DB_MIN_CONNS"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS" validate:"gte=0"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST" validate:"gte=0"`
}

// Default returns the values used when neither the YAML file nor the
// environment sets an option. Gateway credentials have no defaults.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name: "checkout-service",
			Port: "8080",
		},
		Log: LogConfig{
			Level: "info",
		},
		Site: SiteConfig{
			NotifyPath: "/api/payment/notify",
		},
		Reference: ReferenceConfig{
			MinLength: 6,
		},
		Provider: ProviderConfig{
			Kind:    ProviderHTTP,
			Timeout: 5 * time.Second,
		},
		Postgres: PostgresConfig{
			Port:            "5432",
			SSLMode:         "disable",
			MigrationsPath:  "migrations",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
		},
		RateLimit: RateLimitConfig{
			RPS:   5,
			Burst: 10,
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// at configPath, then the optional .env file at envPath, then the process
// environment. Later sources win. Load does not validate.
func Load(configPath, envPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		file, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	if envPath != "" {
		// Существующие переменные окружения не перезаписываются.
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

// Validate reports every missing or malformed option at once, wrapped in
// ErrConfiguration.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})

	var problems []string

	if err := validate.Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		problems = append(problems, formatValidationErrors(validationErrors)...)
	}

	if c.Provider.Kind == ProviderPostgres {
		required := map[string]string{
			"DB_HOST": c.Postgres.Host,
			"DB_PORT": c.Postgres.Port,
			"DB_USER": c.Postgres.User,
			"DB_NAME": c.Postgres.DBName,
		}
		for _, name := range []string{"DB_HOST", "DB_PORT", "DB_USER", "DB_NAME"} {
			if strings.TrimSpace(required[name]) == "" {
				problems = append(problems, name+" is required when PROVIDER_KIND=postgres")
			}
		}
	}

	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		problems = append(problems, "RATE_LIMIT_BURST must be at least 1 when RATE_LIMIT_RPS is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(problems, "; "))
	}

	return nil
}

func formatValidationErrors(errs validator.ValidationErrors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required", "required_if":
			out = append(out, fe.Field()+" is required")
		case "url":
			out = append(out, fe.Field()+" must be an absolute URL")
		case "oneof":
			out = append(out, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			out = append(out, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
	}
	return out
}
