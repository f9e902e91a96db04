package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Archive ArchiveConfig `yaml:"archive" mapstructure:"archive"`
	Staging StagingConfig `yaml:"staging" mapstructure:"staging"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Market  MarketConfig  `yaml:"market" mapstructure:"market"`
	Sites   SitesConfig   `yaml:"sites" mapstructure:"sites"`
	Run     RunConfig     `yaml:"run" mapstructure:"run"`
	Alerts  AlertsConfig  `yaml:"alerts" mapstructure:"alerts"`
}

// ArchiveConfig configures where site archives live.
type ArchiveConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
}

// StagingConfig configures raw report staging and conversion.
type StagingConfig struct {
	KeepIntermediates bool      `yaml:"keep_intermediates" mapstructure:"keep_intermediates"`
	OCR               OCRConfig `yaml:"ocr" mapstructure:"ocr"`
}

// OCRConfig configures PDF and image text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
	MistralURL    string `yaml:"mistral_url" mapstructure:"mistral_url"`
}

// FetchConfig configures listing and report downloads.
type FetchConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// MarketConfig configures the market metadata database.
type MarketConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SitesConfig locates the site profile directory.
type SitesConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// RunConfig configures batch runs.
type RunConfig struct {
	MaxConcurrentSites int `yaml:"max_concurrent_sites" mapstructure:"max_concurrent_sites"`
}

// AlertsConfig configures post-run alerting.
type AlertsConfig struct {
	WebhookURL             string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold   float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	UnmatchedRateThreshold float64 `yaml:"unmatched_rate_threshold" mapstructure:"unmatched_rate_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("MARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("archive.root", ".")
	v.SetDefault("staging.keep_intermediates", false)
	v.SetDefault("staging.ocr.provider", "local")
	v.SetDefault("staging.ocr.pdftotext_path", "pdftotext")
	v.SetDefault("staging.ocr.tesseract_path", "tesseract")
	v.SetDefault("staging.ocr.mistral_api_key", "")
	v.SetDefault("staging.ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("staging.ocr.mistral_url", "https://api.mistral.ai/v1/ocr")
	v.SetDefault("fetch.user_agent", "market-report/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("market.driver", "sqlite")
	v.SetDefault("market.database_url", "market.db")
	v.SetDefault("sites.dir", "sites")
	v.SetDefault("run.max_concurrent_sites", 4)
	v.SetDefault("alerts.webhook_url", "")
	v.SetDefault("alerts.failure_rate_threshold", 0.25)
	v.SetDefault("alerts.unmatched_rate_threshold", 0.10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are "run"
// (fetch, convert and archive), "parse" (local files only) and "market".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		problems = append(problems, c.validateMarket()...)
		problems = append(problems, c.validateOCR()...)
		if c.Sites.Dir == "" {
			problems = append(problems, "sites.dir is required")
		}
		if c.Fetch.TimeoutSecs <= 0 {
			problems = append(problems, "fetch.timeout_secs must be > 0")
		}
		if c.Fetch.MaxRetries < 0 {
			problems = append(problems, "fetch.max_retries must be >= 0")
		}
		if c.Fetch.RatePerSec <= 0 {
			problems = append(problems, "fetch.rate_per_sec must be > 0")
		}
		if c.Run.MaxConcurrentSites < 1 || c.Run.MaxConcurrentSites > 32 {
			problems = append(problems, "run.max_concurrent_sites must be between 1 and 32")
		}
		if c.Alerts.FailureRateThreshold < 0 || c.Alerts.FailureRateThreshold > 1 {
			problems = append(problems, "alerts.failure_rate_threshold must be between 0 and 1")
		}
		if c.Alerts.UnmatchedRateThreshold < 0 || c.Alerts.UnmatchedRateThreshold > 1 {
			problems = append(problems, "alerts.unmatched_rate_threshold must be between 0 and 1")
		}
	case "parse":
		problems = append(problems, c.validateOCR()...)
	case "market":
		problems = append(problems, c.validateMarket()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New(fmt.Sprintf("config: %s", strings.Join(problems, "; ")))
	}
	return nil
}

func (c *Config) validateMarket() []string {
	var problems []string
	switch c.Market.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("market.driver %q must be sqlite or postgres", c.Market.Driver))
	}
	if c.Market.DatabaseURL == "" {
		problems = append(problems, "market.database_url is required")
	}
	return problems
}

func (c *Config) validateOCR() []string {
	switch c.Staging.OCR.Provider {
	case "local", "":
		return nil
	case "mistral":
		if c.Staging.OCR.MistralKey == "" {
			return []string{"staging.ocr.mistral_api_key is required for the mistral provider"}
		}
		return nil
	default:
		return []string{fmt.Sprintf("staging.ocr.provider %q must be local or mistral", c.Staging.OCR.Provider)}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
