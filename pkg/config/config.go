// Package config assembles the run configuration from built-in defaults, an
// optional YAML file and the environment. Command-line flags are applied on
// top by the caller before Validate.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/naming"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/replicate"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/repository"
	"gopkg.in/yaml.v3"
)

const outputDirPrefix = "replicate_outputs_"

var ErrMissingToken = errors.New("REPLICATE_API_TOKEN is not set")

type Config struct {
	APIToken  string `yaml:"-" env:"REPLICATE_API_TOKEN"`
	BaseURL   string `yaml:"base_url" env:"REPLICATE_BASE_URL"`
	UserAgent string `yaml:"user_agent" env:"REPLICATE_USER_AGENT"`

	RequestDelay    time.Duration `yaml:"request_delay" env:"REQUEST_DELAY"`
	DownloadDelay   time.Duration `yaml:"download_delay" env:"DOWNLOAD_DELAY"`
	MaxPromptLength int           `yaml:"max_prompt_length" env:"MAX_PROMPT_LENGTH"`
	EarlyStop       bool          `yaml:"early_stop" env:"EARLY_STOP"`

	OutputDir    string `yaml:"output_dir" env:"OUTPUT_DIR"`
	MetadataDir  string `yaml:"metadata_dir" env:"METADATA_DIR"`
	CreateZips   bool   `yaml:"create_zips" env:"CREATE_ZIPS"`
	SkipExisting bool   `yaml:"skip_existing" env:"SKIP_EXISTING"`
	HTMLReport   bool   `yaml:"html_report" env:"HTML_REPORT"`

	StateFile   string `yaml:"state_file" env:"STATE_FILE"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
	BunDebug    int    `yaml:"bun_debug" env:"BUNDEBUG"`

	TelegramBotToken string `yaml:"-" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `yaml:"telegram_chat_id" env:"TELEGRAM_CHAT_ID"`

	Debug bool `yaml:"debug" env:"DEBUG"`

	Filter domain.DateFilter `yaml:"filter"`
}

// Default returns the built-in settings for a run started at now.
func Default(now time.Time) Config {
	return Config{
		BaseURL:         replicate.DefaultBaseURL,
		UserAgent:       replicate.DefaultUserAgent,
		RequestDelay:    200 * time.Millisecond,
		DownloadDelay:   100 * time.Millisecond,
		MaxPromptLength: naming.DefaultMaxPromptLength,
		EarlyStop:       true,
		OutputDir:       outputDirPrefix + now.Format("2006-01-02"),
		MetadataDir:     ".",
		CreateZips:      true,
		SkipExisting:    true,
		HTMLReport:      true,
		StateFile:       repository.DefaultStateFile,
	}
}

// Load layers the YAML file at path (skipped when empty) and then the
// environment over the defaults.
func Load(path string, now time.Time) (Config, error) {
	cfg := Default(now)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIToken == "" {
		return ErrMissingToken
	}
	if c.Filter.LastRun && (c.Filter.Since != "" || c.Filter.Until != "") {
		return domain.ErrConflictingFilters
	}
	if c.OutputDir == "" {
		return errors.New("output directory is empty")
	}
	if c.RequestDelay < 0 || c.DownloadDelay < 0 {
		return errors.New("delays must not be negative")
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	return nil
}

func (c Config) NotifyEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}
