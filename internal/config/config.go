package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Debug      bool             `mapstructure:"debug"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"`
}

// ExtractionConfig contains every knob of the text-extraction pipeline.
// All of these are adjustable without code changes.
type ExtractionConfig struct {
	CloudOCR CloudOCRConfig `mapstructure:"cloud_ocr"`
	LocalOCR LocalOCRConfig `mapstructure:"local_ocr"`

	// MaxPages bounds the number of pages considered per document;
	// overflow pages are silently ignored.
	MaxPages int `mapstructure:"max_pages"`

	// MinCharsPerPage is the per-page character threshold below which a
	// page's text layer is classified as needing OCR. It doubles as the
	// sufficiency threshold for the cloud tier's whole-document result.
	MinCharsPerPage int `mapstructure:"min_chars_per_page"`

	// TooLongThreshold is the character count above which a result is
	// flagged too long for downstream analysis.
	TooLongThreshold int `mapstructure:"too_long_threshold"`
}

// CloudOCRConfig contains settings for the cloud OCR tier
type CloudOCRConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	Endpoint    string        `mapstructure:"endpoint"`
	Engine      string        `mapstructure:"engine"`
	Language    string        `mapstructure:"language"`
	MaxFileSize int64         `mapstructure:"max_file_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// LocalOCRConfig contains settings for the local OCR tier
type LocalOCRConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Languages   []string      `mapstructure:"languages"`
	PageTimeout time.Duration `mapstructure:"page_timeout"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	viper.SetConfigName("resumetruth")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/resumetruth")

	setDefaults()

	// Enable environment variable support with underscore replacer
	viper.AutomaticEnv()
	viper.SetEnvPrefix("RESUMETRUTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (if it exists)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Info().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Config file loaded")
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads environment variables from .env file
func loadEnvFile() error {
	locations := []string{
		".env",
		".env.local",
		"../.env", // For when running from subdirectories
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "120s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.body_limit", 25*1024*1024) // 25MB uploads

	// Cloud OCR defaults (free-tier shaped)
	viper.SetDefault("extraction.cloud_ocr.enabled", false)
	viper.SetDefault("extraction.cloud_ocr.endpoint", "https://api.ocr.space/parse/image")
	viper.SetDefault("extraction.cloud_ocr.engine", "2")
	viper.SetDefault("extraction.cloud_ocr.language", "eng")
	viper.SetDefault("extraction.cloud_ocr.max_file_size", 1024*1024) // 1MB
	viper.SetDefault("extraction.cloud_ocr.timeout", "30s")

	// Local OCR defaults
	viper.SetDefault("extraction.local_ocr.enabled", true)
	viper.SetDefault("extraction.local_ocr.languages", []string{"eng"})
	viper.SetDefault("extraction.local_ocr.page_timeout", "20s")

	// Pipeline defaults
	viper.SetDefault("extraction.max_pages", 10)
	viper.SetDefault("extraction.min_chars_per_page", 10)
	viper.SetDefault("extraction.too_long_threshold", 15000)

	viper.SetDefault("debug", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Extraction.MaxPages <= 0 {
		return fmt.Errorf("extraction.max_pages must be positive")
	}

	if c.Extraction.MinCharsPerPage <= 0 {
		return fmt.Errorf("extraction.min_chars_per_page must be positive")
	}

	if c.Extraction.TooLongThreshold <= 0 {
		return fmt.Errorf("extraction.too_long_threshold must be positive")
	}

	if c.Extraction.CloudOCR.Enabled {
		if c.Extraction.CloudOCR.APIKey == "" {
			return fmt.Errorf("extraction.cloud_ocr.api_key is required when cloud OCR is enabled")
		}
		if c.Extraction.CloudOCR.Endpoint == "" {
			return fmt.Errorf("extraction.cloud_ocr.endpoint is required when cloud OCR is enabled")
		}
		if c.Extraction.CloudOCR.MaxFileSize <= 0 {
			return fmt.Errorf("extraction.cloud_ocr.max_file_size must be positive")
		}
		if c.Extraction.CloudOCR.Timeout <= 0 {
			return fmt.Errorf("extraction.cloud_ocr.timeout must be positive")
		}
	}

	if c.Extraction.LocalOCR.Enabled && c.Extraction.LocalOCR.PageTimeout <= 0 {
		return fmt.Errorf("extraction.local_ocr.page_timeout must be positive")
	}

	return nil
}
