// Package config loads application settings from copycomic.yml, with
// COPYCOMIC_ environment overrides.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config maps directly to the structure of copycomic.yml.
type Config struct {
	Concurrency     int           `mapstructure:"concurrency"`
	ChapterPageSize int           `mapstructure:"chapter_page_size"`
	APIURL          string        `mapstructure:"api_url"`
	SiteURL         string        `mapstructure:"site_url"`
	UserAgent       string        `mapstructure:"user_agent"`
	InsecureTLS     bool          `mapstructure:"insecure_tls"`
	Timeout         time.Duration `mapstructure:"timeout"`
	OutputDir       string        `mapstructure:"output_dir"`
	OrderStrategy   string        `mapstructure:"order_strategy"`
	ContinueOnError bool          `mapstructure:"continue_on_error"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryCooldown   time.Duration `mapstructure:"retry_cooldown"`
	LogLevel        string        `mapstructure:"log_level"`
	Image           struct {
		MaxWidth  int  `mapstructure:"max_width"`
		MaxHeight int  `mapstructure:"max_height"`
		Grayscale bool `mapstructure:"grayscale"`
	} `mapstructure:"image"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("concurrency", 30)
	v.SetDefault("chapter_page_size", 500)
	v.SetDefault("api_url", "https://api.copymanga.site")
	v.SetDefault("site_url", "https://copymanga.site")
	v.SetDefault("user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/102.0.5005.72 Safari/537.36")
	v.SetDefault("insecure_tls", true)
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("output_dir", "")
	v.SetDefault("order_strategy", "permutation")
	v.SetDefault("continue_on_error", false)
	v.SetDefault("max_retries", 0)
	v.SetDefault("retry_cooldown", time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("image.max_width", 0)
	v.SetDefault("image.max_height", 0)
	v.SetDefault("image.grayscale", false)
	v.SetDefault("database.path", "copycomic.db")
}

// Load reads the config file at path, or copycomic.yml in the current
// directory when path is empty. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("copycomic")
		v.SetConfigType("yml")
		v.AddConfigPath(".")
	}

	// e.g. COPYCOMIC_DATABASE_PATH overrides database.path
	v.SetEnvPrefix("COPYCOMIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
