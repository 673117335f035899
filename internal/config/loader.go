package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller on the returned value.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("CATALOGSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("catalogscout")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".catalogscout"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides apply to
// keys that never appear in a config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("fetcher.timeout", cfg.Fetcher.Timeout)
	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)

	v.SetDefault("matcher.threshold", cfg.Matcher.Threshold)
	v.SetDefault("matcher.partial_bonus", cfg.Matcher.PartialBonus)
	v.SetDefault("matcher.min_text_len", cfg.Matcher.MinTextLen)
	v.SetDefault("matcher.max_text_len", cfg.Matcher.MaxTextLen)

	v.SetDefault("images.dir", cfg.Images.Dir)
	v.SetDefault("images.public_prefix", cfg.Images.PublicPrefix)
	v.SetDefault("images.extension", cfg.Images.Extension)
	v.SetDefault("images.max_per_product", cfg.Images.MaxPerProduct)
	v.SetDefault("images.max_attempts", cfg.Images.MaxAttempts)
	v.SetDefault("images.retry_delay", cfg.Images.RetryDelay)
	v.SetDefault("images.ancestor_depth", cfg.Images.AncestorDepth)
	v.SetDefault("images.selectors", cfg.Images.Selectors)

	v.SetDefault("extract.description_max_len", cfg.Extract.DescriptionMaxLen)
	v.SetDefault("extract.link_selectors", cfg.Extract.LinkSelectors)
	v.SetDefault("extract.search_limit", cfg.Extract.SearchLimit)

	v.SetDefault("engine.concurrency", cfg.Engine.Concurrency)
	v.SetDefault("engine.series", cfg.Engine.Series)

	v.SetDefault("catalog.delimiter", cfg.Catalog.Delimiter)
	v.SetDefault("catalog.header_tokens", cfg.Catalog.HeaderTokens)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.include_failed", cfg.Storage.IncludeFailed)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}
