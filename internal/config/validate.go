package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}

	if cfg.Matcher.Threshold < 0 || cfg.Matcher.Threshold >= 1 {
		return fmt.Errorf("matcher.threshold must be in [0, 1), got %v", cfg.Matcher.Threshold)
	}
	if cfg.Matcher.PartialBonus < 0 {
		return fmt.Errorf("matcher.partial_bonus must be >= 0, got %v", cfg.Matcher.PartialBonus)
	}
	if cfg.Matcher.MinTextLen < 0 || cfg.Matcher.MaxTextLen < cfg.Matcher.MinTextLen {
		return fmt.Errorf("matcher text window [%d, %d] is invalid", cfg.Matcher.MinTextLen, cfg.Matcher.MaxTextLen)
	}

	if cfg.Images.Dir == "" {
		return fmt.Errorf("images.dir must be set")
	}
	if cfg.Images.MaxPerProduct < 0 {
		return fmt.Errorf("images.max_per_product must be >= 0, got %d", cfg.Images.MaxPerProduct)
	}
	if cfg.Images.MaxAttempts < 1 {
		return fmt.Errorf("images.max_attempts must be >= 1, got %d", cfg.Images.MaxAttempts)
	}
	if cfg.Images.AncestorDepth < 0 {
		return fmt.Errorf("images.ancestor_depth must be >= 0, got %d", cfg.Images.AncestorDepth)
	}
	if len(cfg.Images.Selectors) == 0 {
		return fmt.Errorf("images.selectors must not be empty")
	}

	for _, rules := range [][]Rule{cfg.Extract.NameRules, cfg.Extract.DescriptionRules, cfg.Extract.FallbackRules} {
		for _, r := range rules {
			if r.Type != "" && r.Type != "css" && r.Type != "xpath" {
				return fmt.Errorf("extract rule %q: type must be 'css' or 'xpath', got %q", r.Selector, r.Type)
			}
		}
	}
	if cfg.Extract.SearchLimit < 1 {
		return fmt.Errorf("extract.search_limit must be >= 1, got %d", cfg.Extract.SearchLimit)
	}

	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be >= 1, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.Concurrency > 64 {
		return fmt.Errorf("engine.concurrency must be <= 64, got %d", cfg.Engine.Concurrency)
	}

	if cfg.Catalog.Delimiter == "" {
		return fmt.Errorf("catalog.delimiter must not be empty")
	}

	switch cfg.Storage.Type {
	case "json", "jsonl", "csv":
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv)", cfg.Storage.Type)
	}
	if cfg.Storage.OutputPath == "" {
		return fmt.Errorf("storage.output_path must be set")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for scraping.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
