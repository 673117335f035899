package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultUserAgent identifies the scraper to the target site.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config is the root configuration for catalogscout.
type Config struct {
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Matcher MatcherConfig `mapstructure:"matcher" yaml:"matcher"`
	Images  ImagesConfig  `mapstructure:"images"  yaml:"images"`
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`
	Engine  EngineConfig  `mapstructure:"engine"  yaml:"engine"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// FetcherConfig controls page and image HTTP requests.
type FetcherConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"           yaml:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	FollowRedirects bool          `mapstructure:"follow_redirects"  yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
}

// MatcherConfig controls how catalog names are located on a page.
type MatcherConfig struct {
	Threshold    float64 `mapstructure:"threshold"     yaml:"threshold"`
	PartialBonus float64 `mapstructure:"partial_bonus" yaml:"partial_bonus"`
	MinTextLen   int     `mapstructure:"min_text_len"  yaml:"min_text_len"`
	MaxTextLen   int     `mapstructure:"max_text_len"  yaml:"max_text_len"`
}

// ImagesConfig controls image discovery and the local image store.
type ImagesConfig struct {
	Dir           string        `mapstructure:"dir"             yaml:"dir"`
	PublicPrefix  string        `mapstructure:"public_prefix"   yaml:"public_prefix"`
	Extension     string        `mapstructure:"extension"       yaml:"extension"`
	MaxPerProduct int           `mapstructure:"max_per_product" yaml:"max_per_product"`
	MaxAttempts   int           `mapstructure:"max_attempts"    yaml:"max_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"     yaml:"retry_delay"`
	AncestorDepth int           `mapstructure:"ancestor_depth"  yaml:"ancestor_depth"`
	Selectors     []string      `mapstructure:"selectors"       yaml:"selectors"`
}

// ExtractConfig controls name, description and search-link extraction on
// product pages.
type ExtractConfig struct {
	NameRules         []Rule   `mapstructure:"name_rules"          yaml:"name_rules"`
	DescriptionRules  []Rule   `mapstructure:"description_rules"   yaml:"description_rules"`
	FallbackRules     []Rule   `mapstructure:"fallback_rules"      yaml:"fallback_rules"`
	DescriptionMaxLen int      `mapstructure:"description_max_len" yaml:"description_max_len"`
	LinkSelectors     []string `mapstructure:"link_selectors"      yaml:"link_selectors"`
	SearchLimit       int      `mapstructure:"search_limit"        yaml:"search_limit"`
}

// Rule is a single text extraction rule.
type Rule struct {
	Selector string `mapstructure:"selector" yaml:"selector"`
	Type     string `mapstructure:"type"     yaml:"type"` // css, xpath
	MinLen   int    `mapstructure:"min_len"  yaml:"min_len"`
}

// EngineConfig controls the orchestrator.
type EngineConfig struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	Series      string `mapstructure:"series"      yaml:"series"`
}

// CatalogConfig controls parsing of the delimited product listing.
type CatalogConfig struct {
	Delimiter    string   `mapstructure:"delimiter"     yaml:"delimiter"`
	HeaderTokens []string `mapstructure:"header_tokens" yaml:"header_tokens"`
}

// StorageConfig controls output.
type StorageConfig struct {
	Type          string `mapstructure:"type"           yaml:"type"` // json, jsonl, csv
	OutputPath    string `mapstructure:"output_path"    yaml:"output_path"`
	IncludeFailed bool   `mapstructure:"include_failed" yaml:"include_failed"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultImageSelectors lists image-bearing selectors in priority order.
var DefaultImageSelectors = []string{
	`img[src]`,
	`img[data-src]`,
	`img[data-lazy-src]`,
	`picture img`,
	`[style*="background-image"]`,
	`.product-image img`,
	`[class*="product"] img`,
	`[class*="imagen"] img`,
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetcher: FetcherConfig{
			Timeout:         15 * time.Second,
			UserAgent:       DefaultUserAgent,
			FollowRedirects: true,
			MaxRedirects:    5,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    20,
		},
		Matcher: MatcherConfig{
			Threshold:    0.5,
			PartialBonus: 0.2,
			MinTextLen:   5,
			MaxTextLen:   500,
		},
		Images: ImagesConfig{
			Dir:           "./public/products",
			PublicPrefix:  "/products",
			Extension:     ".jpg",
			MaxPerProduct: 3,
			MaxAttempts:   2,
			RetryDelay:    250 * time.Millisecond,
			AncestorDepth: 4,
			Selectors:     append([]string(nil), DefaultImageSelectors...),
		},
		Extract: ExtractConfig{
			NameRules: []Rule{
				{Selector: "h1.product-name", Type: "css", MinLen: 4},
				{Selector: "h1[data-product-name]", Type: "css", MinLen: 4},
				{Selector: ".product-title h1", Type: "css", MinLen: 4},
				{Selector: `[class*="producto"] h1`, Type: "css", MinLen: 4},
				{Selector: "h1", Type: "css", MinLen: 4},
			},
			DescriptionRules: []Rule{
				{Selector: ".product-description", Type: "css", MinLen: 11},
				{Selector: "[data-product-description]", Type: "css", MinLen: 11},
				{Selector: ".description", Type: "css", MinLen: 11},
				{Selector: `[class*="descripcion"]`, Type: "css", MinLen: 11},
			},
			FallbackRules: []Rule{
				{Selector: `main, article, [role="main"]`, Type: "css", MinLen: 1},
			},
			DescriptionMaxLen: 300,
			LinkSelectors: []string{
				`a[href*="/productos/"]`,
				`.product-link`,
				`[class*="product-item"] a`,
				`a[class*="product"]`,
			},
			SearchLimit: 5,
		},
		Engine: EngineConfig{
			Concurrency: 1,
			Series:      "Ediciones de la Montaña",
		},
		Catalog: CatalogConfig{
			Delimiter:    ",",
			HeaderTokens: []string{"ARTICULO"},
		},
		Storage: StorageConfig{
			Type:       "json",
			OutputPath: "./public/products.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
