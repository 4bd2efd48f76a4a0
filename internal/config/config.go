package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Asia/Kolkata"

	configPathEnv       = "NEWS_SENTIMENT_CONFIG"
	serverPortEnv       = "PORT"
	databaseDSNEnv      = "DATABASE_DSN"
	classifierURLEnv    = "CLASSIFIER_URL"
	classifierAPIKeyEnv = "CLASSIFIER_API_KEY"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Browser    BrowserConfig    `yaml:"browser"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Classifier ClassifierConfig `yaml:"classifier"`
	NewsAPI    NewsAPIConfig    `yaml:"newsapi"`
	Database   DatabaseConfig   `yaml:"database"`
	Export     ExportConfig     `yaml:"export"`
	Tickers    []TickerConfig   `yaml:"tickers"`
}

// ServerConfig describes the HTTP boundary.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AnalysisConfig defines pipeline behavior shared across requests.
type AnalysisConfig struct {
	Timezone          string         `yaml:"timezone"`
	PrimarySource     string         `yaml:"primarySource"`
	FallbackSource    string         `yaml:"fallbackSource"`
	RedistributeDates *bool          `yaml:"redistributeDates"`
	ExcludeGroups     *bool          `yaml:"excludeGroups"`
	ExclusionPhrases  []string       `yaml:"exclusionPhrases"`
	location          *time.Location `yaml:"-"`
}

// Location resolves the analysis timezone string to a time.Location.
func (a AnalysisConfig) Location() *time.Location {
	if a.location != nil {
		return a.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// RedistributeEnabled reports whether the date anti-clustering heuristic runs.
func (a AnalysisConfig) RedistributeEnabled() bool {
	return a.RedistributeDates == nil || *a.RedistributeDates
}

// ExcludeGroupsEnabled reports whether multi-entity articles are excluded.
func (a AnalysisConfig) ExcludeGroupsEnabled() bool {
	return a.ExcludeGroups == nil || *a.ExcludeGroups
}

// BrowserConfig tunes the headless renderer.
type BrowserConfig struct {
	UserAgent          string `yaml:"userAgent"`
	SettleSeconds      int    `yaml:"settleSeconds"`
	PageTimeoutSeconds int    `yaml:"pageTimeoutSeconds"`
}

// FetchConfig tunes the plain HTTP fetcher.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeoutSeconds"`
	MaxRetries     int     `yaml:"maxRetries"`
	RatePerSecond  float64 `yaml:"ratePerSecond"`
}

// ClassifierConfig describes the sentiment inference service.
type ClassifierConfig struct {
	InferenceURL string `yaml:"inferenceUrl"`
	APIKey       string `yaml:"apiKey"`
}

// NewsAPIConfig points at the fallback search endpoint; the API key arrives
// per request.
type NewsAPIConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// DatabaseConfig describes the optional run-history store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// ExportConfig names the flat result artifacts.
type ExportConfig struct {
	Path      string `yaml:"path"`
	DebugPath string `yaml:"debugPath"`
}

// TickerConfig carries the hand-tuned relevance aliases for one symbol.
type TickerConfig struct {
	Symbol   string   `yaml:"symbol"`
	Company  string   `yaml:"company"`
	Keywords []string `yaml:"keywords"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Tickers) == 0 {
		cfg.Tickers = defaultConfig().Tickers
	}

	return cfg
}

// KeywordTable maps upper-case tickers to their lowercase relevance aliases.
func (c Config) KeywordTable() map[string][]string {
	table := make(map[string][]string, len(c.Tickers))
	for _, t := range c.Tickers {
		if t.Symbol == "" || len(t.Keywords) == 0 {
			continue
		}
		aliases := make([]string, 0, len(t.Keywords))
		for _, kw := range t.Keywords {
			aliases = append(aliases, strings.ToLower(kw))
		}
		table[strings.ToUpper(t.Symbol)] = aliases
	}
	return table
}

// CompanyNames maps upper-case tickers to display company names.
func (c Config) CompanyNames() map[string]string {
	names := make(map[string]string, len(c.Tickers))
	for _, t := range c.Tickers {
		if t.Symbol != "" && t.Company != "" {
			names[strings.ToUpper(t.Symbol)] = t.Company
		}
	}
	return names
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(serverPortEnv); v != "" {
		c.Server.Port = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(classifierURLEnv); v != "" {
		c.Classifier.InferenceURL = v
	}

	if v := os.Getenv(classifierAPIKeyEnv); v != "" {
		c.Classifier.APIKey = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Analysis.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Analysis.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Server.Port != "" {
		base.Server.Port = override.Server.Port
	}
	if len(override.Server.AllowedOrigins) > 0 {
		base.Server.AllowedOrigins = override.Server.AllowedOrigins
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.Analysis.Timezone != "" {
		base.Analysis.Timezone = override.Analysis.Timezone
	}
	if override.Analysis.PrimarySource != "" {
		base.Analysis.PrimarySource = override.Analysis.PrimarySource
	}
	if override.Analysis.FallbackSource != "" {
		base.Analysis.FallbackSource = override.Analysis.FallbackSource
	}
	if override.Analysis.RedistributeDates != nil {
		base.Analysis.RedistributeDates = override.Analysis.RedistributeDates
	}
	if override.Analysis.ExcludeGroups != nil {
		base.Analysis.ExcludeGroups = override.Analysis.ExcludeGroups
	}
	if len(override.Analysis.ExclusionPhrases) > 0 {
		base.Analysis.ExclusionPhrases = override.Analysis.ExclusionPhrases
	}

	if override.Browser.UserAgent != "" {
		base.Browser.UserAgent = override.Browser.UserAgent
	}
	if override.Browser.SettleSeconds > 0 {
		base.Browser.SettleSeconds = override.Browser.SettleSeconds
	}
	if override.Browser.PageTimeoutSeconds > 0 {
		base.Browser.PageTimeoutSeconds = override.Browser.PageTimeoutSeconds
	}

	if override.Fetch.TimeoutSeconds > 0 {
		base.Fetch.TimeoutSeconds = override.Fetch.TimeoutSeconds
	}
	if override.Fetch.MaxRetries > 0 {
		base.Fetch.MaxRetries = override.Fetch.MaxRetries
	}
	if override.Fetch.RatePerSecond > 0 {
		base.Fetch.RatePerSecond = override.Fetch.RatePerSecond
	}

	if override.Classifier.InferenceURL != "" {
		base.Classifier.InferenceURL = override.Classifier.InferenceURL
	}
	if override.Classifier.APIKey != "" {
		base.Classifier.APIKey = override.Classifier.APIKey
	}

	if override.NewsAPI.Endpoint != "" {
		base.NewsAPI.Endpoint = override.NewsAPI.Endpoint
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Export.Path != "" {
		base.Export.Path = override.Export.Path
	}
	if override.Export.DebugPath != "" {
		base.Export.DebugPath = override.Export.DebugPath
	}

	if len(override.Tickers) > 0 {
		base.Tickers = override.Tickers
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Server: ServerConfig{
			Port:           "8000",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Logging: LoggingConfig{Level: "info"},
		Analysis: AnalysisConfig{
			Timezone:         defaultTimezone,
			PrimarySource:    "yahoo",
			FallbackSource:   "newsapi",
			ExclusionPhrases: []string{"magnificent seven"},
			location:         tz,
		},
		Browser: BrowserConfig{
			SettleSeconds:      3,
			PageTimeoutSeconds: 30,
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 10,
			MaxRetries:     3,
			RatePerSecond:  4,
		},
		Classifier: ClassifierConfig{InferenceURL: "http://localhost:9000", APIKey: ""},
		NewsAPI:    NewsAPIConfig{Endpoint: "https://newsapi.org/v2/everything"},
		Database:   DatabaseConfig{DSN: ""},
		Export: ExportConfig{
			Path:      "exports/sentiment_analysis_results.csv",
			DebugPath: "exports/sentiment_analysis_results_debug.csv",
		},
		Tickers: []TickerConfig{
			{Symbol: "AAPL", Company: "Apple", Keywords: []string{"apple", "aapl", "iphone", "macbook", "tim cook"}},
			{Symbol: "GOOGL", Company: "Alphabet", Keywords: []string{"google", "googl", "alphabet", "goog"}},
			{Symbol: "MSFT", Company: "Microsoft"},
			{Symbol: "TSLA", Company: "Tesla"},
		},
	}
}
