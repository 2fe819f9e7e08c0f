package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"RegulatoryScanner/internal/domain"
)

const (
	configPathEnv     = "REGSCANNER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	natsURLEnv        = "NATS_URL"
	logLevelEnv       = "LOG_LEVEL"
	logFormatEnv      = "LOG_FORMAT"
	httpAddrEnv       = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Database     DatabaseConfig     `yaml:"database"`
	Fetcher      FetcherConfig      `yaml:"fetcher"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Publish      PublishConfig      `yaml:"publish"`
	API          APIConfig          `yaml:"api"`
	Sources      []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes the run store. An empty DSN disables persistence.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// FetcherConfig tunes HTTP requests to the sources.
type FetcherConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"maxBytes"`
	UserAgent string        `yaml:"userAgent"`
}

// OrchestratorConfig bounds a run.
type OrchestratorConfig struct {
	Workers              int           `yaml:"workers"`
	RunTimeout           time.Duration `yaml:"runTimeout"`
	Retries              int           `yaml:"retries"`
	RetryInitial         time.Duration `yaml:"retryInitial"`
	FallbackCount        int           `yaml:"fallbackCount"`
	SkipSchemaValidation bool          `yaml:"skipSchemaValidation"`
}

// SchedulerConfig defines how often a run starts.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// PublishConfig wires the NATS publisher. An empty URL disables publishing.
type PublishConfig struct {
	NATSURL   string `yaml:"natsUrl"`
	Subject   string `yaml:"subject"`
	BatchSize int    `yaml:"batchSize"`
}

// APIConfig sets the listen address of the read-only API. Empty disables it.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// SourceConfig is the YAML shape of a domain.SourceDescriptor.
type SourceConfig struct {
	Code            string            `yaml:"code"`
	Authority       string            `yaml:"authority"`
	Jurisdiction    string            `yaml:"jurisdiction"`
	Region          string            `yaml:"region"`
	Language        string            `yaml:"language"`
	URL             string            `yaml:"url"`
	RateLimitMillis int               `yaml:"rateLimitMillis"`
	RateLimitKey    string            `yaml:"rateLimitKey"`
	PageSize        int               `yaml:"pageSize"`
	MaxPages        int               `yaml:"maxPages"`
	Parser          string            `yaml:"parser"`
	Kind            string            `yaml:"kind"`
	SubmissionType  string            `yaml:"submissionType"`
	Priority        int               `yaml:"priority"`
	Reliability     float64           `yaml:"reliability"`
	FallbackCount   int               `yaml:"fallbackCount"`
	Pagination      PaginationConfig  `yaml:"pagination"`
	TableSelector   string            `yaml:"tableSelector"`
	Columns         []string          `yaml:"columns"`
	LinkColumn      string            `yaml:"linkColumn"`
	RecordPath      string            `yaml:"recordPath"`
	RecordElement   string            `yaml:"recordElement"`
	Fields          map[string]string `yaml:"fields"`
	DateLayouts     []string          `yaml:"dateLayouts"`
	DocumentURL     string            `yaml:"documentUrl"`
}

// PaginationConfig mirrors domain.Pagination.
type PaginationConfig struct {
	Scheme      string `yaml:"scheme"`
	OffsetParam string `yaml:"offsetParam"`
	LimitParam  string `yaml:"limitParam"`
	PageParam   string `yaml:"pageParam"`
	FirstPage   int    `yaml:"firstPage"`
}

// Descriptor converts the YAML entry. Validation is left to the source registry.
func (s SourceConfig) Descriptor() domain.SourceDescriptor {
	return domain.SourceDescriptor{
		AuthorityCode:   s.Code,
		Authority:       s.Authority,
		Jurisdiction:    s.Jurisdiction,
		Region:          s.Region,
		Language:        s.Language,
		BaseURL:         s.URL,
		RateLimitMillis: s.RateLimitMillis,
		RateLimitKey:    s.RateLimitKey,
		PageSize:        s.PageSize,
		MaxPages:        s.MaxPages,
		ParserKind:      domain.ParserKind(s.Parser),
		RecordKind:      domain.RecordKind(s.Kind),
		SubmissionType:  s.SubmissionType,
		Priority:        s.Priority,
		Reliability:     s.Reliability,
		FallbackCount:   s.FallbackCount,
		Pagination: domain.Pagination{
			Scheme:      domain.PaginationScheme(s.Pagination.Scheme),
			OffsetParam: s.Pagination.OffsetParam,
			LimitParam:  s.Pagination.LimitParam,
			PageParam:   s.Pagination.PageParam,
			FirstPage:   s.Pagination.FirstPage,
		},
		TableSelector:       s.TableSelector,
		Columns:             append([]string(nil), s.Columns...),
		LinkColumn:          s.LinkColumn,
		RecordPath:          s.RecordPath,
		RecordElement:       s.RecordElement,
		FieldMap:            copyFields(s.Fields),
		DateLayouts:         append([]string(nil), s.DateLayouts...),
		DocumentURLTemplate: s.DocumentURL,
	}
}

// Descriptors converts every configured source in order.
func (c Config) Descriptors() []domain.SourceDescriptor {
	out := make([]domain.SourceDescriptor, 0, len(c.Sources))
	for _, s := range c.Sources {
		out = append(out, s.Descriptor())
	}
	return out
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if parsed, err := Parse(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		} else {
			cfg = parsed
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Parse merges a YAML document over the defaults.
func Parse(raw []byte) (Config, error) {
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("decode yaml: %w", err)
	}
	return mergeConfig(defaultConfig(), fileCfg), nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(natsURLEnv); v != "" {
		c.Publish.NATSURL = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(logFormatEnv); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.API.Addr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
		if base.Database.Driver == "" {
			base.Database.Driver = defaultConfig().Database.Driver
		}
	}

	if override.Fetcher.Timeout > 0 {
		base.Fetcher.Timeout = override.Fetcher.Timeout
	}
	if override.Fetcher.MaxBytes > 0 {
		base.Fetcher.MaxBytes = override.Fetcher.MaxBytes
	}
	if override.Fetcher.UserAgent != "" {
		base.Fetcher.UserAgent = override.Fetcher.UserAgent
	}

	if override.Orchestrator.Workers > 0 {
		base.Orchestrator.Workers = override.Orchestrator.Workers
	}
	if override.Orchestrator.RunTimeout > 0 {
		base.Orchestrator.RunTimeout = override.Orchestrator.RunTimeout
	}
	if override.Orchestrator.Retries > 0 {
		base.Orchestrator.Retries = override.Orchestrator.Retries
	}
	if override.Orchestrator.RetryInitial > 0 {
		base.Orchestrator.RetryInitial = override.Orchestrator.RetryInitial
	}
	if override.Orchestrator.FallbackCount > 0 {
		base.Orchestrator.FallbackCount = override.Orchestrator.FallbackCount
	}
	if override.Orchestrator.SkipSchemaValidation {
		base.Orchestrator.SkipSchemaValidation = true
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	if override.Publish.NATSURL != "" {
		base.Publish.NATSURL = override.Publish.NATSURL
	}
	if override.Publish.Subject != "" {
		base.Publish.Subject = override.Publish.Subject
	}
	if override.Publish.BatchSize > 0 {
		base.Publish.BatchSize = override.Publish.BatchSize
	}

	if override.API.Addr != "" {
		base.API.Addr = override.API.Addr
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file:regscanner.db?_pragma=busy_timeout(5000)"},
		Fetcher: FetcherConfig{
			Timeout:   30 * time.Second,
			MaxBytes:  10 << 20,
			UserAgent: "RegulatoryScanner/1.0 (+https://github.com/regscanner)",
		},
		Orchestrator: OrchestratorConfig{
			Workers:       4,
			RunTimeout:    20 * time.Minute,
			RetryInitial:  500 * time.Millisecond,
			FallbackCount: 5,
		},
		Scheduler: SchedulerConfig{Interval: 6 * time.Hour},
		Publish:   PublishConfig{Subject: "regscanner.records", BatchSize: 250},
		API:       APIConfig{Addr: ":8080"},
		Sources:   defaultSources(),
	}
}

func copyFields(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
