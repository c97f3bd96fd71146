// Package config manages application configuration loading and validation.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Environment names the deployment environment.
type Environment string

const (
	// EnvDev is the development environment.
	EnvDev Environment = "dev"
	// EnvStaging is the staging environment.
	EnvStaging Environment = "staging"
	// EnvProd is the production environment.
	EnvProd Environment = "prod"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultProviderURL    = "https://common-api.wildberries.ru/api/v1/tariffs/box"
	defaultServiceName    = "tariffsync"
	defaultFetchCron      = "0 * * * *"
	defaultPublishCron    = "0 * * * *"
)

// ProviderConfig configures the upstream tariff API client.
type ProviderConfig struct {
	BaseURL        string        `yaml:"baseURL"`
	APIKey         string        `yaml:"apiKey"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// UnmarshalYAML accepts the request timeout as a Go duration string.
func (p *ProviderConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		BaseURL        string `yaml:"baseURL"`
		APIKey         string `yaml:"apiKey"`
		RequestTimeout string `yaml:"requestTimeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	p.BaseURL = raw.BaseURL
	p.APIKey = raw.APIKey
	if timeout := strings.TrimSpace(raw.RequestTimeout); timeout != "" {
		parsed, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("provider requestTimeout %q: %w", timeout, err)
		}
		p.RequestTimeout = parsed
	}
	return nil
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn"`
	MigrateOnStart bool   `yaml:"migrateOnStart"`
}

// SpreadsheetIDList accepts either a YAML sequence of IDs or a single
// comma-separated scalar, matching how deployments commonly pass the list
// through one environment variable.
type SpreadsheetIDList []string

// UnmarshalYAML supports both sequence and comma-separated scalar forms.
func (l *SpreadsheetIDList) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*l = nil
		return nil
	}
	switch node.Kind {
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return fmt.Errorf("spreadsheetIDs: %w", err)
		}
		*l = normalizeIDs(raw)
		return nil
	case yaml.ScalarNode:
		*l = normalizeIDs(strings.Split(node.Value, ","))
		return nil
	default:
		return fmt.Errorf("spreadsheetIDs: expected sequence or scalar")
	}
}

func normalizeIDs(raw []string) SpreadsheetIDList {
	out := make(SpreadsheetIDList, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, id := range raw {
		trimmed := strings.TrimSpace(id)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SheetsConfig configures the Google Sheets sink side of the pipeline.
// The sink is optional: an empty credentials file or ID list disables it.
type SheetsConfig struct {
	CredentialsFile string            `yaml:"credentialsFile"`
	SpreadsheetIDs  SpreadsheetIDList `yaml:"spreadsheetIDs"`
}

// ScheduleConfig holds the two cron expressions, one per job kind.
type ScheduleConfig struct {
	FetchCron   string `yaml:"fetchCron"`
	PublishCron string `yaml:"publishCron"`
}

// TelemetryConfig configures the OTLP metrics exporter.
type TelemetryConfig struct {
	OTLPEndpoint  string `yaml:"otlpEndpoint"`
	ServiceName   string `yaml:"serviceName"`
	OTLPInsecure  bool   `yaml:"otlpInsecure"`
	EnableMetrics bool   `yaml:"enableMetrics"`
}

// AppConfig is the unified application configuration sourced from YAML.
// It is constructed once at process start and passed by value into
// component constructors; components never read ambient globals.
type AppConfig struct {
	Environment Environment     `yaml:"environment"`
	Provider    ProviderConfig  `yaml:"provider"`
	Database    DatabaseConfig  `yaml:"database"`
	Sheets      SheetsConfig    `yaml:"sheets"`
	Schedule    ScheduleConfig  `yaml:"schedule"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	Verbose     bool            `yaml:"verbose"`
}

// Load reads and validates an AppConfig from the provided YAML file.
func Load(configPath string) (AppConfig, error) {
	reader, closer, err := openConfigFile(configPath)
	if err != nil {
		return AppConfig{}, err
	}
	defer closer()

	bytes, err := io.ReadAll(reader)
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config: %w", err)
	}

	// Secrets like the provider API key are injected through the
	// environment rather than committed in the file.
	return Parse([]byte(os.ExpandEnv(string(bytes))))
}

// Parse decodes, normalises, and validates raw YAML configuration bytes.
func Parse(raw []byte) (AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c *AppConfig) normalise() {
	c.Environment = Environment(strings.ToLower(strings.TrimSpace(string(c.Environment))))
	if c.Environment == "" {
		c.Environment = EnvDev
	}

	c.Provider.BaseURL = strings.TrimSpace(c.Provider.BaseURL)
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = defaultProviderURL
	}
	c.Provider.APIKey = strings.TrimSpace(c.Provider.APIKey)
	if c.Provider.RequestTimeout <= 0 {
		c.Provider.RequestTimeout = defaultRequestTimeout
	}

	c.Database.DSN = strings.TrimSpace(c.Database.DSN)

	c.Sheets.CredentialsFile = strings.TrimSpace(c.Sheets.CredentialsFile)

	c.Schedule.FetchCron = strings.TrimSpace(c.Schedule.FetchCron)
	if c.Schedule.FetchCron == "" {
		c.Schedule.FetchCron = defaultFetchCron
	}
	c.Schedule.PublishCron = strings.TrimSpace(c.Schedule.PublishCron)
	if c.Schedule.PublishCron == "" {
		c.Schedule.PublishCron = defaultPublishCron
	}

	c.Telemetry.OTLPEndpoint = strings.TrimSpace(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = strings.TrimSpace(c.Telemetry.ServiceName)
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultServiceName
	}
}

// Validate performs semantic validation on the configuration.
func (c AppConfig) Validate() error {
	switch c.Environment {
	case EnvDev, EnvStaging, EnvProd:
	default:
		return fmt.Errorf("environment must be one of dev, staging, prod")
	}

	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider apiKey required")
	}
	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("provider requestTimeout must be > 0")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn required")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Schedule.FetchCron); err != nil {
		return fmt.Errorf("schedule fetchCron %q: %w", c.Schedule.FetchCron, err)
	}
	if _, err := parser.Parse(c.Schedule.PublishCron); err != nil {
		return fmt.Errorf("schedule publishCron %q: %w", c.Schedule.PublishCron, err)
	}

	if len(c.Sheets.SpreadsheetIDs) > 0 && c.Sheets.CredentialsFile == "" {
		return fmt.Errorf("sheets credentialsFile required when spreadsheetIDs configured")
	}

	return nil
}

// SinkEnabled reports whether the Google Sheets publish path is configured.
func (c AppConfig) SinkEnabled() bool {
	return len(c.Sheets.SpreadsheetIDs) > 0 && c.Sheets.CredentialsFile != ""
}

func openConfigFile(path string) (io.Reader, func(), error) {
	candidate := strings.TrimSpace(path)
	candidate = filepath.Clean(candidate)

	file, err := os.Open(candidate) // #nosec G304 -- path is operator controlled.
	if err != nil {
		return nil, nil, fmt.Errorf("open app config: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
