package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"sewamonitor/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Source     SourceConfig     `yaml:"source"`
	Redis      RedisConfig      `yaml:"redis"`
	Notify     NotifyConfig     `yaml:"notify"`
	API        APIConfig        `yaml:"api"`
	Exports    ExportConfig     `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// MonitorConfig holds the cadences and the alert policy.
type MonitorConfig struct {
	SlowCadence    time.Duration `yaml:"slow_cadence"`
	FastCadence    time.Duration `yaml:"fast_cadence"`
	AlertThreshold time.Duration `yaml:"alert_threshold"`
}

type SourceConfig struct {
	Kind         string        `yaml:"kind"`
	BaseURL      string        `yaml:"base_url"`
	SnapshotPath string        `yaml:"snapshot_path"`
	APIKey       string        `yaml:"api_key"`
	Timeout      time.Duration `yaml:"timeout"`
	DatabasePath string        `yaml:"database_path"`
}

type RedisConfig struct {
	Address     string        `yaml:"address"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	SnapshotKey string        `yaml:"snapshot_key"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
}

type NotifyConfig struct {
	QueueSize    int    `yaml:"queue_size"`
	ToastOutput  string `yaml:"toast_output"`
	Bell         bool   `yaml:"bell"`
	RecentAlerts int    `yaml:"recent_alerts"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Port           int           `yaml:"port"`
	Reflection     bool          `yaml:"reflection"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type ExportConfig struct {
	SheetUnits   string `yaml:"sheet_units"`
	SheetRentals string `yaml:"sheet_rentals"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; missing file is not an error
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceHTTP:
		if strings.TrimSpace(c.Source.BaseURL) == "" {
			return errors.New("source.base_url is required for http source")
		}
	case SourceSQLite:
		if strings.TrimSpace(c.Source.DatabasePath) == "" {
			return errors.New("source.database_path is required for sqlite source")
		}
	default:
		return fmt.Errorf("unknown source.kind %q", c.Source.Kind)
	}

	return c.Monitor.Validate()
}

// Validate checks the cadence and threshold relationship.
func (m MonitorConfig) Validate() error {
	if m.SlowCadence <= 0 || m.FastCadence <= 0 {
		return errors.New("monitor cadences must be positive")
	}
	if m.FastCadence > m.SlowCadence {
		return fmt.Errorf("monitor.fast_cadence %s exceeds slow_cadence %s", m.FastCadence, m.SlowCadence)
	}
	if m.AlertThreshold < time.Minute {
		return fmt.Errorf("monitor.alert_threshold %s must be at least one minute", m.AlertThreshold)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "sewamonitor"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourceHTTP
	}
	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	if c.Source.SnapshotPath == "" {
		c.Source.SnapshotPath = "/api/dashboard"
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = 10 * time.Second
	}

	c.Monitor.ApplyDefaults()

	if c.Redis.SnapshotKey == "" {
		c.Redis.SnapshotKey = "sewamonitor:snapshot"
	}
	if c.Redis.SnapshotTTL == 0 {
		c.Redis.SnapshotTTL = models.DefaultSnapshotCacheTTL
	}

	if c.Notify.QueueSize == 0 {
		c.Notify.QueueSize = models.DefaultNotifyQueueSize
	}
	if c.Notify.ToastOutput == "" {
		c.Notify.ToastOutput = "stdout"
	}
	if c.Notify.RecentAlerts == 0 {
		c.Notify.RecentAlerts = models.DefaultRecentAlerts
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.GRPC.HealthInterval == 0 {
		c.API.GRPC.HealthInterval = 5 * time.Second
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Exports.SheetUnits == "" {
		c.Exports.SheetUnits = "Unit"
	}
	if c.Exports.SheetRentals == "" {
		c.Exports.SheetRentals = "Sewa"
	}
}

// ApplyDefaults fills unset cadences and threshold with the reference values.
func (m *MonitorConfig) ApplyDefaults() {
	if m.SlowCadence == 0 {
		m.SlowCadence = models.DefaultSlowCadence
	}
	if m.FastCadence == 0 {
		m.FastCadence = models.DefaultFastCadence
	}
	if m.AlertThreshold == 0 {
		m.AlertThreshold = models.DefaultAlertThreshold
	}
}
