package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Database DatabaseConfig `yaml:"database" json:"database"`
	Catalog  CatalogConfig  `yaml:"catalog" json:"catalog"`
	Library  LibraryConfig  `yaml:"library" json:"library"`
	Audit    AuditConfig    `yaml:"audit" json:"audit"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host" env:"SHELFSYNC_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" json:"port" env:"SHELFSYNC_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"SHELFSYNC_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"SHELFSYNC_WRITE_TIMEOUT" default:"5m"`
	EnableCORS   bool          `yaml:"enable_cors" json:"enable_cors" env:"SHELFSYNC_ENABLE_CORS" default:"true"`
}

// DatabaseConfig holds connection and pool settings
type DatabaseConfig struct {
	Type            string        `yaml:"type" json:"type" env:"DATABASE_TYPE" default:"sqlite"`
	Host            string        `yaml:"host" json:"host" env:"DB_HOST" default:"localhost"`
	Port            int           `yaml:"port" json:"port" env:"DB_PORT" default:"5432"`
	Username        string        `yaml:"username" json:"username" env:"DB_USER" default:"shelfsync"`
	Password        string        `yaml:"password" json:"-" env:"DB_PASSWORD"`
	Database        string        `yaml:"database" json:"database" env:"DB_NAME" default:"shelfsync"`
	SSLMode         string        `yaml:"ssl_mode" json:"ssl_mode" env:"DB_SSL_MODE" default:"disable"`
	DatabasePath    string        `yaml:"database_path" json:"database_path" env:"SQLITE_PATH"`
	DataDir         string        `yaml:"data_dir" json:"data_dir" env:"SHELFSYNC_DATA_DIR" default:"./data"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" json:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" default:"15m"`
	ConnectRetries  int           `yaml:"connect_retries" json:"connect_retries" env:"DB_CONNECT_RETRIES" default:"5"`
	LogQueries      bool          `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES" default:"false"`
}

// CatalogConfig configures the TMDb client
type CatalogConfig struct {
	APIKey            string        `yaml:"api_key" json:"-" env:"TMDB_API_KEY"`
	BaseURL           string        `yaml:"base_url" json:"base_url" env:"TMDB_BASE_URL" default:"https://api.themoviedb.org/3"`
	ImageBaseURL      string        `yaml:"image_base_url" json:"image_base_url" env:"TMDB_IMAGE_BASE_URL" default:"https://image.tmdb.org/t/p"`
	RequestTimeout    time.Duration `yaml:"request_timeout" json:"request_timeout" env:"TMDB_REQUEST_TIMEOUT" default:"15s"`
	RequestsPerSecond float64       `yaml:"requests_per_second" json:"requests_per_second" env:"TMDB_REQUESTS_PER_SECOND" default:"4"`
	SeasonConcurrency int           `yaml:"season_concurrency" json:"season_concurrency" env:"TMDB_SEASON_CONCURRENCY" default:"4"`
	LogRequests       bool          `yaml:"log_requests" json:"log_requests" env:"TMDB_LOG_REQUESTS" default:"false"`
}

// LibraryConfig holds the on-disk library roots. SharedPath is used for any
// media type whose own root is unset.
type LibraryConfig struct {
	MoviesPath string `yaml:"movies_path" json:"movies_path" env:"MOVIES_PATH"`
	TVPath     string `yaml:"tv_path" json:"tv_path" env:"TV_PATH"`
	SharedPath string `yaml:"shared_path" json:"shared_path" env:"MEDIA_PATH"`
	Watch      bool   `yaml:"watch" json:"watch" env:"LIBRARY_WATCH" default:"true"`
}

// AuditConfig schedules the recurring verification of recently added media
type AuditConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled" env:"AUDIT_ENABLED" default:"true"`
	Schedule    string `yaml:"schedule" json:"schedule" env:"AUDIT_SCHEDULE" default:"@every 6h"`
	WindowHours int    `yaml:"window_hours" json:"window_hours" env:"AUDIT_WINDOW_HOURS" default:"24"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" json:"format" env:"LOG_FORMAT" default:"text"`
}

// Root is a library directory paired with the media type stored in it.
type Root struct {
	Path string
	Type string
}

// RootFor returns the library root for a media type ("movie" or "tv"),
// falling back to the shared root. An empty result means path-dependent
// features are disabled for that type.
func (l LibraryConfig) RootFor(mediaType string) string {
	switch mediaType {
	case "movie":
		if l.MoviesPath != "" {
			return l.MoviesPath
		}
	case "tv":
		if l.TVPath != "" {
			return l.TVPath
		}
	}
	return l.SharedPath
}

// RootTypeMixed marks a root that serves both movies and tv. The type of a
// folder under it is only known once it matches a media row.
const RootTypeMixed = ""

// Roots returns the scan roots in order movies, tv. Unset roots are omitted
// and a path shared by both types is listed once as RootTypeMixed.
func (l LibraryConfig) Roots() []Root {
	var roots []Root
	seen := make(map[string]int)
	for _, t := range []string{"movie", "tv"} {
		p := l.RootFor(t)
		if p == "" {
			continue
		}
		clean := filepath.Clean(p)
		if i, ok := seen[clean]; ok {
			roots[i].Type = RootTypeMixed
			continue
		}
		seen[clean] = len(roots)
		roots = append(roots, Root{Path: p, Type: t})
	}
	return roots
}

// ConfigManager manages application configuration
type ConfigManager struct {
	config     *Config
	configPath string
	mu         sync.RWMutex
}

var (
	globalConfigManager *ConfigManager
	configOnce          sync.Once
)

// GetConfigManager returns the global configuration manager instance
func GetConfigManager() *ConfigManager {
	configOnce.Do(func() {
		globalConfigManager = NewConfigManager()
	})
	return globalConfigManager
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() *ConfigManager {
	return &ConfigManager{config: DefaultConfig()}
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
			EnableCORS:   true,
		},
		Database: DatabaseConfig{
			Type:            "sqlite",
			Host:            "localhost",
			Port:            5432,
			Username:        "shelfsync",
			Database:        "shelfsync",
			SSLMode:         "disable",
			DataDir:         "./data",
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: 15 * time.Minute,
			ConnectRetries:  5,
		},
		Catalog: CatalogConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p",
			RequestTimeout:    15 * time.Second,
			RequestsPerSecond: 4,
			SeasonConcurrency: 4,
		},
		Library: LibraryConfig{
			Watch: true,
		},
		Audit: AuditConfig{
			Enabled:     true,
			Schedule:    "@every 6h",
			WindowHours: 24,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from file and environment variables.
// Precedence: environment, then file, then defaults.
func (cm *ConfigManager) LoadConfig(configPath string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	newConfig := DefaultConfig()

	if configPath != "" && fileExists(configPath) {
		if err := loadFromFile(configPath, newConfig); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(newConfig).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := validateConfig(newConfig); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	applyDerivedConfig(newConfig)

	cm.configPath = configPath
	cm.config = newConfig
	return nil
}

// GetConfig returns a copy of the current configuration
func (cm *ConfigManager) GetConfig() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	configCopy := *cm.config
	return &configCopy
}

// ConfigPath returns the file the configuration was loaded from, if any.
func (cm *ConfigManager) ConfigPath() string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.configPath
}

func loadFromFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, config)
	case ".json":
		return json.Unmarshal(data, config)
	default:
		return fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}
}

// loadStructFromEnv applies `env` tagged overrides. The `default` tags mirror
// DefaultConfig and are informational only.
func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue := os.Getenv(envTag)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Float32, reflect.Float64:
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatVal)
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Database.Type != "sqlite" && config.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}

	if config.Catalog.SeasonConcurrency < 1 {
		return fmt.Errorf("invalid season concurrency: %d", config.Catalog.SeasonConcurrency)
	}

	if config.Catalog.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid catalog rate: %v", config.Catalog.RequestsPerSecond)
	}

	if config.Audit.WindowHours < 1 {
		return fmt.Errorf("invalid audit window: %d hours", config.Audit.WindowHours)
	}

	return nil
}

func applyDerivedConfig(config *Config) {
	if config.Database.DatabasePath == "" && config.Database.Type == "sqlite" {
		config.Database.DatabasePath = filepath.Join(config.Database.DataDir, "shelfsync.db")
	}
	config.Catalog.BaseURL = strings.TrimRight(config.Catalog.BaseURL, "/")
	config.Catalog.ImageBaseURL = strings.TrimRight(config.Catalog.ImageBaseURL, "/")
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Get returns the current global configuration
func Get() *Config {
	return GetConfigManager().GetConfig()
}

// Load loads configuration from the specified path
func Load(configPath string) error {
	return GetConfigManager().LoadConfig(configPath)
}
