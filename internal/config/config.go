// internal/config/config.go - Configuration management
package config

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/image/colornames"

	"github.com/valpere/tile_to_png/internal"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Local   LocalConfig   `mapstructure:"local"`
	Source  SourceConfig  `mapstructure:"source"`
	Render  RenderConfig  `mapstructure:"render"`
	Output  OutputConfig  `mapstructure:"output"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Network NetworkConfig `mapstructure:"network"`
	Logging LoggingConfig `mapstructure:"logging"`
	Cache   CacheConfig   `mapstructure:"cache"`
	HTTP    HTTPConfig    `mapstructure:"http"`
}

// ServerConfig contains upstream tile server configuration for HTTP sources
type ServerConfig struct {
	BaseURL     string            `mapstructure:"base_url"`
	APIKey      string            `mapstructure:"api_key"`
	Headers     map[string]string `mapstructure:"headers"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	MaxRetries  int               `mapstructure:"max_retries"`
	URLTemplate string            `mapstructure:"url_template"`
}

// LocalConfig contains configuration for local tile directories
type LocalConfig struct {
	BasePath     string `mapstructure:"base_path"`
	PathTemplate string `mapstructure:"path_template"`
	Extension    string `mapstructure:"extension"`
	Compressed   bool   `mapstructure:"compressed"`
}

// SourceConfig determines the data source type and behavior
type SourceConfig struct {
	Type        string `mapstructure:"type"`
	DefaultType string `mapstructure:"default_type"`
	AutoDetect  bool   `mapstructure:"auto_detect"`
	Format      string `mapstructure:"format"` // mvt or geojson
}

// RenderConfig controls rasterization
type RenderConfig struct {
	Width            int      `mapstructure:"width"`
	Height           int      `mapstructure:"height"`
	Background       string   `mapstructure:"background"`
	Workers          int      `mapstructure:"workers"`
	Layers           []string `mapstructure:"layers"`
	CoordinateSystem string   `mapstructure:"coordinate_system"`
}

// BackgroundColor resolves the configured SVG colour name, falling back to white
func (r RenderConfig) BackgroundColor() color.Color {
	if c, ok := colornames.Map[strings.ToLower(strings.TrimSpace(r.Background))]; ok {
		return c
	}
	return color.White
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format    string `mapstructure:"format"` // png, geojson or json
	Directory string `mapstructure:"directory"`
	Filename  string `mapstructure:"filename"`
	Pretty    bool   `mapstructure:"pretty"`
	Stdout    bool   `mapstructure:"stdout"`
}

// BatchConfig contains batch processing configuration
type BatchConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	ChunkSize   int           `mapstructure:"chunk_size"`
	Timeout     time.Duration `mapstructure:"timeout"`
	FailOnError bool          `mapstructure:"fail_on_error"`
}

// NetworkConfig contains network-related configuration
type NetworkConfig struct {
	ProxyURL         string        `mapstructure:"proxy_url"`
	UserAgent        string        `mapstructure:"user_agent"`
	KeepAlive        time.Duration `mapstructure:"keep_alive"`
	MaxIdleConns     int           `mapstructure:"max_idle_conns"`
	IdleConnTimeout  time.Duration `mapstructure:"idle_conn_timeout"`
	DisableKeepAlive bool          `mapstructure:"disable_keep_alive"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"` // text (console) or json
	Output   string `mapstructure:"output"`
	Verbose  bool   `mapstructure:"verbose"`
	Progress bool   `mapstructure:"progress"`
}

// CacheConfig selects the rendered tile cache used by the HTTP server
type CacheConfig struct {
	Type      string        `mapstructure:"type"` // none, lru or redis
	Size      int           `mapstructure:"size"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	TTL       time.Duration `mapstructure:"ttl"`
	Prefix    string        `mapstructure:"prefix"`
}

// HTTPConfig configures the tile server listener
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults configures default values for all configuration options
func setDefaults() {
	// Source defaults
	viper.SetDefault("source.type", "auto")
	viper.SetDefault("source.default_type", "http")
	viper.SetDefault("source.auto_detect", true)
	viper.SetDefault("source.format", "mvt")

	// Server defaults
	viper.SetDefault("server.timeout", 30*time.Second)
	viper.SetDefault("server.max_retries", 3)
	viper.SetDefault("server.url_template", "{base_url}/{z}/{x}/{y}.mvt")

	// Local file defaults
	viper.SetDefault("local.path_template", "{base_path}/{z}/{x}/{y}.mvt")
	viper.SetDefault("local.extension", ".mvt")
	viper.SetDefault("local.compressed", false)

	// Render defaults
	viper.SetDefault("render.width", 512)
	viper.SetDefault("render.height", 512)
	viper.SetDefault("render.background", "white")
	viper.SetDefault("render.workers", 4)
	viper.SetDefault("render.coordinate_system", "web-mercator")

	// Output defaults
	viper.SetDefault("output.format", "png")
	viper.SetDefault("output.directory", ".")
	viper.SetDefault("output.pretty", true)
	viper.SetDefault("output.stdout", false)

	// Batch defaults
	viper.SetDefault("batch.concurrency", 10)
	viper.SetDefault("batch.chunk_size", 100)
	viper.SetDefault("batch.timeout", 5*time.Minute)
	viper.SetDefault("batch.fail_on_error", false)

	// Network defaults
	viper.SetDefault("network.user_agent", "TileToPNG/1.0")
	viper.SetDefault("network.keep_alive", 30*time.Second)
	viper.SetDefault("network.max_idle_conns", 100)
	viper.SetDefault("network.idle_conn_timeout", 90*time.Second)
	viper.SetDefault("network.disable_keep_alive", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stderr")
	viper.SetDefault("logging.verbose", false)
	viper.SetDefault("logging.progress", true)

	// Cache defaults
	viper.SetDefault("cache.type", "lru")
	viper.SetDefault("cache.size", 1024)
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.ttl", time.Hour)
	viper.SetDefault("cache.prefix", "tile_to_png")

	// HTTP listener defaults
	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("http.read_timeout", 10*time.Second)
	viper.SetDefault("http.write_timeout", 30*time.Second)
	viper.SetDefault("http.shutdown_timeout", 10*time.Second)
}

// GetTileURL builds a tile URL using the configured template for HTTP sources
func (c *Config) GetTileURL(z, x, y int) string {
	if c.Server.BaseURL == "" {
		return ""
	}
	template := c.Server.URLTemplate
	if template == "" {
		template = "{base_url}/{z}/{x}/{y}.mvt"
	}
	return expandTemplate(template, "{base_url}", strings.TrimRight(c.Server.BaseURL, "/"), z, x, y)
}

func expandTemplate(template, baseKey, base string, z, x, y int) string {
	r := strings.NewReplacer(
		baseKey, base,
		"{z}", fmt.Sprint(z),
		"{x}", fmt.Sprint(x),
		"{y}", fmt.Sprint(y),
	)
	return r.Replace(template)
}

// DetermineSourceType automatically determines the source type based on configuration
func (c *Config) DetermineSourceType() internal.SourceType {
	if !c.Source.AutoDetect {
		if c.Source.Type == "local" {
			return internal.SourceTypeLocal
		}
		return internal.SourceTypeHTTP
	}

	if c.Local.BasePath != "" && c.Server.BaseURL == "" {
		return internal.SourceTypeLocal
	}
	if c.Server.BaseURL != "" && c.Local.BasePath == "" {
		return internal.SourceTypeHTTP
	}

	if c.Source.DefaultType == "local" {
		return internal.SourceTypeLocal
	}
	return internal.SourceTypeHTTP
}
