// internal/config/validation.go - Configuration validation
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/valpere/tile_to_png/internal"
)

// Validate validates the configuration structure and values
func Validate(config *Config) error {
	switch config.DetermineSourceType() {
	case internal.SourceTypeLocal:
		if err := validateLocal(&config.Local); err != nil {
			return fmt.Errorf("local configuration invalid: %w", err)
		}
	default:
		if err := validateServer(&config.Server); err != nil {
			return fmt.Errorf("server configuration invalid: %w", err)
		}
	}

	if err := validateSource(&config.Source); err != nil {
		return fmt.Errorf("source configuration invalid: %w", err)
	}

	if err := validateRender(&config.Render); err != nil {
		return fmt.Errorf("render configuration invalid: %w", err)
	}

	if err := validateOutput(&config.Output); err != nil {
		return fmt.Errorf("output configuration invalid: %w", err)
	}

	if err := validateBatch(&config.Batch); err != nil {
		return fmt.Errorf("batch configuration invalid: %w", err)
	}

	if err := validateNetwork(&config.Network); err != nil {
		return fmt.Errorf("network configuration invalid: %w", err)
	}

	if err := validateLogging(&config.Logging); err != nil {
		return fmt.Errorf("logging configuration invalid: %w", err)
	}

	if err := validateCache(&config.Cache); err != nil {
		return fmt.Errorf("cache configuration invalid: %w", err)
	}

	return nil
}

// validateServer validates server configuration parameters
func validateServer(config *ServerConfig) error {
	if config.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}

	if _, err := url.Parse(config.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}

	if config.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if config.URLTemplate == "" {
		return fmt.Errorf("url_template is required")
	}

	return nil
}

// validateLocal validates local tile directory parameters
func validateLocal(config *LocalConfig) error {
	if config.BasePath == "" {
		return fmt.Errorf("base_path is required")
	}
	return nil
}

// validateSource validates the tile encoding
func validateSource(config *SourceConfig) error {
	validFormats := []string{"mvt", "geojson"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid format: %s, must be one of %v", config.Format, validFormats)
	}
	return nil
}

// validateRender validates rasterization parameters
func validateRender(config *RenderConfig) error {
	if config.Width <= 0 || config.Height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}

	if config.Width > 8192 || config.Height > 8192 {
		return fmt.Errorf("width and height must not exceed 8192")
	}

	if config.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}

	if _, ok := colornames.Map[strings.ToLower(config.Background)]; !ok {
		return fmt.Errorf("unknown background colour: %s", config.Background)
	}

	validSystems := []string{"web-mercator", "wgs84"}
	if !contains(validSystems, config.CoordinateSystem) {
		return fmt.Errorf("invalid coordinate_system: %s, must be one of %v", config.CoordinateSystem, validSystems)
	}

	return nil
}

// validateOutput validates output configuration parameters
func validateOutput(config *OutputConfig) error {
	validFormats := []string{"png", "geojson", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid format: %s, must be one of %v", config.Format, validFormats)
	}

	if !config.Stdout && config.Directory == "" {
		return fmt.Errorf("directory is required when not using stdout")
	}

	return nil
}

// validateBatch validates batch processing configuration parameters
func validateBatch(config *BatchConfig) error {
	if config.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}

	if config.Concurrency > 1000 {
		return fmt.Errorf("concurrency must not exceed 1000")
	}

	if config.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}

	if config.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// validateNetwork validates network configuration parameters
func validateNetwork(config *NetworkConfig) error {
	if config.ProxyURL != "" {
		if _, err := url.Parse(config.ProxyURL); err != nil {
			return fmt.Errorf("invalid proxy_url: %w", err)
		}
	}

	if config.MaxIdleConns < 0 {
		return fmt.Errorf("max_idle_conns must be non-negative")
	}

	if config.UserAgent == "" {
		return fmt.Errorf("user_agent cannot be empty")
	}

	if config.KeepAlive < 0 {
		return fmt.Errorf("keep_alive must be non-negative")
	}

	if config.IdleConnTimeout < 0 {
		return fmt.Errorf("idle_conn_timeout must be non-negative")
	}

	return nil
}

// validateLogging validates logging configuration parameters
func validateLogging(config *LoggingConfig) error {
	validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	if !contains(validLevels, config.Level) {
		return fmt.Errorf("invalid log level: %s, must be one of %v", config.Level, validLevels)
	}

	validFormats := []string{"text", "json"}
	if !contains(validFormats, config.Format) {
		return fmt.Errorf("invalid log format: %s, must be one of %v", config.Format, validFormats)
	}

	if strings.TrimSpace(config.Output) == "" {
		return fmt.Errorf("log output cannot be empty, use stdout, stderr or a file path")
	}

	return nil
}

// validateCache validates the tile cache parameters
func validateCache(config *CacheConfig) error {
	validTypes := []string{"none", "lru", "redis"}
	if !contains(validTypes, config.Type) {
		return fmt.Errorf("invalid cache type: %s, must be one of %v", config.Type, validTypes)
	}

	if strings.EqualFold(config.Type, "lru") && config.Size <= 0 {
		return fmt.Errorf("size must be positive for lru cache")
	}

	if strings.EqualFold(config.Type, "redis") && config.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required for redis cache")
	}

	if config.TTL < 0 {
		return fmt.Errorf("ttl must be non-negative")
	}

	return nil
}

// ValidateLocalTileDirectory checks that the configured base path is a readable directory
func ValidateLocalTileDirectory(config *Config) error {
	info, err := os.Stat(config.Local.BasePath)
	if err != nil {
		return fmt.Errorf("cannot access base_path %s: %w", config.Local.BasePath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("base_path %s is not a directory", config.Local.BasePath)
	}
	return nil
}

// contains checks if a string slice contains a specific string (case-insensitive)
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
