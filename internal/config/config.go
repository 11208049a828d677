package config

import (
	"fmt"
	"os"
	"strconv"

	"expcalc/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	Admin       AdminConfig
	Calculation CalculationConfig
}

// DatabaseConfig holds the optional ledger connection. An empty URL
// disables the ledger.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether calculations are recorded
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// AdminConfig holds the metrics and pprof listener settings
type AdminConfig struct {
	Port    string
	Enabled bool
}

// CalculationConfig holds the defaults applied to requests that omit them
type CalculationConfig struct {
	SignificanceLevel float64
	PowerLevel        float64
	SRMThreshold      float64
	CurveConcurrency  int
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	calculation, err := loadCalculationConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load calculation configuration")
	}

	config := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server:      *loadServerConfig(),
		Admin:       *loadAdminConfig(),
		Calculation: *calculation,
	}

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),
	}
}

func loadAdminConfig() *AdminConfig {
	return &AdminConfig{
		Port:    getEnvOrDefault("ADMIN_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("ADMIN_ENABLED", true),
	}
}

func loadCalculationConfig() (*CalculationConfig, error) {
	alpha, err := getEnvFloat("DEFAULT_SIGNIFICANCE_LEVEL", 0.05)
	if err != nil {
		return nil, err
	}
	power, err := getEnvFloat("DEFAULT_POWER_LEVEL", 0.80)
	if err != nil {
		return nil, err
	}
	threshold, err := getEnvFloat("SRM_THRESHOLD", 0.001)
	if err != nil {
		return nil, err
	}

	return &CalculationConfig{
		SignificanceLevel: alpha,
		PowerLevel:        power,
		SRMThreshold:      threshold,
		CurveConcurrency:  getEnvIntOrDefault("CURVE_CONCURRENCY", 4),
	}, nil
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if config.Admin.Enabled && config.Admin.Port == config.Server.Port {
		return errors.ConfigInvalid("admin port must differ from server port")
	}

	calc := config.Calculation
	for name, v := range map[string]float64{
		"DEFAULT_SIGNIFICANCE_LEVEL": calc.SignificanceLevel,
		"DEFAULT_POWER_LEVEL":        calc.PowerLevel,
		"SRM_THRESHOLD":              calc.SRMThreshold,
	} {
		if !(v > 0 && v < 1) {
			return errors.ConfigInvalid(fmt.Sprintf("%s must be in (0,1), got %g", name, v))
		}
	}
	if calc.CurveConcurrency < 1 {
		return errors.ConfigInvalid(fmt.Sprintf("CURVE_CONCURRENCY must be positive, got %d", calc.CurveConcurrency))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat rejects malformed values instead of silently using the default.
func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s is not a number: %q", key, value))
	}
	return floatValue, nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
