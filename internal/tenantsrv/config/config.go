// Package config holds the tenant service configuration, loaded from a TOML
// file at startup.
package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// RegistryConfig holds tenant connection registry settings.
type RegistryConfig struct {
	DialTimeout           string `toml:"dial_timeout"`              // bound on per-schema connection establishment
	MaxConnsPerSchema     int    `toml:"max_conns_per_schema"`      // open connection cap per tenant schema
	MaxIdleConnsPerSchema int    `toml:"max_idle_conns_per_schema"` // idle connection cap per tenant schema
}

// GetDialTimeout returns the dial timeout as a time.Duration.
func (r *RegistryConfig) GetDialTimeout() (time.Duration, error) {
	return time.ParseDuration(r.DialTimeout)
}

// GetDialTimeoutOrDefault returns the dial timeout or panics if the
// configured value is invalid.
func (r *RegistryConfig) GetDialTimeoutOrDefault() time.Duration {
	d, err := r.GetDialTimeout()
	if err != nil {
		panic(fmt.Sprintf("invalid registry dial timeout: %v", err))
	}
	return d
}

// QuotaConfig holds the default quotas assigned to new tenants when the
// create request does not specify them.
type QuotaConfig struct {
	MaxUsers     int   `toml:"max_users"`
	MaxProjects  int   `toml:"max_projects"`
	StorageLimit int64 `toml:"storage_limit"` // bytes
}

// ConfigParam holds all configuration parameters for the tenant service.
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version"`

	// Server configuration
	ServerHostName string `toml:"server_hostname"` // Hostname for the server
	ServerPort     string `toml:"server_port"`     // Port for the server
	HandleCORS     bool   `toml:"handle_cors"`     // Whether to handle CORS

	// Database configuration
	DB struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		DBName   string `toml:"dbname"`
		User     string `toml:"user"`
		Password string `toml:"password"`
		SSLMode  string `toml:"sslmode"`
	} `toml:"db"`

	// Tenant connection registry configuration
	Registry RegistryConfig `toml:"registry"`

	// Default tenant quotas
	Quota QuotaConfig `toml:"quota"`
}

var cfg *ConfigParam

// Config returns the current configuration.
func Config() *ConfigParam {
	return cfg
}

// DSN returns the control-plane database connection string.
func (c *ConfigParam) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.DBName, c.DB.SSLMode)
}

// LoadConfig loads and validates the configuration from the given file.
func LoadConfig(path string) error {
	newCfg := &ConfigParam{}
	if _, err := toml.DecodeFile(path, newCfg); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}
	applyDefaults(newCfg)
	if err := ValidateConfig(newCfg); err != nil {
		return err
	}
	cfg = newCfg
	return nil
}

// ValidateConfig checks that all required configuration values are present
// and valid.
func ValidateConfig(c *ConfigParam) error {
	if c.ServerPort == "" {
		return fmt.Errorf("server port is required")
	}
	if _, err := strconv.Atoi(c.ServerPort); err != nil {
		return fmt.Errorf("invalid server port: %s", c.ServerPort)
	}
	if c.DB.Host == "" || c.DB.DBName == "" || c.DB.User == "" {
		return fmt.Errorf("db host, dbname, and user are required")
	}
	if _, err := c.Registry.GetDialTimeout(); err != nil {
		return fmt.Errorf("invalid registry dial timeout: %w", err)
	}
	return nil
}

func applyDefaults(c *ConfigParam) {
	if c.ServerHostName == "" {
		c.ServerHostName = "0.0.0.0"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 5432
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
	if c.Registry.DialTimeout == "" {
		c.Registry.DialTimeout = "10s"
	}
	if c.Registry.MaxConnsPerSchema == 0 {
		c.Registry.MaxConnsPerSchema = 10
	}
	if c.Registry.MaxIdleConnsPerSchema == 0 {
		c.Registry.MaxIdleConnsPerSchema = 2
	}
	if c.Quota.MaxUsers == 0 {
		c.Quota.MaxUsers = 25
	}
	if c.Quota.MaxProjects == 0 {
		c.Quota.MaxProjects = 50
	}
	if c.Quota.StorageLimit == 0 {
		c.Quota.StorageLimit = 5 << 30
	}
}

var isTest = false

// IsTest reports whether the process runs in test mode.
func IsTest() bool {
	return isTest
}

// TestInit installs an in-memory test configuration. Tests that need the
// control-plane database read connection settings from the environment-side
// defaults below.
func TestInit() {
	isTest = true
	c := &ConfigParam{
		ServerPort: "8678",
	}
	c.DB.Host = "localhost"
	c.DB.DBName = "taskhive_test"
	c.DB.User = "taskhive"
	c.DB.Password = "taskhive"
	applyDefaults(c)
	if err := ValidateConfig(c); err != nil {
		panic(fmt.Errorf("invalid test config: %v", err))
	}
	cfg = c
}
