// Package config loads the YAML configuration shared by the POS binaries.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gartstein/pdv/internal/pos/db"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when POS_CONFIG is not set.
var DefaultPath = filepath.Join("internal", "pos", "config", "config.yaml")

type Config struct {
	GRPCPort     int      `yaml:"GRPC_PORT"`
	HTTPPort     int      `yaml:"HTTP_PORT"`
	AuthPort     int      `yaml:"AUTH_PORT"`
	DBDriver     string   `yaml:"DB_DRIVER"`
	DBPath       string   `yaml:"DB_PATH"`
	DBHost       string   `yaml:"DB_HOST"`
	DBPort       int      `yaml:"DB_PORT"`
	DBUser       string   `yaml:"DB_USER"`
	DBPassword   string   `yaml:"DB_PASSWORD"`
	DBName       string   `yaml:"DB_NAME"`
	DBSSLMode    string   `yaml:"DB_SSLMODE"`
	DBMaxConns   int      `yaml:"DB_MAX_CONNS"`
	DBTimeout    string   `yaml:"DB_CONNECT_TIMEOUT"`
	KafkaBrokers []string `yaml:"KAFKA_BROKERS"`
	Topic        string   `yaml:"TOPIC"`
	AuditGroup   string   `yaml:"AUDIT_GROUP"`
	JWTSecret    string   `yaml:"JWT_SECRET"`
	OTLPEndpoint string   `yaml:"OTLP_ENDPOINT"`
}

// Load reads the file named by POS_CONFIG, or DefaultPath, and applies the
// environment overrides.
func Load() (*Config, error) {
	path := os.Getenv("POS_CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	for key, dst := range map[string]*string{
		"JWT_SECRET":    &c.JWTSecret,
		"DB_PASSWORD":   &c.DBPassword,
		"DB_DRIVER":     &c.DBDriver,
		"DB_PATH":       &c.DBPath,
		"DB_HOST":       &c.DBHost,
		"OTLP_ENDPOINT": &c.OTLPEndpoint,
	} {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("DB_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		c.DBPort = port
	}
	return nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "":
		c.DBDriver = db.DriverPostgres
	case db.DriverPostgres, db.DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBDriver == db.DriverSQLite && c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required with the sqlite driver")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if _, err := c.connectTimeout(); err != nil {
		return err
	}
	return nil
}

func (c *Config) connectTimeout() (time.Duration, error) {
	if c.DBTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.DBTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid DB_CONNECT_TIMEOUT %q: %w", c.DBTimeout, err)
	}
	return d, nil
}

// Database returns the repository settings.
func (c *Config) Database() *db.Config {
	timeout, _ := c.connectTimeout()
	return &db.Config{
		Driver:         c.DBDriver,
		Host:           c.DBHost,
		Port:           c.DBPort,
		User:           c.DBUser,
		Password:       c.DBPassword,
		DBName:         c.DBName,
		SSLMode:        c.DBSSLMode,
		Path:           c.DBPath,
		MaxOpenConns:   c.DBMaxConns,
		ConnectTimeout: timeout,
	}
}
