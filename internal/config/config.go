// Package config loads the bundle server configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	GitHub   GitHubConfig   `yaml:"github"`
	FTP      FTPConfig      `yaml:"ftp"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	// DSN is a postgres connection string. Empty means the in-memory store.
	DSN string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig configures the local file backend.
type StorageConfig struct {
	LocalPath string `yaml:"local_path"`
	// PublicBaseURL is the prefix clients fetch local assets from.
	PublicBaseURL string `yaml:"public_base_url"`
}

type GitHubConfig struct {
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`
	Token   string `yaml:"token"`
	APIBase string `yaml:"api_base"`
}

// FTPConfig covers both plain FTP servers and FTP-speaking NAS appliances;
// NASHost, when set, takes precedence over Host.
type FTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	BasePath string `yaml:"base_path"`
	NASHost  string `yaml:"nas_host"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Port: 3000},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{
			LocalPath:     "data/bundles",
			PublicBaseURL: "http://localhost:3000/files",
		},
	}
}

// Load reads config/server.yaml, falling back to defaults when the file is
// missing, then applies environment overrides.
func Load() (*Config, error) {
	return LoadFromPath(filepath.Join("config", "server.yaml"))
}

// LoadFromPath loads the configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults plus environment is a valid setup.
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Storage.LocalPath, "FILE_LOCAL_STORAGE_PATH")
	setString(&c.Storage.PublicBaseURL, "FILE_PUBLIC_BASE_URL")
	setString(&c.GitHub.Owner, "GIT_OWNER")
	setString(&c.GitHub.Repo, "GIT_REPOSITORY")
	setString(&c.GitHub.Token, "GIT_TOKEN")
	setString(&c.GitHub.APIBase, "GIT_API_BASE")
	setString(&c.FTP.Host, "FTP_HOST")
	setString(&c.FTP.User, "FTP_USER")
	setString(&c.FTP.Password, "FTP_PASSWORD")
	setString(&c.FTP.BasePath, "FTP_BASE_PATH")
	setString(&c.FTP.NASHost, "NAS_HOST")
	setInt(&c.FTP.Port, "FTP_PORT")
	setInt(&c.Server.Port, "PORT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
