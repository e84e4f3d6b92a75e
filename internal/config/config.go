package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/xxxsen/common/logger"
)

const (
	SessionBackendDB    = "db"
	SessionBackendRedis = "redis"
)

type Config struct {
	Port              int              `json:"port"`
	JWTSecret         string           `json:"jwt_secret"`
	JWTTTLHours       int              `json:"jwt_ttl_hours"`
	PasswordMinLength int              `json:"password_min_length"`
	UploadMaxBytes    int64            `json:"upload_max_bytes"`
	RateLimitSeconds  int              `json:"rate_limit_seconds"`
	CORSAllowlist     []string         `json:"cors_allowlist"`
	Database          DatabaseConfig   `json:"database"`
	Session           SessionConfig    `json:"session"`
	Redis             RedisConfig      `json:"redis"`
	OTP               OTPConfig        `json:"otp"`
	Mail              MailConfig       `json:"mail"`
	FileStore         FileStoreConfig  `json:"file_store"`
	Jobs              JobsConfig       `json:"jobs"`
	LogConfig         logger.LogConfig `json:"log_config"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`

	MaxOpenConns           int `json:"max_open_conns"`
	MaxIdleConns           int `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `json:"conn_max_lifetime_seconds"`
}

type SessionConfig struct {
	Enabled        bool   `json:"enabled"`
	Backend        string `json:"backend"`
	RetentionHours int    `json:"retention_hours"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type OTPConfig struct {
	ExpireMinutes int `json:"expire_minutes"`
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type JobsConfig struct {
	SessionCleanupSpec string `json:"session_cleanup_spec"`
	OTPCleanupSpec     string `json:"otp_cleanup_spec"`
}

// Load reads the JSON config at path, then applies ACCOUNTD_* overrides from
// the environment (a .env file in the working directory is honoured).
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	_ = godotenv.Load()
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("ACCOUNTD_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("ACCOUNTD_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("ACCOUNTD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("ACCOUNTD_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ACCOUNTD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ACCOUNTD_PORT: %w", err)
		}
		cfg.Port = port
	}
	return nil
}

func (cfg *Config) normalize() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.JWTTTLHours <= 0 {
		cfg.JWTTTLHours = 168
	}
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = 6
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 5 * 1024 * 1024
	}
	if cfg.OTP.ExpireMinutes <= 0 {
		cfg.OTP.ExpireMinutes = 10
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Jobs.SessionCleanupSpec == "" {
		cfg.Jobs.SessionCleanupSpec = "*/30 * * * *"
	}
	if cfg.Jobs.OTPCleanupSpec == "" {
		cfg.Jobs.OTPCleanupSpec = "*/30 * * * *"
	}
	if cfg.Session.Enabled {
		cfg.Session.Backend = strings.ToLower(strings.TrimSpace(cfg.Session.Backend))
		if cfg.Session.Backend == "" {
			cfg.Session.Backend = SessionBackendDB
		}
		if cfg.Session.RetentionHours <= 0 {
			cfg.Session.RetentionHours = 168
		}
		switch cfg.Session.Backend {
		case SessionBackendDB:
		case SessionBackendRedis:
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("redis.addr is required for redis session backend")
			}
		default:
			return fmt.Errorf("session.backend must be db or redis")
		}
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.FileStore.Type == "local" && cfg.FileStore.Data == nil {
		cfg.FileStore.Data = map[string]interface{}{"dir": "uploads"}
	}
	if cfg.Mail.Host != "" && cfg.Mail.Port == 0 {
		cfg.Mail.Port = 587
	}
	return nil
}
