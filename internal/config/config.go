package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
)

// Configuration is passed explicitly into every component at construction
// time. Nothing below internal/api reads the environment on its own.
type Configuration struct {
	Server   ServerConfig   `json:"server"`
	Security SecurityConfig `json:"security"`
	SMTP     SMTPConfig     `json:"smtp"`
	Logging  LoggingConfig  `json:"logging"`
	Database DatabaseConfig `json:"database"`
	Storage  StorageConfig  `json:"storage"`
	Render   RenderConfig   `json:"render"`
	Audit    AuditConfig    `json:"audit"`
}

type ServerConfig struct {
	Port         string        `json:"port"`
	ClientURL    string        `json:"client_url"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

type SecurityConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	TokenTTL  time.Duration `json:"token_ttl"`
	InviteTTL time.Duration `json:"invite_ttl"`
}

type SMTPConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type DatabaseConfig struct {
	Host            string `json:"host"`
	Port            string `json:"port"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	Name            string `json:"name"`
	SSLMode         string `json:"ssl_mode"`
	MaxIdleConns    int    `json:"max_idle_conns"`
	MaxOpenConns    int    `json:"max_open_conns"`
	ConnMaxLifetime int    `json:"conn_max_lifetime"`
}

type StorageConfig struct {
	UploadDir string `json:"upload_dir"`
}

// RenderConfig carries the legacy display-box fallback applied to signatures
// recorded before display dimensions were persisted. Transforms through this
// box are degraded-accuracy and logged as such.
type RenderConfig struct {
	FallbackDisplayWidth float64 `json:"fallback_display_width"`
	FallbackAspectRatio  float64 `json:"fallback_aspect_ratio"`
}

type AuditConfig struct {
	BufferSize int `json:"buffer_size"`
}

// Default returns the built-in configuration.
func Default() *Configuration {
	return &Configuration{
		Server: ServerConfig{
			Port:         "5001",
			ClientURL:    "http://localhost:3000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Security: SecurityConfig{
			JWTSecret: "yoursecretkey",
			TokenTTL:  7 * 24 * time.Hour,
			InviteTTL: 7 * 24 * time.Hour,
		},
		SMTP: SMTPConfig{
			Enabled: false,
			From:    "noreply@example.com",
		},
		Logging: LoggingConfig{
			Level: "development",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			Username:        "postgres",
			Password:        "password",
			Name:            "signflow",
			SSLMode:         "disable",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: 300,
		},
		Storage: StorageConfig{
			UploadDir: "uploads",
		},
		Render: RenderConfig{
			FallbackDisplayWidth: 600,
			FallbackAspectRatio:  1.41421356,
		},
		Audit: AuditConfig{
			BufferSize: 256,
		},
	}
}

// Load builds the configuration from defaults, an optional JSON file and
// environment overrides, in that order.
func Load() (*Configuration, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Configuration) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.ClientURL, "CLIENT_URL")
	setString(&cfg.Security.JWTSecret, "JWT_SECRET")
	setString(&cfg.SMTP.Host, "SMTP_HOST")
	setString(&cfg.SMTP.Port, "SMTP_PORT")
	setString(&cfg.SMTP.Username, "SMTP_USER")
	setString(&cfg.SMTP.Password, "SMTP_PASS")
	setString(&cfg.SMTP.From, "SMTP_FROM")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.Username, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Storage.UploadDir, "UPLOAD_DIR")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	if os.Getenv("SMTP_HOST") != "" {
		cfg.SMTP.Enabled = true
	}
}

// LogConfig records the effective configuration with secrets redacted.
func LogConfig(cfg *Configuration, logger *zap.Logger) {
	logger.Info("Application configuration",
		zap.String("port", cfg.Server.Port),
		zap.String("client_url", cfg.Server.ClientURL),
		zap.Duration("read_timeout", cfg.Server.ReadTimeout),
		zap.Duration("write_timeout", cfg.Server.WriteTimeout),
		zap.String("database_host", cfg.Database.Host),
		zap.String("database_name", cfg.Database.Name),
		zap.String("upload_dir", cfg.Storage.UploadDir),
		zap.Bool("smtp_enabled", cfg.SMTP.Enabled),
		zap.Float64("fallback_display_width", cfg.Render.FallbackDisplayWidth),
		zap.Int("audit_buffer", cfg.Audit.BufferSize),
	)
}
