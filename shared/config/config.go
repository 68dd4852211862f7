package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendGitHub     = "github"
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
	BackendS3         = "s3"
	BackendRedis      = "redis"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Webhook WebhookConfig
	Content ContentConfig
	Store   StoreConfig
	Log     LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// WebhookConfig holds the CMS delivery settings
type WebhookConfig struct {
	Token       string
	TokenHeader string
}

// ContentConfig holds where the blog content lives inside the store
type ContentConfig struct {
	BasePath string
}

// StoreConfig selects and configures the content store
type StoreConfig struct {
	Backend    string
	GitHub     GitHubConfig
	Filesystem FilesystemConfig
	SQLite     SQLiteConfig
	S3         S3Config
	Redis      RedisConfig
}

type GitHubConfig struct {
	Token          string
	Repo           string // owner/name
	Branch         string // empty means the repository default branch
	APIURL         string // GitHub Enterprise API root; empty for github.com
	CommitterName  string
	CommitterEmail string
	Timeout        time.Duration
}

type FilesystemConfig struct {
	Root string
}

type SQLiteConfig struct {
	Path string
}

type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Prefix       string
	UsePathStyle bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from environment variables, after loading a .env
// file from the working directory if there is one.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Webhook: WebhookConfig{
			Token:       os.Getenv("AUTOMARTICLES_TOKEN"),
			TokenHeader: getEnv("WEBHOOK_TOKEN_HEADER", "access-token"),
		},
		Content: ContentConfig{
			BasePath: getEnv("CONTENT_BASE_PATH", "public/content/blog"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendGitHub)),
			GitHub: GitHubConfig{
				Token:          os.Getenv("GITHUB_TOKEN"),
				Repo:           os.Getenv("GITHUB_REPO"),
				Branch:         os.Getenv("GITHUB_BRANCH"),
				APIURL:         os.Getenv("GITHUB_API_URL"),
				CommitterName:  getEnv("GITHUB_COMMITTER_NAME", "blogsync"),
				CommitterEmail: getEnv("GITHUB_COMMITTER_EMAIL", "blogsync@users.noreply.github.com"),
				Timeout:        getDurationEnv("GITHUB_TIMEOUT", 10*time.Second),
			},
			Filesystem: FilesystemConfig{
				Root: getEnv("FS_ROOT", "."),
			},
			SQLite: SQLiteConfig{
				Path: getEnv("SQLITE_DB_PATH", "./blogsync.db"),
			},
			S3: S3Config{
				Endpoint:     os.Getenv("S3_ENDPOINT"),
				Region:       getEnv("S3_REGION", "us-east-1"),
				AccessKey:    os.Getenv("S3_ACCESS_KEY"),
				SecretKey:    os.Getenv("S3_SECRET_KEY"),
				Bucket:       os.Getenv("S3_BUCKET"),
				Prefix:       os.Getenv("S3_PREFIX"),
				UsePathStyle: getBoolEnv("S3_USE_PATH_STYLE", true),
			},
			Redis: RedisConfig{
				Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
				Password: os.Getenv("REDIS_PASSWORD"),
				DB:       getIntEnv("REDIS_DB", 0),
				Prefix:   getEnv("REDIS_PREFIX", "blogsync:"),
			},
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid. Missing store credentials are
// not an error here; see StoreConfig.Configured.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendGitHub, BackendFilesystem, BackendSQLite, BackendS3, BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of github, filesystem, sqlite, s3, redis; got %q", c.Store.Backend)
	}
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Webhook.TokenHeader == "" {
		return fmt.Errorf("WEBHOOK_TOKEN_HEADER cannot be empty")
	}
	return nil
}

// Configured reports whether the selected backend has the settings it needs,
// and which one is missing if not.
func (s *StoreConfig) Configured() (bool, string) {
	switch s.Backend {
	case BackendGitHub:
		if s.GitHub.Token == "" {
			return false, "GITHUB_TOKEN"
		}
		if s.GitHub.Repo == "" {
			return false, "GITHUB_REPO"
		}
	case BackendFilesystem:
		if s.Filesystem.Root == "" {
			return false, "FS_ROOT"
		}
	case BackendSQLite:
		if s.SQLite.Path == "" {
			return false, "SQLITE_DB_PATH"
		}
	case BackendS3:
		if s.S3.Bucket == "" {
			return false, "S3_BUCKET"
		}
	case BackendRedis:
		if s.Redis.Addr == "" {
			return false, "REDIS_ADDR"
		}
	}
	return true, ""
}

// Address returns the listen address for the HTTP server
func (c *ServerConfig) Address() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
