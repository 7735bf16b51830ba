package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultJWTSecret = "supersecretkey"

	AssignmentRandom   = "random"
	AssignmentBalanced = "balanced"

	PhotosLocal = "local"
	PhotosMinio = "minio"
)

type Config struct {
	Addr           string            `yaml:"addr"`
	JWTSecret      string            `yaml:"jwt_secret"`
	APITimeout     time.Duration     `yaml:"timeout"`
	DatabasePath   string            `yaml:"database_path"`
	TokenDuration  time.Duration     `yaml:"token_duration"`
	MigrateOnStart bool              `yaml:"migrate_on_start"`
	Log            LogConfig         `yaml:"log"`
	Award          AwardConfig       `yaml:"award"`
	Mail           MailConfig        `yaml:"mail"`
	Diagnostics    DiagnosticsConfig `yaml:"diagnostics"`
	Jobs           JobsConfig        `yaml:"jobs"`
	Photos         PhotosConfig      `yaml:"photos"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type AwardConfig struct {
	Year              int    `yaml:"year"`
	CandidatesPerJury int    `yaml:"candidates_per_jury"`
	AssignmentMethod  string `yaml:"assignment_method"`
	PublicVoting      bool   `yaml:"public_voting"`
}

type MailConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	From         string `yaml:"from"`
	AdminAddress string `yaml:"admin_address"`
}

type DiagnosticsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type JobsConfig struct {
	Workers      int           `yaml:"workers"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type PhotosConfig struct {
	Backend string      `yaml:"backend"`
	Dir     string      `yaml:"dir"`
	Minio   MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// LoadConfig builds the configuration from defaults, the environment (after
// loading a .env file from the working directory when present) and the YAML
// file at path, in that order of increasing precedence.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Addr:           getEnv("MT_ADDR", ":8080"),
		JWTSecret:      getEnv("MT_JWT_SECRET", defaultJWTSecret),
		APITimeout:     15 * time.Second,
		DatabasePath:   getEnv("MT_DATABASE_PATH", "trailblazers.db"),
		TokenDuration:  12 * time.Hour,
		MigrateOnStart: getEnvBool("MT_MIGRATE_ON_START", true),
		Log: LogConfig{
			Level:  getEnv("MT_LOG_LEVEL", "info"),
			Format: getEnv("MT_LOG_FORMAT", "json"),
		},
		Award: AwardConfig{
			Year:              getEnvInt("MT_AWARD_YEAR", time.Now().Year()),
			CandidatesPerJury: getEnvInt("MT_CANDIDATES_PER_JURY", 10),
			AssignmentMethod:  getEnv("MT_ASSIGNMENT_METHOD", AssignmentBalanced),
			PublicVoting:      getEnvBool("MT_PUBLIC_VOTING", false),
		},
		Mail: MailConfig{
			Enabled:      getEnvBool("MT_MAIL_ENABLED", false),
			Host:         getEnv("MT_SMTP_HOST", ""),
			Port:         getEnvInt("MT_SMTP_PORT", 587),
			Username:     getEnv("MT_SMTP_USERNAME", ""),
			Password:     getEnv("MT_SMTP_PASSWORD", ""),
			From:         getEnv("MT_MAIL_FROM", "noreply@mobility-trailblazers.com"),
			AdminAddress: getEnv("MT_MAIL_ADMIN", ""),
		},
		Diagnostics: DiagnosticsConfig{
			Enabled:  getEnvBool("MT_DIAGNOSTICS_ENABLED", true),
			Interval: 24 * time.Hour,
			CacheTTL: time.Hour,
		},
		Jobs: JobsConfig{
			Workers:      getEnvInt("MT_JOB_WORKERS", 2),
			PollInterval: 2 * time.Second,
		},
		Photos: PhotosConfig{
			Backend: getEnv("MT_PHOTOS_BACKEND", PhotosLocal),
			Dir:     getEnv("MT_PHOTOS_DIR", "photos"),
			Minio: MinioConfig{
				Endpoint:        getEnv("MT_MINIO_ENDPOINT", ""),
				AccessKeyID:     getEnv("MT_MINIO_ACCESS_KEY", ""),
				SecretAccessKey: getEnv("MT_MINIO_SECRET_KEY", ""),
				Bucket:          getEnv("MT_MINIO_BUCKET", "candidate-photos"),
				UseSSL:          getEnvBool("MT_MINIO_USE_SSL", false),
			},
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether MT_ENV selects the development environment.
func IsDevelopment() bool {
	return strings.EqualFold(os.Getenv("MT_ENV"), "development")
}

// Validate checks required values and fills defaults for optional ones.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must be set")
	}
	if c.JWTSecret == defaultJWTSecret && !IsDevelopment() {
		return errors.New("jwt_secret uses the insecure default; set MT_JWT_SECRET or MT_ENV=development")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path must be set")
	}

	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = 12 * time.Hour
	}

	switch c.Award.AssignmentMethod {
	case "":
		c.Award.AssignmentMethod = AssignmentBalanced
	case AssignmentRandom, AssignmentBalanced:
	default:
		return fmt.Errorf("award.assignment_method %q is not one of random, balanced", c.Award.AssignmentMethod)
	}
	if c.Award.CandidatesPerJury <= 0 {
		c.Award.CandidatesPerJury = 10
	}

	if c.Mail.Enabled && c.Mail.Host == "" {
		return errors.New("mail.host must be set when mail is enabled")
	}
	if c.Mail.Port <= 0 {
		c.Mail.Port = 587
	}

	if c.Diagnostics.Interval <= 0 {
		c.Diagnostics.Interval = 24 * time.Hour
	}
	if c.Diagnostics.CacheTTL <= 0 {
		c.Diagnostics.CacheTTL = time.Hour
	}

	if c.Jobs.Workers <= 0 {
		c.Jobs.Workers = 2
	}
	if c.Jobs.PollInterval <= 0 {
		c.Jobs.PollInterval = 2 * time.Second
	}

	switch c.Photos.Backend {
	case "":
		c.Photos.Backend = PhotosLocal
	case PhotosLocal:
	case PhotosMinio:
		if c.Photos.Minio.Endpoint == "" || c.Photos.Minio.Bucket == "" {
			return errors.New("photos.minio.endpoint and photos.minio.bucket must be set for the minio backend")
		}
	default:
		return fmt.Errorf("photos.backend %q is not one of local, minio", c.Photos.Backend)
	}
	if c.Photos.Backend == PhotosLocal && c.Photos.Dir == "" {
		c.Photos.Dir = "photos"
	}

	return nil
}

// Warnings lists settings that are valid but probably unintended.
func (c *Config) Warnings() []string {
	var w []string
	if c.JWTSecret == defaultJWTSecret {
		w = append(w, "jwt_secret uses the insecure default")
	}
	if !c.Mail.Enabled {
		w = append(w, "mail delivery is disabled; notifications are only logged")
	}
	if c.Mail.Enabled && c.Mail.AdminAddress == "" {
		w = append(w, "mail.admin_address is empty; submission notices are not sent")
	}
	if c.Award.Year <= 0 {
		w = append(w, "award.year is not set")
	}
	return w
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
