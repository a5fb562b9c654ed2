package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string `toml:"db_path"`
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`

	ABCPHost            string `toml:"abcp_host"`
	ABCPUserLogin       string `toml:"abcp_userlogin"`
	ABCPUserPassword    string `toml:"abcp_userpsw"`
	ABCPSearchPath      string `toml:"abcp_search_path"`
	ABCPDistributorPath string `toml:"abcp_distributors_path"`
	ABCPTimeoutMs       int    `toml:"abcp_timeout_ms"`
	ABCPRateLimitRPS    int    `toml:"abcp_rate_limit_rps"`

	Workers           int `toml:"workers"`
	WorkerIntervalSec int `toml:"worker_interval_sec"`
	JobStaleMin       int `toml:"job_stale_min"`

	HTTPHost    string `toml:"http_host"`
	HTTPPort    int    `toml:"http_port"`
	MaxUploadMB int    `toml:"max_upload_mb"`

	LogLevel string `toml:"log_level"`
	LogFile  string `toml:"log_file"`
}

// ABCPConfig is the validated subset the API client needs.
type ABCPConfig struct {
	BaseURL         string
	UserLogin       string
	UserPassword    string
	SearchPath      string
	DistributorPath string
	TimeoutMs       int
	RateLimitRPS    int
}

// ConfigError lists required settings that are missing.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required env vars: " + strings.Join(e.Missing, ", ")
}

// Load reads settings: defaults -> .env -> TOML file -> env vars (env wins).
func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    filepath.Join(cwd, "data", "tender.db"),
		InputDir:  filepath.Join(cwd, "data", "input"),
		OutputDir: filepath.Join(cwd, "out"),

		ABCPSearchPath:      "search/articles/",
		ABCPDistributorPath: "cp/distributors/",
		ABCPTimeoutMs:       30000,
		ABCPRateLimitRPS:    5,

		Workers:           1,
		WorkerIntervalSec: 10,
		JobStaleMin:       60,

		HTTPHost:    "127.0.0.1",
		HTTPPort:    8082,
		MaxUploadMB: 64,

		LogLevel: "info",
		LogFile:  filepath.Join(cwd, "logs", "tender.log"),
	}

	path := getEnv("TENDER_CONFIG", "tender.toml")
	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.InputDir = getEnv("INPUT_DIR", cfg.InputDir)
	cfg.OutputDir = getEnv("OUTPUT_DIR", cfg.OutputDir)

	cfg.ABCPHost = getEnv("ABCP_HOST", cfg.ABCPHost)
	cfg.ABCPUserLogin = getEnv("ABCP_USERLOGIN", cfg.ABCPUserLogin)
	cfg.ABCPUserPassword = getEnv("ABCP_USERPSW", cfg.ABCPUserPassword)
	cfg.ABCPSearchPath = getEnv("ABCP_SEARCH_PATH", cfg.ABCPSearchPath)
	cfg.ABCPDistributorPath = getEnv("ABCP_DISTRIBUTORS_PATH", cfg.ABCPDistributorPath)
	cfg.ABCPTimeoutMs = getEnvInt("ABCP_TIMEOUT_MS", cfg.ABCPTimeoutMs)
	cfg.ABCPRateLimitRPS = getEnvInt("ABCP_RATE_LIMIT_RPS", cfg.ABCPRateLimitRPS)

	cfg.Workers = getEnvInt("TENDER_WORKERS", cfg.Workers)
	cfg.WorkerIntervalSec = getEnvInt("WORKER_INTERVAL_SEC", cfg.WorkerIntervalSec)
	cfg.JobStaleMin = getEnvInt("JOB_STALE_MIN", cfg.JobStaleMin)

	cfg.HTTPHost = getEnv("HTTP_HOST", cfg.HTTPHost)
	cfg.HTTPPort = getEnvInt("HTTP_PORT", cfg.HTTPPort)
	cfg.MaxUploadMB = getEnvInt("MAX_UPLOAD_MB", cfg.MaxUploadMB)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("LOG_FILE", cfg.LogFile)

	return cfg, nil
}

// ABCP validates the API credentials. All three of host, login and
// password must be set; the host gets "https://" when it has no scheme.
func (c Config) ABCP() (ABCPConfig, error) {
	var missing []string
	if strings.TrimSpace(c.ABCPHost) == "" {
		missing = append(missing, "ABCP_HOST")
	}
	if strings.TrimSpace(c.ABCPUserLogin) == "" {
		missing = append(missing, "ABCP_USERLOGIN")
	}
	if strings.TrimSpace(c.ABCPUserPassword) == "" {
		missing = append(missing, "ABCP_USERPSW")
	}
	if len(missing) > 0 {
		return ABCPConfig{}, &ConfigError{Missing: missing}
	}

	return ABCPConfig{
		BaseURL:         NormalizeHost(c.ABCPHost),
		UserLogin:       strings.TrimSpace(c.ABCPUserLogin),
		UserPassword:    strings.TrimSpace(c.ABCPUserPassword),
		SearchPath:      c.ABCPSearchPath,
		DistributorPath: c.ABCPDistributorPath,
		TimeoutMs:       c.ABCPTimeoutMs,
		RateLimitRPS:    c.ABCPRateLimitRPS,
	}, nil
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort) }

func NormalizeHost(host string) string {
	h := strings.TrimSpace(host)
	if !strings.Contains(h, "://") {
		h = "https://" + h
	}
	return strings.TrimRight(h, "/")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
