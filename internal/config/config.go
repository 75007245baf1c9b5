package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Date policies selectable with DATE_POLICY.
const (
	DatePolicyNone      = "none"
	DatePolicyWeekday   = "weekday"
	DatePolicyAllowlist = "allowlist"
)

// Archive backends selectable with ARCHIVE_KIND.
const (
	ArchiveDir = "dir"
	ArchiveFTP = "ftp"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	RuleSet          string
	DatePolicy       string
	WindowDays       int
	AllowlistPath    string
	AllowlistRefresh time.Duration

	ArchiveKind     string
	ArchiveDir      string
	ArchiveRoot     string
	FTPAddr         string
	FTPUser         string
	FTPPassword     string
	FTPTimeout      time.Duration
	UploadRetries   int
	BreakerFailures int
	BreakerOpenFor  time.Duration

	RegistryPath string

	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s", key))
		}
		return d
	}
	integer := func(key, def string, minimum int) int {
		n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
		if err != nil || n < minimum {
			errs = append(errs, fmt.Errorf("invalid %s: must be an integer >= %d", key, minimum))
		}
		return n
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MaxUploadBytes:  int64(integer("MAX_UPLOAD_BYTES", "67108864", 1)),

		RuleSet:          strings.ToLower(sharedcfg.EnvOrDefault("RULESET", "default")),
		DatePolicy:       strings.ToLower(sharedcfg.EnvOrDefault("DATE_POLICY", DatePolicyWeekday)),
		WindowDays:       integer("WINDOW_DAYS", "3", 0),
		AllowlistPath:    sharedcfg.EnvOrDefault("ALLOWLIST_PATH", ""),
		AllowlistRefresh: duration("ALLOWLIST_REFRESH", "5m"),

		ArchiveKind:     strings.ToLower(sharedcfg.EnvOrDefault("ARCHIVE_KIND", ArchiveDir)),
		ArchiveDir:      sharedcfg.EnvOrDefault("ARCHIVE_DIR", "data/archive"),
		ArchiveRoot:     sharedcfg.EnvOrDefault("ARCHIVE_ROOT", "/forecasts"),
		FTPAddr:         sharedcfg.EnvOrDefault("FTP_ADDR", ""),
		FTPUser:         sharedcfg.EnvOrDefault("FTP_USER", "anonymous"),
		FTPPassword:     sharedcfg.EnvOrDefault("FTP_PASSWORD", ""),
		FTPTimeout:      duration("FTP_TIMEOUT", "30s"),
		UploadRetries:   integer("UPLOAD_RETRIES", "3", 1),
		BreakerFailures: integer("BREAKER_FAILURES", "5", 1),
		BreakerOpenFor:  duration("BREAKER_OPEN_FOR", "30s"),

		RegistryPath: sharedcfg.EnvOrDefault("REGISTRY_PATH", ""),

		KafkaEnabled: sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "forecast-submissions"),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	switch cfg.RuleSet {
	case "default", "period", "weekly":
	default:
		return nil, fmt.Errorf("invalid RULESET %q: want default, period or weekly", cfg.RuleSet)
	}
	switch cfg.DatePolicy {
	case DatePolicyNone, DatePolicyWeekday:
	case DatePolicyAllowlist:
		if cfg.AllowlistPath == "" {
			return nil, errors.New("DATE_POLICY is allowlist but ALLOWLIST_PATH is not set")
		}
	default:
		return nil, fmt.Errorf("invalid DATE_POLICY %q: want none, weekday or allowlist", cfg.DatePolicy)
	}
	switch cfg.ArchiveKind {
	case ArchiveDir:
		if cfg.ArchiveDir == "" {
			return nil, errors.New("ARCHIVE_DIR is required")
		}
	case ArchiveFTP:
		if cfg.FTPAddr == "" {
			return nil, errors.New("ARCHIVE_KIND is ftp but FTP_ADDR is not set")
		}
	default:
		return nil, fmt.Errorf("invalid ARCHIVE_KIND %q: want dir or ftp", cfg.ArchiveKind)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaTopic == "" {
			return nil, errors.New("KAFKA_TOPIC is required")
		}
	}

	return cfg, nil
}
