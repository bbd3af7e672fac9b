package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/session-scheduler/internal/logging"
)

const minSessionSecretLength = 16

// Config captures environment driven configuration values for the scheduler service.
type Config struct {
	HTTPPort           int
	SQLiteDSN          string
	SessionSecret      string
	SessionTTL         time.Duration
	Location           *time.Location
	NewRoleCanSchedule bool
	LogLevel           slog.Level
	BootstrapAdmin     string
}

// LoadDotEnv loads key/value pairs from the given .env files into the process
// environment without overriding variables that are already set. Files that do
// not exist are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	return nil
}

// Load parses configuration values from the current process environment.
//
// Optional values fall back to defaults. Every missing or malformed key is
// collected so operators see the whole list in one error.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:   8080,
		SQLiteDSN:  "scheduler.db",
		SessionTTL: 24 * time.Hour,
		Location:   time.UTC,
		LogLevel:   slog.LevelInfo,
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	if portValue := strings.TrimSpace(os.Getenv("SCHEDULER_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "SCHEDULER_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SCHEDULER_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("SCHEDULER_SESSION_SECRET")); secret == "" {
		missing = append(missing, "SCHEDULER_SESSION_SECRET")
	} else if len(secret) < minSessionSecretLength {
		invalid = append(invalid, "SCHEDULER_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if ttlValue := strings.TrimSpace(os.Getenv("SCHEDULER_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "SCHEDULER_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if tz := strings.TrimSpace(os.Getenv("SCHEDULER_TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_TIMEZONE")
		} else {
			cfg.Location = loc
		}
	}

	if flag := strings.TrimSpace(os.Getenv("SCHEDULER_NEW_ROLE_CAN_SCHEDULE")); flag != "" {
		allowed, err := strconv.ParseBool(flag)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_NEW_ROLE_CAN_SCHEDULE")
		} else {
			cfg.NewRoleCanSchedule = allowed
		}
	}

	if levelValue := os.Getenv("SCHEDULER_LOG_LEVEL"); strings.TrimSpace(levelValue) != "" {
		level, err := logging.ParseLevel(levelValue)
		if err != nil {
			invalid = append(invalid, "SCHEDULER_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	cfg.BootstrapAdmin = strings.ToLower(strings.TrimSpace(os.Getenv("SCHEDULER_BOOTSTRAP_ADMIN_EMAIL")))

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variable values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
