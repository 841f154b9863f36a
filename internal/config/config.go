// Package config reads process settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/famfund/internal/backup"
	"github.com/dukerupert/famfund/internal/model"
)

// Config is the budget app's configuration.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string

	// RemoteURL is the family store's base URL. Empty keeps every session local.
	RemoteURL string
	RatesURL  string

	Partners      []model.Owner
	AlertInterval time.Duration

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	VAPIDPublicKey  string
	VAPIDPrivateKey string

	// Offsite backups run only when the bucket and both keys are set.
	S3Endpoint       string
	S3Bucket         string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	S3Prefix         string
	BackupPassphrase string
	BackupInterval   time.Duration
	BackupRetention  time.Duration
}

// CloudConfig is the family store's configuration.
type CloudConfig struct {
	Port     string
	DBPath   string
	LogLevel string
}

// LoadDotEnv loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() *Config {
	return &Config{
		Port:     getEnv("FAMFUND_PORT", "8080"),
		DBPath:   getEnv("FAMFUND_DB_PATH", "famfund.db"),
		LogLevel: getEnv("FAMFUND_LOG_LEVEL", "info"),

		RemoteURL: strings.TrimRight(getEnv("FAMFUND_REMOTE_URL", ""), "/"),
		RatesURL:  getEnv("FAMFUND_RATES_URL", ""),

		Partners:      parsePartners(getEnv("FAMFUND_PARTNERS", "arthur,valeria")),
		AlertInterval: getEnvDuration("FAMFUND_ALERT_INTERVAL", time.Minute),

		AMQPURL:      getEnv("FAMFUND_AMQP_URL", ""),
		AMQPExchange: getEnv("FAMFUND_AMQP_EXCHANGE", "famfund"),
		AMQPQueue:    getEnv("FAMFUND_AMQP_QUEUE", "budget_alerts"),

		VAPIDPublicKey:  getEnv("FAMFUND_VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("FAMFUND_VAPID_PRIVATE_KEY", ""),

		S3Endpoint:       getEnv("FAMFUND_S3_ENDPOINT", ""),
		S3Bucket:         getEnv("FAMFUND_S3_BUCKET", ""),
		S3Region:         getEnv("FAMFUND_S3_REGION", "us-east-1"),
		S3AccessKey:      getEnv("FAMFUND_S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("FAMFUND_S3_SECRET_KEY", ""),
		S3Prefix:         getEnv("FAMFUND_S3_PREFIX", "famfund"),
		BackupPassphrase: getEnv("FAMFUND_BACKUP_PASSPHRASE", ""),
		BackupInterval:   getEnvDuration("FAMFUND_BACKUP_INTERVAL", 24*time.Hour),
		BackupRetention:  getEnvDuration("FAMFUND_BACKUP_RETENTION", backup.DefaultRetention),
	}
}

func LoadCloud() *CloudConfig {
	return &CloudConfig{
		Port:     getEnv("FAMFUND_CLOUD_PORT", "8090"),
		DBPath:   getEnv("FAMFUND_CLOUD_DB_PATH", "famfund-cloud.db"),
		LogLevel: getEnv("FAMFUND_CLOUD_LOG_LEVEL", "info"),
	}
}

// PushEnabled reports whether both VAPID keys are set.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// S3Enabled reports whether the bucket and both keys are set.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// S3 returns the offsite backup bucket settings.
func (c *Config) S3() backup.S3Config {
	return backup.S3Config{
		Endpoint:  c.S3Endpoint,
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Prefix:    c.S3Prefix,
	}
}

// Validate returns every configuration problem in one error.
func (c *Config) Validate() error {
	var problems []string

	if msg := checkPort(c.Port); msg != "" {
		problems = append(problems, msg)
	}
	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	}

	if c.RemoteURL != "" {
		problems = append(problems, checkURL("remote URL", c.RemoteURL, "http", "https")...)
	}
	if c.RatesURL != "" {
		problems = append(problems, checkURL("rates URL", c.RatesURL, "http", "https")...)
	}

	if len(c.Partners) != 2 {
		problems = append(problems, fmt.Sprintf("partners must name exactly 2 owners, got %d", len(c.Partners)))
	} else if c.Partners[0] == c.Partners[1] {
		problems = append(problems, fmt.Sprintf("partners must be distinct, got %q twice", c.Partners[0]))
	}
	for _, p := range c.Partners {
		if p == "" || p == model.SharedOwner {
			problems = append(problems, fmt.Sprintf("invalid partner %q", p))
		}
	}

	if c.AlertInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid alert interval %v: must be at least 1 second", c.AlertInterval))
	}

	if c.AMQPURL != "" {
		problems = append(problems, checkURL("AMQP URL", c.AMQPURL, "amqp", "amqps")...)
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.VAPIDPublicKey == "") != (c.VAPIDPrivateKey == "") {
		problems = append(problems, "VAPID public and private keys must be set together")
	}

	if c.S3Bucket != "" || c.S3AccessKey != "" || c.S3SecretKey != "" {
		if !c.S3Enabled() {
			problems = append(problems, "S3 bucket, access key and secret key must be set together")
		}
		if c.S3Endpoint != "" {
			problems = append(problems, checkURL("S3 endpoint", c.S3Endpoint, "http", "https")...)
		}
		if len(c.BackupPassphrase) < backup.MinPassphrase {
			problems = append(problems, fmt.Sprintf("backup passphrase must be at least %d characters when S3 is configured", backup.MinPassphrase))
		}
		if c.BackupInterval < time.Minute {
			problems = append(problems, fmt.Sprintf("invalid backup interval %v: must be at least 1 minute", c.BackupInterval))
		}
		if c.BackupRetention < time.Hour {
			problems = append(problems, fmt.Sprintf("invalid backup retention %v: must be at least 1 hour", c.BackupRetention))
		}
	}

	return joinProblems(problems)
}

func (c *CloudConfig) Validate() error {
	var problems []string
	if msg := checkPort(c.Port); msg != "" {
		problems = append(problems, msg)
	}
	if c.DBPath == "" {
		problems = append(problems, "database path cannot be empty")
	}
	return joinProblems(problems)
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
}

func checkPort(port string) string {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Sprintf("invalid port '%s': must be a number", port)
	}
	if n < 1 || n > 65535 {
		return fmt.Sprintf("invalid port %d: must be between 1 and 65535", n)
	}
	return ""
}

func checkURL(name, raw string, schemes ...string) []string {
	u, err := url.Parse(raw)
	if err != nil {
		return []string{fmt.Sprintf("invalid %s '%s': %v", name, raw, err)}
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return []string{fmt.Sprintf("invalid %s scheme '%s': must be one of %v", name, u.Scheme, schemes)}
}

func parsePartners(raw string) []model.Owner {
	var out []model.Owner
	for _, p := range strings.Split(raw, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, model.Owner(p))
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
