package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=settlement_db;Username=postgres;Timeout=30;CommandTimeout=30"

type Config struct {
	DatabaseDSN      string
	MigrationsDir    string
	ListenAddr       string
	WebhookSecret    string
	OperatorID       string
	OperatorKeyHash  string
	PayoutAPIBase    string
	PayoutAPIKey     string
	PayoutChain      string
	ERPJournalURL    string
	ERPJournalAPIKey string
	PayoutRate       decimal.Decimal
	MatchTolerance   decimal.Decimal
	StuckThreshold   time.Duration
	MaxRetries       int
	BaseRetryDelay   time.Duration
	FailureThreshold int
	ResetTimeout     time.Duration
	DrainInterval    time.Duration
	AuditInterval    time.Duration
	ERPSyncInterval  time.Duration
}

// fileConfig is the optional YAML overlay for non-secret tuning. Environment
// variables win over file values; secrets come from the environment only.
type fileConfig struct {
	ListenAddr       string  `yaml:"listenAddr"`
	PayoutAPIBase    string  `yaml:"payoutApiBase"`
	PayoutChain      string  `yaml:"payoutChain"`
	PayoutRate       string  `yaml:"payoutRate"`
	MatchTolerance   string  `yaml:"matchTolerance"`
	StuckThreshold   string  `yaml:"stuckThreshold"`
	MaxRetries       int     `yaml:"maxRetries"`
	BaseRetryDelay   string  `yaml:"baseRetryDelay"`
	FailureThreshold int     `yaml:"failureThreshold"`
	ResetTimeout     string  `yaml:"resetTimeout"`
	DrainInterval    string  `yaml:"drainInterval"`
	AuditInterval    string  `yaml:"auditInterval"`
	ERPSyncInterval  string  `yaml:"erpSyncInterval"`
}

func Load() (Config, error) {
	cfg := Config{
		DatabaseDSN:      normalizeConnectionString(defaultConnectionString),
		MigrationsDir:    filepath.Join("src", "migrations"),
		ListenAddr:       ":8080",
		PayoutAPIBase:    "https://api.circle.com",
		PayoutChain:      "ARB",
		PayoutRate:       decimal.RequireFromString("0.90"),
		MatchTolerance:   decimal.RequireFromString("0.01"),
		StuckThreshold:   30 * time.Minute,
		MaxRetries:       3,
		BaseRetryDelay:   time.Minute,
		FailureThreshold: 5,
		ResetTimeout:     time.Minute,
		DrainInterval:    30 * time.Second,
		AuditInterval:    5 * time.Minute,
		ERPSyncInterval:  15 * time.Minute,
	}

	if path := strings.TrimSpace(os.Getenv("RECONCILER_CONFIG_FILE")); path != "" {
		if err := applyFileConfig(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyFileConfig(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}

	if file.ListenAddr != "" {
		cfg.ListenAddr = file.ListenAddr
	}
	if file.PayoutAPIBase != "" {
		cfg.PayoutAPIBase = file.PayoutAPIBase
	}
	if file.PayoutChain != "" {
		cfg.PayoutChain = file.PayoutChain
	}
	if file.MaxRetries > 0 {
		cfg.MaxRetries = file.MaxRetries
	}
	if file.FailureThreshold > 0 {
		cfg.FailureThreshold = file.FailureThreshold
	}

	if err := setDecimal(&cfg.PayoutRate, file.PayoutRate, "payoutRate"); err != nil {
		return err
	}
	if err := setDecimal(&cfg.MatchTolerance, file.MatchTolerance, "matchTolerance"); err != nil {
		return err
	}

	durations := []struct {
		value string
		field *time.Duration
		name  string
	}{
		{file.StuckThreshold, &cfg.StuckThreshold, "stuckThreshold"},
		{file.BaseRetryDelay, &cfg.BaseRetryDelay, "baseRetryDelay"},
		{file.ResetTimeout, &cfg.ResetTimeout, "resetTimeout"},
		{file.DrainInterval, &cfg.DrainInterval, "drainInterval"},
		{file.AuditInterval, &cfg.AuditInterval, "auditInterval"},
		{file.ERPSyncInterval, &cfg.ERPSyncInterval, "erpSyncInterval"},
	}
	for _, d := range durations {
		if err := setDuration(d.field, d.value, d.name); err != nil {
			return err
		}
	}

	return nil
}

func applyEnvConfig(cfg *Config) error {
	if conn := strings.TrimSpace(os.Getenv("DATABASE_DSN")); conn != "" {
		cfg.DatabaseDSN = normalizeConnectionString(conn)
	}
	if addr := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); addr != "" {
		cfg.ListenAddr = addr
	}

	cfg.WebhookSecret = strings.TrimSpace(os.Getenv("WEBHOOK_SECRET"))
	cfg.OperatorID = strings.TrimSpace(os.Getenv("OPERATOR_ID"))
	cfg.OperatorKeyHash = strings.TrimSpace(os.Getenv("OPERATOR_KEY_HASH"))
	cfg.PayoutAPIKey = strings.TrimSpace(os.Getenv("PAYOUT_API_KEY"))
	cfg.ERPJournalURL = strings.TrimSpace(os.Getenv("ERP_JOURNAL_URL"))
	cfg.ERPJournalAPIKey = strings.TrimSpace(os.Getenv("ERP_JOURNAL_API_KEY"))

	if base := strings.TrimSpace(os.Getenv("PAYOUT_API_BASE")); base != "" {
		cfg.PayoutAPIBase = base
	}
	if chain := strings.TrimSpace(os.Getenv("PAYOUT_CHAIN")); chain != "" {
		cfg.PayoutChain = chain
	}

	if err := setDecimal(&cfg.PayoutRate, os.Getenv("PAYOUT_RATE"), "PAYOUT_RATE"); err != nil {
		return err
	}
	if err := setDecimal(&cfg.MatchTolerance, os.Getenv("MATCH_TOLERANCE"), "MATCH_TOLERANCE"); err != nil {
		return err
	}
	if err := setDuration(&cfg.StuckThreshold, os.Getenv("STUCK_THRESHOLD"), "STUCK_THRESHOLD"); err != nil {
		return err
	}
	if err := setDuration(&cfg.BaseRetryDelay, os.Getenv("BASE_RETRY_DELAY"), "BASE_RETRY_DELAY"); err != nil {
		return err
	}
	if err := setDuration(&cfg.ResetTimeout, os.Getenv("RESET_TIMEOUT"), "RESET_TIMEOUT"); err != nil {
		return err
	}

	if raw := strings.TrimSpace(os.Getenv("MAX_RETRIES")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return fmt.Errorf("MAX_RETRIES must be a positive integer, got %q", raw)
		}
		cfg.MaxRetries = value
	}
	if raw := strings.TrimSpace(os.Getenv("FAILURE_THRESHOLD")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return fmt.Errorf("FAILURE_THRESHOLD must be a positive integer, got %q", raw)
		}
		cfg.FailureThreshold = value
	}

	return nil
}

func setDecimal(field *decimal.Decimal, raw, name string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("%s must be a decimal, got %q", name, raw)
	}
	*field = value
	return nil
}

func setDuration(field *time.Duration, raw, name string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s must be a duration, got %q", name, raw)
	}
	*field = value
	return nil
}

func normalizeConnectionString(raw string) string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
