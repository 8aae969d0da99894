package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mfs-core/mfs_ledger/internal/commission"
)

const (
	defaultAppName         = "MFSLedger"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultSummaryCacheTTL = 30 * time.Second
	defaultAuditSchedule   = "0 */15 * * * *"
	defaultLoginRateLimit  = 5
	defaultCurrency        = "BDT"
	defaultInitialBalance  = 50
	defaultOperatorBalance = 100_000_000
	defaultOperatorName    = "Operator"
	defaultOperatorPhone   = "01900000000"
	devJWTSecret           = "development-only-secret"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Operator identifies the SUPER_ADMIN party that collects operator fees.
type Operator struct {
	Name  string
	Phone string
	Email string
	PIN   string
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	JWTSecret       string
	AccessTokenTTL  time.Duration
	SummaryCacheTTL time.Duration
	AuditSchedule   string
	LoginRateLimit  int

	Currency               string
	InitialBalance         int64
	OperatorInitialBalance int64
	Operator               Operator
	Fees                   commission.Schedule
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:       getEnv("APP_NAME", defaultAppName),
		AppEnv:        strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:          getEnv("PORT", defaultPort),
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AuditSchedule: getEnv("AUDIT_SCHEDULE", defaultAuditSchedule),
		Currency:      strings.ToUpper(getEnv("CURRENCY", defaultCurrency)),
		Operator: Operator{
			Name:  getEnv("OPERATOR_NAME", defaultOperatorName),
			Phone: getEnv("OPERATOR_PHONE", defaultOperatorPhone),
			Email: os.Getenv("OPERATOR_EMAIL"),
			PIN:   os.Getenv("OPERATOR_PIN"),
		},
		Fees: commission.DefaultSchedule(),
	}

	var err error
	if cfg.ShutdownPeriod, err = secondsOrDuration(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = secondsOrDuration(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = getDuration("ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.SummaryCacheTTL, err = getDuration("SUMMARY_CACHE_TTL", defaultSummaryCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.LoginRateLimit, err = getInt("LOGIN_RATE_LIMIT", defaultLoginRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.InitialBalance, err = getInt64("INITIAL_BALANCE", defaultInitialBalance); err != nil {
		return Config{}, err
	}
	if cfg.OperatorInitialBalance, err = getInt64("OPERATOR_INITIAL_BALANCE", defaultOperatorBalance); err != nil {
		return Config{}, err
	}

	if path := os.Getenv("FEE_SCHEDULE_FILE"); path != "" {
		if cfg.Fees, err = LoadFeeSchedule(path); err != nil {
			return Config{}, err
		}
	}
	if err := applyFeeOverrides(&cfg.Fees); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.InitialBalance < 0 || c.OperatorInitialBalance < 0 {
		return fmt.Errorf("initial balances must not be negative")
	}
	if c.LoginRateLimit < 0 {
		return fmt.Errorf("LOGIN_RATE_LIMIT must not be negative")
	}
	if _, err := commission.NewPolicy(c.Fees); err != nil {
		return fmt.Errorf("invalid fee schedule: %w", err)
	}
	if c.IsDev() {
		if c.JWTSecret == "" {
			c.JWTSecret = devJWTSecret
		}
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	return nil
}

// IsDev reports whether the service runs in development mode, where missing
// backing services fall back to in-memory implementations.
func (c Config) IsDev() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "test"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

type feeFile struct {
	SendMoneyFee *int64 `yaml:"send_money_fee"`
	CashOut      struct {
		AgentRate    string `yaml:"agent_rate"`
		OperatorRate string `yaml:"operator_rate"`
	} `yaml:"cash_out"`
}

// LoadFeeSchedule reads a YAML fee schedule. Omitted fields keep their
// defaults. Rates are decimal strings such as "0.01".
func LoadFeeSchedule(path string) (commission.Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return commission.Schedule{}, fmt.Errorf("read fee schedule: %w", err)
	}
	var f feeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return commission.Schedule{}, fmt.Errorf("parse fee schedule %s: %w", path, err)
	}

	s := commission.DefaultSchedule()
	if f.SendMoneyFee != nil {
		s.SendMoneyFee = *f.SendMoneyFee
	}
	if s.CashOutAgentRate, err = parseRate("cash_out.agent_rate", f.CashOut.AgentRate, s.CashOutAgentRate); err != nil {
		return commission.Schedule{}, err
	}
	if s.CashOutOperatorRate, err = parseRate("cash_out.operator_rate", f.CashOut.OperatorRate, s.CashOutOperatorRate); err != nil {
		return commission.Schedule{}, err
	}
	return s, nil
}

func applyFeeOverrides(s *commission.Schedule) error {
	var err error
	if s.SendMoneyFee, err = getInt64("SEND_MONEY_FEE", s.SendMoneyFee); err != nil {
		return err
	}
	if s.CashOutAgentRate, err = parseRate("CASH_OUT_AGENT_RATE", os.Getenv("CASH_OUT_AGENT_RATE"), s.CashOutAgentRate); err != nil {
		return err
	}
	s.CashOutOperatorRate, err = parseRate("CASH_OUT_OPERATOR_RATE", os.Getenv("CASH_OUT_OPERATOR_RATE"), s.CashOutOperatorRate)
	return err
}

func parseRate(name, v string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return d, nil
}

func secondsOrDuration(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	return getDuration(durationKey, fallback)
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
