package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Scope sources understood by ScopeConfig.Source.
const (
	ScopeSourceFile   = "file"
	ScopeSourceSheets = "sheets"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Smartup  SmartupConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Scopes   ScopeConfig
	Sheets   SheetsConfig
	MongoDB  MongoDBConfig
}

// ServerConfig holds admin HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// SmartupConfig contains credentials and transport options for the Smartup API.
type SmartupConfig struct {
	BaseURL      string
	Username     string
	Password     string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

// DatabaseConfig points at the SQLite target database.
type DatabaseConfig struct {
	DSN string
}

// SyncConfig drives the fetch windows and the schedule.
type SyncConfig struct {
	BeginDate    time.Time
	EndDate      *time.Time
	BufferDays   int
	StepDays     int
	Timezone     string
	CronSchedule string
	RunTimeout   time.Duration
}

// ScopeConfig selects where filial/warehouse pairs and condition codes come from.
type ScopeConfig struct {
	Source          string
	WarehousesFile  string
	ConditionsFile  string
	WarehousesRange string
	ConditionsRange string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
// Sheets is optional; it is used when ScopeConfig.Source is "sheets" or when a
// run log range is configured.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	RunLogRange     string
}

// MongoDBConfig holds settings for the optional sync report archive.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether sync reports should be archived in MongoDB.
func (c MongoDBConfig) Enabled() bool {
	return c.URI != ""
}

// Enabled reports whether a Google Sheets client is needed.
func (c SheetsConfig) Enabled() bool {
	return c.SpreadsheetID != ""
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	beginDate, err := parseDate("SYNC_BEGIN_DATE", getenvWithDefault("SYNC_BEGIN_DATE", "01.01.2025"))
	if err != nil {
		return nil, err
	}

	var endDate *time.Time
	if raw := os.Getenv("SYNC_END_DATE"); raw != "" {
		d, err := parseDate("SYNC_END_DATE", raw)
		if err != nil {
			return nil, err
		}
		endDate = &d
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Smartup: SmartupConfig{
			BaseURL:      getenvWithDefault("SMARTUP_BASE_URL", "https://smartup.online"),
			Username:     os.Getenv("SMARTUP_USERNAME"),
			Password:     os.Getenv("SMARTUP_PASSWORD"),
			Timeout:      getenvDuration("SMARTUP_TIMEOUT", 120*time.Second),
			RetryCount:   getenvInt("SMARTUP_RETRY_COUNT", 2),
			RetryWait:    getenvDuration("SMARTUP_RETRY_WAIT", 2*time.Second),
			RetryMaxWait: getenvDuration("SMARTUP_RETRY_MAX_WAIT", 30*time.Second),
		},
		Database: DatabaseConfig{
			DSN: getenvWithDefault("DATABASE_DSN", "file:stocksync.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"),
		},
		Sync: SyncConfig{
			BeginDate:    beginDate,
			EndDate:      endDate,
			BufferDays:   getenvInt("SYNC_BUFFER_DAYS", 3),
			StepDays:     getenvInt("SYNC_STEP_DAYS", 30),
			Timezone:     getenvWithDefault("TIMEZONE", "Asia/Samarkand"),
			CronSchedule: getenvWithDefault("SYNC_CRON_SCHEDULE", "0 3 * * *"),
			RunTimeout:   getenvDuration("SYNC_RUN_TIMEOUT", 2*time.Hour),
		},
		Scopes: ScopeConfig{
			Source:          getenvWithDefault("SCOPE_SOURCE", ScopeSourceFile),
			WarehousesFile:  getenvWithDefault("FILIAL_WAREHOUSE_JSON", "filial_warehouse.json"),
			ConditionsFile:  getenvWithDefault("PRODUCT_CONDITION_JSON", "product_condition.json"),
			WarehousesRange: getenvWithDefault("SCOPE_WAREHOUSES_RANGE", "Scopes!A:D"),
			ConditionsRange: getenvWithDefault("SCOPE_CONDITIONS_RANGE", "Conditions!A:A"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_ID"),
			RunLogRange:     os.Getenv("GOOGLE_SHEET_RUN_LOG_RANGE"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "stocksync"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch {
	case c.Smartup.BaseURL == "":
		return errors.New("SMARTUP_BASE_URL must not be empty")
	case c.Smartup.Username == "":
		return errors.New("SMARTUP_USERNAME must be provided")
	case c.Smartup.Password == "":
		return errors.New("SMARTUP_PASSWORD must be provided")
	}

	if c.Smartup.RetryCount < 0 {
		return errors.New("SMARTUP_RETRY_COUNT must not be negative")
	}

	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN must not be empty")
	}

	if c.Sync.BufferDays < 0 {
		return errors.New("SYNC_BUFFER_DAYS must not be negative")
	}
	if c.Sync.StepDays <= 0 {
		return errors.New("SYNC_STEP_DAYS must be positive")
	}
	if c.Sync.EndDate != nil && c.Sync.EndDate.Before(c.Sync.BeginDate) {
		return errors.New("SYNC_END_DATE must not precede SYNC_BEGIN_DATE")
	}
	if c.Sync.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if c.Sync.RunTimeout <= 0 {
		return errors.New("SYNC_RUN_TIMEOUT must be positive")
	}
	if c.Sync.CronSchedule == "" {
		return errors.New("SYNC_CRON_SCHEDULE must be provided")
	}

	switch c.Scopes.Source {
	case ScopeSourceFile:
		if c.Scopes.WarehousesFile == "" || c.Scopes.ConditionsFile == "" {
			return errors.New("FILIAL_WAREHOUSE_JSON and PRODUCT_CONDITION_JSON must be provided")
		}
	case ScopeSourceSheets:
		if !c.Sheets.Enabled() {
			return errors.New("GOOGLE_SHEET_ID must be provided when SCOPE_SOURCE=sheets")
		}
	default:
		return fmt.Errorf("unsupported SCOPE_SOURCE %q", c.Scopes.Source)
	}

	if c.Sheets.Enabled() && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	return nil
}

// Location resolves the configured timezone, falling back to a fixed UTC+5
// offset (Asia/Samarkand has no DST) when tzdata is unavailable.
func (c SyncConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.FixedZone("UTC+5", 5*60*60)
	}
	return loc
}

// Window returns the user requested [begin, end] range; the end defaults to
// today in the configured timezone.
func (c SyncConfig) Window(now time.Time) (time.Time, time.Time) {
	if c.EndDate != nil {
		return c.BeginDate, *c.EndDate
	}
	local := now.In(c.Location())
	return c.BeginDate, time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func parseDate(key, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"02.01.2006", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s must be DD.MM.YYYY or YYYY-MM-DD, got %q", key, value)
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
