package common

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Watch   WatchConfig
	Ledger  LedgerConfig
	Fields  FieldsConfig
	Print   PrintConfig
	OCR     OCRConfig
	Journal JournalConfig
	Log     LogConfig
}

// WatchConfig holds folder-watcher configuration
type WatchConfig struct {
	Dir         string
	DocumentExt string
	SettleDelay time.Duration
	InitialScan bool
	QueueSize   int

	// ProcessTimeout bounds one document's processing; zero disables it
	ProcessTimeout time.Duration
}

// LedgerConfig holds the JSON store location
type LedgerConfig struct {
	Path string
}

// FieldsConfig selects the field set the parser runs
type FieldsConfig struct {
	Set      string
	SpecFile string
}

// PrintConfig holds the external print command; an empty Command disables printing
type PrintConfig struct {
	Command string
	Args    []string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Pdftoppm    string
	Tesseract   string
	Lang        string
	TessdataDir string
	DPI         int
	MaxPages    int
	Enhance     bool
}

// JournalConfig holds the optional SQLite attempt journal location
type JournalConfig struct {
	Path string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	watchDir := getEnv("WATCH_DIR", "")
	defaultLedger := "db.json"
	if watchDir != "" {
		defaultLedger = filepath.Join(watchDir, "db.json")
	}

	printCmd, printArgs := splitCommand(getEnvAllowEmpty("PRINT_COMMAND", "lpr"))

	return &Config{
		Watch: WatchConfig{
			Dir:            watchDir,
			DocumentExt:    getEnv("DOC_EXT", "pdf"),
			SettleDelay:    getEnvAsDuration("SETTLE_DELAY", 5*time.Second),
			InitialScan:    getEnvAsBool("INITIAL_SCAN", false),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
		},
		Ledger: LedgerConfig{
			Path: getEnv("LEDGER_PATH", defaultLedger),
		},
		Fields: FieldsConfig{
			Set:      getEnv("FIELD_SET", "standard"),
			SpecFile: getEnv("FIELD_SPEC_FILE", ""),
		},
		Print: PrintConfig{
			Command: printCmd,
			Args:    printArgs,
		},
		OCR: OCRConfig{
			Pdftoppm:    getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:   getEnv("TESSERACT", "tesseract"),
			Lang:        getEnv("TESSERACT_LANG", "eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 0),
			Enhance:     getEnvAsBool("OCR_ENHANCE", true),
		},
		Journal: JournalConfig{
			Path: getEnv("JOURNAL_PATH", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes an unset variable from one explicitly set to "".
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func splitCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	return parts[0], parts[1:]
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	v := NewValidator().
		Field("LEDGER_PATH", c.Ledger.Path, Required).
		Field("DOC_EXT", c.Watch.DocumentExt, Required).
		Field("SETTLE_DELAY", c.Watch.SettleDelay, NonNegativeDuration).
		Field("QUEUE_SIZE", c.Watch.QueueSize, Positive).
		Field("PROCESS_TIMEOUT", c.Watch.ProcessTimeout, NonNegativeDuration).
		Field("OCR_DPI", c.OCR.DPI, Positive).
		Field("LOG_LEVEL", strings.ToLower(c.Log.Level), OneOf("debug", "info", "warn", "error")).
		Field("LOG_FORMAT", strings.ToLower(c.Log.Format), OneOf("text", "json"))
	if c.Fields.SpecFile == "" {
		v.Field("FIELD_SET", c.Fields.Set, Required)
	}
	return v.AsConfigError()
}

// ValidateWatch additionally requires a watch directory.
func (c *Config) ValidateWatch() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return NewValidator().Field("WATCH_DIR", c.Watch.Dir, Required).AsConfigError()
}
