package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/vytor/flashdeck/internal/logger"
)

type Config struct {
	Addr      string
	DBPath    string
	DecksDir  string
	LogLevel  string
	LogColors bool
	UseSRS    bool
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent.
	_ = godotenv.Load()

	return Config{
		Addr:      envOr("ADDR", "127.0.0.1:8080"),
		DBPath:    envOr("DB_PATH", "file:flashdeck.db"),
		DecksDir:  envOr("DECKS_DIR", "decks"),
		LogLevel:  envOr("LOG_LEVEL", "INFO"),
		LogColors: envBoolOr("LOG_COLORS", true),
		UseSRS:    envBoolOr("USE_SRS", true),
	}
}

// BindFlags registers command-line overrides for cfg on fs. Values already in
// cfg become the flag defaults, so flags win over the environment.
func (cfg *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database file")
	fs.StringVar(&cfg.DecksDir, "decks", cfg.DecksDir, "directory of baseline deck files")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "DEBUG, INFO, WARN or ERROR")
	fs.BoolVar(&cfg.LogColors, "log-colors", cfg.LogColors, "colorize log levels")
	fs.Var(&invertedBool{target: &cfg.UseSRS}, "no-srs", "start with spaced repetition disabled")
	fs.Lookup("no-srs").NoOptDefVal = "true"
}

// Validate reports the first invalid setting.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("ADDR cannot be empty")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if strings.TrimSpace(cfg.DecksDir) == "" {
		return fmt.Errorf("DECKS_DIR cannot be empty")
	}
	if _, ok := logger.LookupLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", cfg.LogLevel)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBoolOr(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.Printf("invalid value for %s=%q, using default %t", key, v, def)
	}
	return def
}

// invertedBool is a pflag.Value that clears target when the flag is set.
type invertedBool struct {
	target *bool
}

func (b *invertedBool) String() string {
	if b.target == nil {
		return "false"
	}
	return strconv.FormatBool(!*b.target)
}

func (b *invertedBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*b.target = !v
	return nil
}

func (b *invertedBool) Type() string { return "bool" }
