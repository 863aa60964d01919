package cfg

import (
	"cmp"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

// DefaultUserAgent identifies as a desktop browser; several sites refuse
// feed and page requests from unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DataDir    string `long:"data-dir" env:"DATA_DIR" default:"./data" description:"Directory holding the configuration document and the seen-entry database"`
	ConfigFile string `long:"config-file" env:"CONFIG_FILE" description:"Configuration document path (default: <data-dir>/config.yml)"`
	DBPath     string `long:"db-path" env:"DB_PATH" description:"Seen-entry SQLite database path (default: <data-dir>/seen.db)"`

	// Application configuration
	Port                 string `long:"port" env:"PORT" default:"5000" description:"HTTP server port"`
	APIAccessKey         string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	AutoStart            bool   `long:"auto-start" env:"AUTO_START" description:"Start feed monitoring on boot"`
	DefaultCheckInterval int    `long:"default-check-interval" env:"DEFAULT_CHECK_INTERVAL" default:"300" description:"Check interval in seconds written to a fresh configuration document"`

	// Outbound HTTP
	UserAgent   string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests"`
	HTTPTimeout int    `long:"http-timeout" env:"HTTP_TIMEOUT" default:"10" description:"Timeout in seconds for feed, page and webhook requests"`
	SendDelay   int    `long:"send-delay-ms" env:"SEND_DELAY_MS" default:"1000" description:"Minimum delay in milliseconds between webhook sends"`

	// Application metadata
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Tokyo)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	LogFile   string `long:"log-file" env:"LOG_FILE" description:"Also write logs to this file, rotated by size"`
	LogFormat string `long:"log-format" env:"LOG_FORMAT" default:"text" choice:"text" choice:"json" description:"Log output format"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.DefaultCheckInterval < 1 {
		return nil, fmt.Errorf("default check interval must be at least 1 second, got %d", raw.DefaultCheckInterval)
	}
	if raw.HTTPTimeout < 1 {
		return nil, fmt.Errorf("http timeout must be at least 1 second, got %d", raw.HTTPTimeout)
	}
	if raw.SendDelay < 0 {
		return nil, fmt.Errorf("send delay must be non-negative, got %d", raw.SendDelay)
	}

	cfg := &Cfg{
		DataDir:              raw.DataDir,
		ConfigFile:           cmp.Or(raw.ConfigFile, filepath.Join(raw.DataDir, "config.yml")),
		DBPath:               cmp.Or(raw.DBPath, filepath.Join(raw.DataDir, "seen.db")),
		Port:                 raw.Port,
		APIAccessKey:         raw.APIAccessKey,
		AutoStart:            raw.AutoStart,
		DefaultCheckInterval: raw.DefaultCheckInterval,
		UserAgent:            cmp.Or(raw.UserAgent, DefaultUserAgent),
		HTTPTimeout:          time.Duration(raw.HTTPTimeout) * time.Second,
		SendDelay:            time.Duration(raw.SendDelay) * time.Millisecond,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		LogFile:              raw.LogFile,
		LogFormat:            raw.LogFormat,
		Version:              GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
