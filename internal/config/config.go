// Package config loads unitclean settings from defaults, an optional
// unitclean.yaml, UNITCLEAN_ environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/nconklindev/unitclean/internal/tableio"
	"github.com/nconklindev/unitclean/internal/types"
)

// EnvPrefix prefixes environment overrides. Sections are separated by a
// double underscore: UNITCLEAN_CLEAN__ON_FLAG=delete.
const EnvPrefix = "UNITCLEAN_"

// DefaultConfigFiles are looked up in the working directory.
var DefaultConfigFiles = []string{"unitclean.yaml", "unitclean.yml"}

// On-flag policies.
const (
	OnFlagAsk    = "ask"
	OnFlagKeep   = "keep"
	OnFlagDelete = "delete"
	OnFlagCancel = "cancel"
)

type Config struct {
	Log    LogConfig    `koanf:"log"`
	Clean  CleanConfig  `koanf:"clean"`
	Server ServerConfig `koanf:"server"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// File receives logs from the terminal UI, which otherwise discards them.
	File string `koanf:"file"`
}

type CleanConfig struct {
	// OnFlag is what happens to rows with disallowed characters: ask the
	// operator, or always keep, delete or cancel.
	OnFlag       string `koanf:"on_flag"`
	OutputDir    string `koanf:"output_dir"`
	WriteRemoved bool   `koanf:"write_removed"`
	DetectHeader bool   `koanf:"detect_header"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	MaxUploadBytes  int64         `koanf:"max_upload_bytes"`
	ReviewTTL       time.Duration `koanf:"review_ttl"`
	WorkDir         string        `koanf:"work_dir"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"log.level":               "info",
		"log.format":              "text",
		"log.file":                "",
		"clean.on_flag":           OnFlagAsk,
		"clean.output_dir":        "",
		"clean.write_removed":     false,
		"clean.detect_header":     false,
		"server.addr":             ":8080",
		"server.max_upload_bytes": int64(32 << 20),
		"server.review_ttl":       "30m",
		"server.work_dir":         "",
		"server.shutdown_timeout": "15s",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-file":      "log.file",
	"on-flag":       "clean.on_flag",
	"output-dir":    "clean.output_dir",
	"write-removed": "clean.write_removed",
	"detect-header": "clean.detect_header",
	"addr":          "server.addr",
	"review-ttl":    "server.review_ttl",
	"work-dir":      "server.work_dir",
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration. cfgFile may be empty; flags may be nil.
// Only flags that were set on the command line override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, used, nil
}

// FixedDecision returns the decision applied to every review, or false when
// the operator is asked.
func (c CleanConfig) FixedDecision() (types.Decision, bool) {
	if c.OnFlag == OnFlagAsk {
		return 0, false
	}
	d, err := types.ParseDecision(c.OnFlag)
	if err != nil {
		return 0, false
	}
	return d, true
}

// ReadOptions returns the table reader options.
func (c CleanConfig) ReadOptions() tableio.Options {
	return tableio.Options{DetectHeader: c.DetectHeader}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	c.Clean.OnFlag = strings.ToLower(strings.TrimSpace(c.Clean.OnFlag))
	switch c.Clean.OnFlag {
	case OnFlagAsk, OnFlagKeep, OnFlagDelete, OnFlagCancel:
	default:
		return fmt.Errorf("invalid clean.on_flag %q: want ask, keep, delete or cancel", c.Clean.OnFlag)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log.format %q: want text or json", c.Log.Format)
	}

	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if c.Server.ReviewTTL < 0 {
		return fmt.Errorf("server.review_ttl must not be negative")
	}

	return nil
}
