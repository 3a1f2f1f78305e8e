package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nconklindev/unitclean/internal/types"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("on-flag", OnFlagAsk, "")
	fs.String("output-dir", "", "")
	fs.Bool("write-removed", false, "")
	fs.String("addr", ":8080", "")
	fs.String("log-level", "info", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, used, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, used)
	assert.Equal(t, OnFlagAsk, cfg.Clean.OnFlag)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Server.ReviewTTL)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes)
	assert.False(t, cfg.Clean.WriteRemoved)
}

func TestLoad_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unitclean.yaml")
	yaml := `
clean:
  on_flag: keep
  output_dir: /from/file
  write_removed: true
server:
  addr: ":9000"
  review_ttl: 5m
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("UNITCLEAN_CLEAN__ON_FLAG", "delete")
	t.Setenv("UNITCLEAN_SERVER__ADDR", ":9100")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--addr", ":9200"}))

	cfg, used, err := Load(path, fs)
	require.NoError(t, err)

	assert.Equal(t, path, used)
	// file
	assert.Equal(t, "/from/file", cfg.Clean.OutputDir)
	assert.True(t, cfg.Clean.WriteRemoved)
	assert.Equal(t, 5*time.Minute, cfg.Server.ReviewTTL)
	assert.Equal(t, "debug", cfg.Log.Level, "unset flags must not override the file")
	// env over file
	assert.Equal(t, OnFlagDelete, cfg.Clean.OnFlag)
	// flag over env
	assert.Equal(t, ":9200", cfg.Server.Addr)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"Valid", func(*Config) {}, ""},
		{"Policy is case insensitive", func(c *Config) { c.Clean.OnFlag = " DELETE " }, ""},
		{"Unknown policy", func(c *Config) { c.Clean.OnFlag = "skip" }, "clean.on_flag"},
		{"Unknown log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"Zero upload size", func(c *Config) { c.Server.MaxUploadBytes = 0 }, "max_upload_bytes"},
		{"Negative ttl", func(c *Config) { c.Server.ReviewTTL = -time.Second }, "review_ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Log:    LogConfig{Level: "info", Format: "text"},
				Clean:  CleanConfig{OnFlag: OnFlagAsk},
				Server: ServerConfig{MaxUploadBytes: 1, ReviewTTL: time.Minute},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCleanConfig_FixedDecision(t *testing.T) {
	tests := []struct {
		onFlag string
		want   types.Decision
		fixed  bool
	}{
		{OnFlagAsk, 0, false},
		{OnFlagKeep, types.DecisionKeep, true},
		{OnFlagDelete, types.DecisionDelete, true},
		{OnFlagCancel, types.DecisionCancel, true},
	}

	for _, tt := range tests {
		t.Run(tt.onFlag, func(t *testing.T) {
			d, fixed := CleanConfig{OnFlag: tt.onFlag}.FixedDecision()
			assert.Equal(t, tt.fixed, fixed)
			assert.Equal(t, tt.want, d)
		})
	}

	assert.True(t, CleanConfig{DetectHeader: true}.ReadOptions().DetectHeader)
}
