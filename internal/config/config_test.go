package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Pacing.DelayMin)
	assert.Equal(t, 5*time.Second, cfg.Pacing.DelayMax)
	assert.Equal(t, 50*time.Millisecond, cfg.Pacing.TypingMin)
	assert.Equal(t, "https://web.whatsapp.com", cfg.WhatsApp.URL)
	assert.Len(t, cfg.WhatsApp.Selectors.Composer, 3)
	assert.False(t, cfg.MySQL.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileIgnored(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
}

func TestLoad_UserFileAndEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
pacing:
  delay_max: 9s
whatsapp:
  headless: true
`), 0o600))
	t.Setenv("WABULK_PACING_DELAY_MIN", "1s")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Pacing.DelayMin)
	assert.Equal(t, 9*time.Second, cfg.Pacing.DelayMax)
	assert.True(t, cfg.WhatsApp.Headless)
	assert.Equal(t, 150*time.Millisecond, cfg.Pacing.TypingMax, "untouched keys keep defaults")
}

func TestLoad_BrokenFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte("pacing: [oops"), 0o600))

	_, err := Load(p)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"min above max", func(c *Config) { c.Pacing.DelayMin = 10 * time.Second }},
		{"negative min", func(c *Config) { c.Pacing.DelayMin = -time.Second }},
		{"typing inverted", func(c *Config) { c.Pacing.TypingMin = time.Second }},
		{"negative cooldown", func(c *Config) { c.Pacing.Cooldown.FailThreshold = -1 }},
		{"zero wait timeout", func(c *Config) { c.WhatsApp.WaitTimeout = 0 }},
		{"mysql without dsn", func(c *Config) { c.MySQL.Enabled = true }},
		{"clickhouse without dsn", func(c *Config) { c.ClickHouse.Enabled = true }},
		{"redis without ttl", func(c *Config) { c.Redis.Enabled = true; c.Redis.LockTTL = 0 }},
		{"kafka without brokers", func(c *Config) { c.Kafka.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}

	t.Run("equal bounds ok", func(t *testing.T) {
		c := base
		c.Pacing.DelayMin, c.Pacing.DelayMax = 0, 0
		assert.NoError(t, c.Validate())
	})
}
