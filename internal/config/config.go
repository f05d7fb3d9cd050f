package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

var envReplacer = strings.NewReplacer(".", "_")

// ErrInvalid marks configuration problems detected before any send starts.
var ErrInvalid = errors.New("invalid configuration")

// ---- Root ----

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Pacing     PacingConfig     `mapstructure:"pacing"`
	WhatsApp   WhatsAppConfig   `mapstructure:"whatsapp"`
	Recipients RecipientsConfig `mapstructure:"recipients"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	MySQL      DatabaseConfig   `mapstructure:"mysql"`
	ClickHouse DatabaseConfig   `mapstructure:"clickhouse"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
}

// ---- Leaf structs ----

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"` // console | json
}

type PacingConfig struct {
	DelayMin  time.Duration  `mapstructure:"delay_min"`
	DelayMax  time.Duration  `mapstructure:"delay_max"`
	TypingMin time.Duration  `mapstructure:"typing_min"`
	TypingMax time.Duration  `mapstructure:"typing_max"`
	Cooldown  CooldownConfig `mapstructure:"cooldown"`
}

type CooldownConfig struct {
	FailThreshold int           `mapstructure:"fail_threshold"` // 0 disables
	Pause         time.Duration `mapstructure:"pause"`
}

type WhatsAppConfig struct {
	URL          string          `mapstructure:"url"`
	Headless     bool            `mapstructure:"headless"`
	ProfileDir   string          `mapstructure:"profile_dir"`
	LoginTimeout time.Duration   `mapstructure:"login_timeout"`
	WaitTimeout  time.Duration   `mapstructure:"wait_timeout"`
	Selectors    SelectorsConfig `mapstructure:"selectors"`
}

type SelectorsConfig struct {
	SearchBox string   `mapstructure:"search_box"`
	Composer  []string `mapstructure:"composer"`
}

type RecipientsConfig struct {
	Normalize   bool   `mapstructure:"normalize"`
	CountryCode string `mapstructure:"country_code"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the status server
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	LockKey     string        `mapstructure:"lock_key"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (WABULK_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isMissingFile(err) {
				return Config{}, fmt.Errorf("%w: read %s: %v", ErrInvalid, path, err)
			}
		}
	}

	// env override (WABULK_*), nested keys use "_" (WABULK_PACING_DELAY_MIN)
	v.SetEnvPrefix("WABULK")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

// Validate checks the values that must hold before a run may start.
func (c Config) Validate() error {
	if c.Pacing.DelayMin < 0 || c.Pacing.DelayMax < 0 {
		return fmt.Errorf("%w: delay bounds must be >= 0 (min=%s max=%s)", ErrInvalid, c.Pacing.DelayMin, c.Pacing.DelayMax)
	}
	if c.Pacing.DelayMin > c.Pacing.DelayMax {
		return fmt.Errorf("%w: delay min %s is greater than max %s", ErrInvalid, c.Pacing.DelayMin, c.Pacing.DelayMax)
	}
	if c.Pacing.TypingMin < 0 || c.Pacing.TypingMin > c.Pacing.TypingMax {
		return fmt.Errorf("%w: typing delay range [%s, %s]", ErrInvalid, c.Pacing.TypingMin, c.Pacing.TypingMax)
	}
	if c.Pacing.Cooldown.FailThreshold < 0 || c.Pacing.Cooldown.Pause < 0 {
		return fmt.Errorf("%w: cooldown values must be >= 0", ErrInvalid)
	}
	if c.WhatsApp.LoginTimeout <= 0 || c.WhatsApp.WaitTimeout <= 0 {
		return fmt.Errorf("%w: whatsapp timeouts must be > 0", ErrInvalid)
	}
	if c.MySQL.Enabled && c.MySQL.DSN == "" {
		return fmt.Errorf("%w: mysql enabled without dsn", ErrInvalid)
	}
	if c.ClickHouse.Enabled && c.ClickHouse.DSN == "" {
		return fmt.Errorf("%w: clickhouse enabled without dsn", ErrInvalid)
	}
	if c.Redis.Enabled && (c.Redis.Addr == "" || c.Redis.LockTTL <= 0) {
		return fmt.Errorf("%w: redis lock needs addr and lock_ttl", ErrInvalid)
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("%w: kafka enabled without brokers/topic", ErrInvalid)
	}
	return nil
}

func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
