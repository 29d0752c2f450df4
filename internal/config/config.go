package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Path         string `mapstructure:"path"`
	LogMode      bool   `mapstructure:"log_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DiscordConfig struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
	User      string `mapstructure:"user"` // ledger user the channel writes for
}

// MpesaConfig names where pasted M-PESA confirmations are booked.
type MpesaConfig struct {
	Payment string `mapstructure:"payment"`
	Account string `mapstructure:"account"`
}

type LockConfig struct {
	Backend   string        `mapstructure:"backend"` // local or redis
	RedisAddr string        `mapstructure:"redis_addr"`
	Expiry    time.Duration `mapstructure:"expiry"`
	Tries     int           `mapstructure:"tries"`
}

type RetryConfig struct {
	Attempts int `mapstructure:"attempts"`
}

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Log      LogConfig      `mapstructure:"log"`
	Currency string         `mapstructure:"currency"`
	Discord  DiscordConfig  `mapstructure:"discord"`
	Mpesa    MpesaConfig    `mapstructure:"mpesa"`
	Lock     LockConfig     `mapstructure:"lock"`
	Retry    RetryConfig    `mapstructure:"retry"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "data/wallet.db")
	v.SetDefault("database.log_mode", false)
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("currency", "KES")
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.channel_id", "")
	v.SetDefault("discord.user", "")
	v.SetDefault("mpesa.payment", "M-PESA")
	v.SetDefault("mpesa.account", "M-PESA")
	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.redis_addr", "")
	v.SetDefault("lock.expiry", 10*time.Second)
	v.SetDefault("lock.tries", 32)
	v.SetDefault("retry.attempts", 3)
}

// Load reads .env (if present), the optional YAML file at path and WALLET_* environment
// variables, e.g. WALLET_DATABASE_PATH or WALLET_DISCORD_TOKEN.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WALLET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is not set")
	}
	if c.Discord.Token != "" {
		if c.Discord.ChannelID == "" {
			return fmt.Errorf("discord channel ID is not set")
		}
		if c.Discord.User == "" {
			return fmt.Errorf("discord ledger user is not set")
		}
	}
	switch c.Lock.Backend {
	case "local":
	case "redis":
		if c.Lock.RedisAddr == "" {
			return fmt.Errorf("redis lock backend needs lock.redis_addr")
		}
	default:
		return fmt.Errorf("unknown lock backend %q", c.Lock.Backend)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1")
	}
	return nil
}
