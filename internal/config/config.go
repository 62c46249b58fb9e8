// Package config loads sqrich settings from a YAML file, SQRICH_* environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sqrich/internal/editor"
	"sqrich/internal/store"
	"sqrich/pkg/richdoc"
	"sqrich/pkg/sqdoc"
)

const (
	EnvPrefix = "SQRICH"
	fileName  = "sqrich"
)

type Config struct {
	Author string `mapstructure:"author"`
	Editor struct {
		HistoryLimit    int           `mapstructure:"history_limit"`
		MergeWindow     time.Duration `mapstructure:"merge_window"`
		UseInitialStyle bool          `mapstructure:"use_initial_style"`
	} `mapstructure:"editor"`
	Codec struct {
		Compress bool   `mapstructure:"compress"`
		Password string `mapstructure:"password"`
	} `mapstructure:"codec"`
	Store struct {
		Dir string `mapstructure:"dir"`
	} `mapstructure:"store"`
	Redis struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		Prefix   string        `mapstructure:"prefix"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"author":       "author",
	"compress":     "codec.compress",
	"password":     "codec.password",
	"store-dir":    "store.dir",
	"redis-addr":   "redis.addr",
	"redis-db":     "redis.db",
	"redis-ttl":    "redis.ttl",
	"log-level":    "log.level",
	"log-format":   "log.format",
	"history":      "editor.history_limit",
	"merge-window": "editor.merge_window",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("author", "")
	v.SetDefault("editor.history_limit", richdoc.DefaultHistoryLimit)
	v.SetDefault("editor.merge_window", richdoc.DefaultMergeWindow)
	v.SetDefault("editor.use_initial_style", false)
	v.SetDefault("codec.compress", false)
	v.SetDefault("codec.password", "")
	v.SetDefault("store.dir", ".")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", store.DefaultKeyPrefix)
	v.SetDefault("redis.ttl", time.Duration(0))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("author", "", "document author")
	fs.Bool("compress", false, "compress saved documents")
	fs.String("password", "", "password for encrypted documents")
	fs.String("store-dir", "", "directory of the file store")
	fs.String("redis-addr", "", "redis address")
	fs.Int("redis-db", 0, "redis database")
	fs.Duration("redis-ttl", 0, "expiry of documents pushed to redis")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-format", "", "text or json")
	fs.Int("history", 0, "undo history limit")
	fs.Duration("merge-window", 0, "typing merge window for undo")
}

// Load reads the configuration. Without an explicit --config the file
// sqrich.yaml is looked up in the working directory and $HOME/.config/sqrich
// and may be absent. Only flags that were set override other sources.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	explicit := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			explicit = f.Value.String()
		}
	}
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(fileName)
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/sqrich")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("config: bind %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

func (c *Config) DocumentOptions() richdoc.Options {
	return richdoc.Options{
		HistoryLimit: c.Editor.HistoryLimit,
		MergePolicy:  richdoc.MergeWithin(c.Editor.MergeWindow),
	}
}

func (c *Config) EditorOptions() editor.Options {
	return editor.Options{UseInitialStyle: c.Editor.UseInitialStyle, Document: c.DocumentOptions()}
}

func (c *Config) SaveOptions() sqdoc.SaveOptions {
	return sqdoc.SaveOptions{
		Compression: c.Codec.Compress,
		Encryption:  sqdoc.EncryptionOptions{Enabled: c.Codec.Password != "", Password: c.Codec.Password},
	}
}

func (c *Config) LoadOptions() sqdoc.LoadOptions {
	return sqdoc.LoadOptions{Password: c.Codec.Password}
}

func (c *Config) StoreCodec() store.Codec {
	return store.Codec{Save: c.SaveOptions(), Load: c.LoadOptions()}
}

func (c *Config) RedisOptions() store.RedisOptions {
	return store.RedisOptions{Prefix: c.Redis.Prefix, TTL: c.Redis.TTL, Codec: c.StoreCodec()}
}
