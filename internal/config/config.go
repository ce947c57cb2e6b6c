// Package config loads node configuration from an optional config file,
// GAMECHAIN_* environment variables and built-in defaults, in that order of
// precedence (env wins over file).
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"gamechain/internal/gametx"
)

const EnvPrefix = "GAMECHAIN"

type Config struct {
	Home       string         `mapstructure:"home"`
	ABCI       ABCIConfig     `mapstructure:"abci"`
	DB         DBConfig       `mapstructure:"db"`
	Log        LogConfig      `mapstructure:"log"`
	EventLog   SinkConfig     `mapstructure:"eventlog"`
	EventIndex SinkConfig     `mapstructure:"eventindex"`
	Describe   DescribeConfig `mapstructure:"describe"`
}

type ABCIConfig struct {
	Addr      string `mapstructure:"addr"`
	Transport string `mapstructure:"transport"` // socket|grpc
}

type DBConfig struct {
	Backend string `mapstructure:"backend"` // goleveldb|memdb
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	Color bool   `mapstructure:"color"`
}

type SinkConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DescribeConfig struct {
	Brief      bool   `mapstructure:"brief"`
	Colon      bool   `mapstructure:"colon"`
	NamePrefix string `mapstructure:"name_prefix"`
	NameSuffix string `mapstructure:"name_suffix"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("home", ".gamechain")
	v.SetDefault("abci.addr", "tcp://127.0.0.1:26658")
	v.SetDefault("abci.transport", "socket")
	v.SetDefault("db.backend", "goleveldb")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.color", true)
	v.SetDefault("eventlog.enabled", true)
	v.SetDefault("eventindex.enabled", true)
	v.SetDefault("describe.brief", false)
	v.SetDefault("describe.colon", true)
	v.SetDefault("describe.name_prefix", "")
	v.SetDefault("describe.name_suffix", "")
}

// Load reads path (if non-empty) into v and decodes the merged result.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given. The
// environment still applies.
func Default() (Config, error) {
	return Load(viper.New(), "")
}

func (c Config) Validate() error {
	var errs []error
	if c.Home == "" {
		errs = append(errs, errors.New("home must be set"))
	}
	switch c.ABCI.Transport {
	case "socket", "grpc":
	default:
		errs = append(errs, fmt.Errorf("abci.transport must be socket or grpc, got %q", c.ABCI.Transport))
	}
	switch c.DB.Backend {
	case "goleveldb", "memdb":
	default:
		errs = append(errs, fmt.Errorf("db.backend must be goleveldb or memdb, got %q", c.DB.Backend))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	return errors.Join(errs...)
}

func (c Config) DescribeOptions() gametx.DescribeOptions {
	return gametx.DescribeOptions{
		Brief: c.Describe.Brief,
		NameWrap: gametx.NameWrap{
			Prefix: c.Describe.NamePrefix,
			Suffix: c.Describe.NameSuffix,
		},
		UseColon: c.Describe.Colon,
	}
}

// NewLogger builds the node logger described by c.
func NewLogger(c LogConfig, w io.Writer) log.Logger {
	opts := []log.Option{log.ColorOption(c.Color)}
	if c.JSON {
		opts = append(opts, log.OutputJSONOption())
	}
	if lvl, err := zerolog.ParseLevel(c.Level); err == nil {
		opts = append(opts, log.LevelOption(lvl))
	}
	return log.NewLogger(w, opts...)
}
