// Package config loads petreld configuration from defaults, an optional
// YAML file, and PETREL_* environment variables, in that order of
// precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/petrel-ftp/petrel/internal/bytesize"
	"github.com/petrel-ftp/petrel/internal/logger"
)

// Config is the full petreld configuration tree.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Root    string        `mapstructure:"root" yaml:"root"`
	Auth    AuthConfig    `mapstructure:"auth" yaml:"auth"`
	Logging logger.Config `mapstructure:"logging" yaml:"logging"`
	Status  StatusConfig  `mapstructure:"status" yaml:"status"`
}

// ServerConfig covers the FTP listener and data-channel behavior.
type ServerConfig struct {
	Bind             string            `mapstructure:"bind" yaml:"bind"`
	Port             int               `mapstructure:"port" yaml:"port"`
	Banner           string            `mapstructure:"banner" yaml:"banner"`
	PublicHost       string            `mapstructure:"public_host" yaml:"public_host"`
	IdleTimeout      time.Duration     `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	MaxSessions      int               `mapstructure:"max_sessions" yaml:"max_sessions"`
	PasvPortMin      int               `mapstructure:"pasv_port_min" yaml:"pasv_port_min"`
	PasvPortMax      int               `mapstructure:"pasv_port_max" yaml:"pasv_port_max"`
	DataTimeout      time.Duration     `mapstructure:"data_timeout" yaml:"data_timeout"`
	BandwidthLimit   bytesize.ByteSize `mapstructure:"bandwidth_limit" yaml:"bandwidth_limit"`
	AllowForeignPort bool              `mapstructure:"allow_foreign_port" yaml:"allow_foreign_port"`
}

// Addr joins the bind address and port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Bind, s.Port)
}

// AuthConfig holds the credential list and the failed-login policy.
type AuthConfig struct {
	Credentials   []string      `mapstructure:"credentials" yaml:"credentials"`
	FailureDelay  time.Duration `mapstructure:"failure_delay" yaml:"failure_delay"`
	FailureLimit  int           `mapstructure:"failure_limit" yaml:"failure_limit"`
	FailureWindow time.Duration `mapstructure:"failure_window" yaml:"failure_window"`
}

// StatusConfig controls the optional HTTP endpoint exposing Prometheus
// metrics and a health probe.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Bind    string `mapstructure:"bind" yaml:"bind"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:        "0.0.0.0",
			Port:        2121,
			Banner:      "Petrel FTP",
			IdleTimeout: 5 * time.Minute,
			MaxSessions: 10,
			PasvPortMin: 49152,
			PasvPortMax: 49407,
			DataTimeout: 10 * time.Second,
		},
		Root: "/srv/ftp",
		Auth: AuthConfig{
			FailureDelay:  time.Second,
			FailureLimit:  10,
			FailureWindow: 5 * time.Minute,
		},
		Logging: logger.Config{Level: "info", Format: "text", Output: "stderr"},
		Status:  StatusConfig{Enabled: false, Bind: ":9121"},
	}
}

// Load reads the configuration. With an empty path it searches for
// petrel.yaml in the working directory and /etc/petrel; a missing file is
// fine and leaves the defaults in place. An explicit path must exist.
func Load(path string) (*Config, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// MustLoad is Load for command startup: any error is printed and the
// process exits.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "petreld: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// Save writes cfg to path as YAML. Used by "petreld init"; the file may
// carry credentials, hence the tight mode.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Watch re-parses the file behind path whenever it changes and hands the
// result to onChange. Only the log level may be applied from a reload;
// listeners and credentials are fixed at startup. Without a config file
// Watch is a no-op.
func Watch(path string, log *slog.Logger, onChange func(*Config)) error {
	v, err := newViper(path)
	if err != nil {
		return err
	}
	if v.ConfigFileUsed() == "" {
		return nil
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Op.Has(fsnotify.Write) && !e.Op.Has(fsnotify.Create) {
			return
		}
		cfg, err := unmarshal(v)
		if err != nil {
			log.Warn("config reload failed", "path", e.Name, "error", err)
			return
		}
		log.Info("config reloaded", "path", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

func newViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PETREL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName("petrel")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/petrel")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHooks())); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// decodeHooks restores viper's stock string conversions and adds
// encoding.TextUnmarshaler support so bytesize fields parse from "64K".
func decodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("server.bind", def.Server.Bind)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.banner", def.Server.Banner)
	v.SetDefault("server.public_host", def.Server.PublicHost)
	v.SetDefault("server.idle_timeout", def.Server.IdleTimeout)
	v.SetDefault("server.max_sessions", def.Server.MaxSessions)
	v.SetDefault("server.pasv_port_min", def.Server.PasvPortMin)
	v.SetDefault("server.pasv_port_max", def.Server.PasvPortMax)
	v.SetDefault("server.data_timeout", def.Server.DataTimeout)
	v.SetDefault("server.bandwidth_limit", "0")
	v.SetDefault("server.allow_foreign_port", def.Server.AllowForeignPort)
	v.SetDefault("root", def.Root)
	v.SetDefault("auth.credentials", []string{})
	v.SetDefault("auth.failure_delay", def.Auth.FailureDelay)
	v.SetDefault("auth.failure_limit", def.Auth.FailureLimit)
	v.SetDefault("auth.failure_window", def.Auth.FailureWindow)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output", def.Logging.Output)
	v.SetDefault("status.enabled", def.Status.Enabled)
	v.SetDefault("status.bind", def.Status.Bind)
}
