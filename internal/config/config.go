package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:8000"
	DefaultRequestTimeout = 30 * time.Second
	DefaultPollInterval   = time.Second
	DefaultMinSizeMB      = 100.0
	DefaultCategory       = "All"
	DefaultSort           = "largest"
)

type Config struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	MinSizeMB      float64       `mapstructure:"min_size_mb"`
	OnlyTemp       bool          `mapstructure:"only_temp"`
	Category       string        `mapstructure:"category"`
	Sort           string        `mapstructure:"sort"`
	Logging        Logging       `mapstructure:"logging"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type Logging struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// New returns a viper instance with defaults and env binding applied. Callers
// bind flags onto it before calling Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("min_size_mb", DefaultMinSizeMB)
	v.SetDefault("only_temp", false)
	v.SetDefault("category", DefaultCategory)
	v.SetDefault("sort", DefaultSort)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetEnvPrefix("BIGKILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file (explicit path or first default candidate that
// exists) into v and returns the normalized result.
func Load(v *viper.Viper, explicit string) (Config, error) {
	path, ok, err := resolveConfigPath(explicit)
	if err != nil {
		return Config{}, err
	}
	if ok {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return normalizeConfig(cfg)
}

func resolveConfigPath(explicit string) (string, bool, error) {
	if explicit != "" {
		if !fileExists(explicit) {
			return "", false, fmt.Errorf("config file %s not found", explicit)
		}
		return explicit, true, nil
	}
	for _, candidate := range defaultConfigPaths() {
		if fileExists(candidate) {
			return candidate, true, nil
		}
	}
	return "", false, nil
}

func defaultConfigPaths() []string {
	paths := []string{".bigkill.yaml"}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "bigkill", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "bigkill", "config.yaml"))
	}
	return paths
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

func normalizeConfig(cfg Config) (Config, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Config{}, fmt.Errorf("config: base_url %q must be an http(s) URL", cfg.BaseURL)
		}
	}
	if cfg.PollInterval <= 0 {
		return Config{}, errors.New("config: poll_interval must be > 0")
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, errors.New("config: request_timeout must be > 0")
	}
	if cfg.MinSizeMB <= 0 || math.IsNaN(cfg.MinSizeMB) || math.IsInf(cfg.MinSizeMB, 0) {
		cfg.MinSizeMB = DefaultMinSizeMB
	}
	switch cfg.Sort {
	case "largest", "smallest":
	case "":
		cfg.Sort = DefaultSort
	default:
		return Config{}, fmt.Errorf("config: sort must be largest or smallest, got %q", cfg.Sort)
	}
	if strings.TrimSpace(cfg.Category) == "" {
		cfg.Category = DefaultCategory
	}
	return cfg, nil
}
