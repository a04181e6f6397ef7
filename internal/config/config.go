package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"syncheal/internal/model"

	"github.com/spf13/viper"
)

type KeepBothPolicy string

const (
	KeepBothPrompt   KeepBothPolicy = "prompt"
	KeepBothRemember KeepBothPolicy = "remember"
)

type TrashNaming string

const (
	TrashNamingConflict TrashNaming = "conflict"
	TrashNamingOriginal TrashNaming = "original"
)

type Config struct {
	DefaultRoot    string                 `mapstructure:"default_root"`
	TrashDir       string                 `mapstructure:"trash_dir"`
	Sources        []model.ConflictSource `mapstructure:"sources"`
	TextExtensions []string               `mapstructure:"text_extensions"`
	IgnoreList     []string               `mapstructure:"ignore_list"`
	MergeTool      string                 `mapstructure:"merge_tool"`
	Strategy       model.ConflictStrategy `mapstructure:"strategy"`
	WatchStrategy  model.ConflictStrategy `mapstructure:"watch_strategy"`
	KeepBoth       KeepBothPolicy         `mapstructure:"keep_both"`
	TrashNaming    TrashNaming            `mapstructure:"trash_naming"`
	AbortOK        bool                   `mapstructure:"abort_ok"`
	DBPath         string                 `mapstructure:"db_path"`
	DaemonPort     int                    `mapstructure:"daemon_port"`
	Debounce       time.Duration          `mapstructure:"debounce"`
	BufferSize     int                    `mapstructure:"buffer_size"`
}

var Default = Config{
	DefaultRoot:    "~/Notes/",
	TrashDir:       ".Trash-1000",
	Sources:        model.DefaultSources,
	TextExtensions: []string{".txt", ".md", ".json"},
	IgnoreList:     []string{".git", ".stfolder", ".stversions"},
	Strategy:       model.StrategyAsk,
	WatchStrategy:  model.StrategySkip,
	KeepBoth:       KeepBothPrompt,
	TrashNaming:    TrashNamingConflict,
	DBPath:         "syncheal.db",
	DaemonPort:     9011,
	Debounce:       2 * time.Second,
	BufferSize:     100,
}

// Dir returns ~/.syncheal, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}

	dir := filepath.Join(home, ".syncheal")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config dir: %w", err)
	}

	return dir, nil
}

// Load reads configPath when given, otherwise config.yaml from Dir. A missing
// default config file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("SYNCHEAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.AddConfigPath(dir)

		if err := v.ReadInConfig(); err != nil {
			if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Strategy = model.ConflictStrategy(strings.ToUpper(string(cfg.Strategy)))
	cfg.WatchStrategy = model.ConflictStrategy(strings.ToUpper(string(cfg.WatchStrategy)))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !filepath.IsAbs(cfg.DBPath) {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = filepath.Join(dir, cfg.DBPath)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if !c.Strategy.Valid() {
		return fmt.Errorf("invalid strategy: %s", c.Strategy)
	}
	if !c.WatchStrategy.Valid() || c.WatchStrategy == model.StrategyAsk {
		return fmt.Errorf("invalid watch_strategy: %s", c.WatchStrategy)
	}
	if c.KeepBoth != KeepBothPrompt && c.KeepBoth != KeepBothRemember {
		return fmt.Errorf("invalid keep_both: %s", c.KeepBoth)
	}
	if c.TrashNaming != TrashNamingConflict && c.TrashNaming != TrashNamingOriginal {
		return fmt.Errorf("invalid trash_naming: %s", c.TrashNaming)
	}
	// The trash must be a single directory directly inside the root.
	if !filepath.IsLocal(c.TrashDir) || c.TrashDir == "." ||
		strings.ContainsRune(c.TrashDir, filepath.Separator) || strings.ContainsRune(c.TrashDir, '/') {
		return fmt.Errorf("invalid trash_dir: %q", c.TrashDir)
	}
	if len(c.Sources) == 0 {
		return errors.New("no conflict sources configured")
	}
	for _, s := range c.Sources {
		if s.Name == "" || s.Marker == "" {
			return fmt.Errorf("conflict source needs a name and a marker: %+v", s)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_root", Default.DefaultRoot)
	v.SetDefault("trash_dir", Default.TrashDir)
	v.SetDefault("sources", Default.Sources)
	v.SetDefault("text_extensions", Default.TextExtensions)
	v.SetDefault("ignore_list", Default.IgnoreList)
	v.SetDefault("merge_tool", Default.MergeTool)
	v.SetDefault("strategy", Default.Strategy)
	v.SetDefault("watch_strategy", Default.WatchStrategy)
	v.SetDefault("keep_both", Default.KeepBoth)
	v.SetDefault("trash_naming", Default.TrashNaming)
	v.SetDefault("abort_ok", Default.AbortOK)
	v.SetDefault("db_path", Default.DBPath)
	v.SetDefault("daemon_port", Default.DaemonPort)
	v.SetDefault("debounce", Default.Debounce)
	v.SetDefault("buffer_size", Default.BufferSize)
}
