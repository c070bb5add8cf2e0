// Package config holds the CLI configuration: defaults, viper loading and
// the settings each component is built from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/tagex/internal/cache"
	"github.com/ppiankov/tagex/internal/logging"
	"github.com/ppiankov/tagex/internal/source"
	"github.com/ppiankov/tagex/pkg/tokenizer"
)

// EnvPrefix prefixes environment overrides, e.g. TAGEX_LOG_LEVEL
const EnvPrefix = "TAGEX"

// Config is the complete configuration
type Config struct {
	Log       logging.Config     `yaml:"log" mapstructure:"log"`
	Tokenizer TokenizerConfig    `yaml:"tokenizer" mapstructure:"tokenizer"`
	Cache     CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Fetch     source.FetchConfig `yaml:"fetch" mapstructure:"fetch"`
	Batch     BatchConfig        `yaml:"batch" mapstructure:"batch"`
	Metrics   MetricsConfig      `yaml:"metrics" mapstructure:"metrics"`
}

// TokenizerConfig mirrors the tokenizer options
type TokenizerConfig struct {
	Window            int           `yaml:"window" mapstructure:"window"`
	RecognizerTimeout time.Duration `yaml:"recognizer_timeout" mapstructure:"recognizer_timeout"`
	MatchTimeout      time.Duration `yaml:"match_timeout" mapstructure:"match_timeout"`
	MergePolicy       string        `yaml:"merge_policy" mapstructure:"merge_policy"` // last-wins or first-wins
	MaxConcurrency    int           `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// CacheConfig selects the token cache backend
type CacheConfig struct {
	Kind string        `yaml:"kind" mapstructure:"kind"` // none, memory, disk, layered
	Dir  string        `yaml:"dir" mapstructure:"dir"`
	TTL  time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// BatchConfig configures batch runs
type BatchConfig struct {
	Concurrency int           `yaml:"concurrency" mapstructure:"concurrency"`
	OutputDir   string        `yaml:"output_dir" mapstructure:"output_dir"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// MetricsConfig configures metric export
type MetricsConfig struct {
	File string `yaml:"file" mapstructure:"file"` // Prometheus text file written after a run; empty disables
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Log: logging.DefaultConfig(),
		Tokenizer: TokenizerConfig{
			Window:            tokenizer.DefaultWindow,
			RecognizerTimeout: time.Second,
			MatchTimeout:      100 * time.Millisecond,
			MergePolicy:       "last-wins",
		},
		Cache: CacheConfig{
			Kind: cache.KindMemory,
			Dir:  defaultCacheDir(),
			TTL:  24 * time.Hour,
		},
		Fetch: source.DefaultFetchConfig(),
		Batch: BatchConfig{
			Concurrency: runtime.NumCPU(),
			OutputDir:   "./tagex-records",
			Timeout:     10 * time.Minute,
		},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tagex")
	}
	return filepath.Join(dir, "tagex")
}

// Dir returns the default configuration directory, $HOME/.tagex
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".tagex"), nil
}

// SetDefaults registers every default on v so environment variables can
// override keys absent from the config file
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("tokenizer.window", d.Tokenizer.Window)
	v.SetDefault("tokenizer.recognizer_timeout", d.Tokenizer.RecognizerTimeout)
	v.SetDefault("tokenizer.match_timeout", d.Tokenizer.MatchTimeout)
	v.SetDefault("tokenizer.merge_policy", d.Tokenizer.MergePolicy)
	v.SetDefault("tokenizer.max_concurrency", d.Tokenizer.MaxConcurrency)
	v.SetDefault("cache.kind", d.Cache.Kind)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.user_agent", d.Fetch.UserAgent)
	v.SetDefault("fetch.max_bytes", d.Fetch.MaxBytes)
	v.SetDefault("fetch.insecure_tls", d.Fetch.InsecureTLS)
	v.SetDefault("fetch.http_proxy", d.Fetch.HTTPProxy)
	v.SetDefault("fetch.https_proxy", d.Fetch.HTTPSProxy)
	v.SetDefault("fetch.no_proxy", d.Fetch.NoProxy)
	v.SetDefault("fetch.respect_robots", d.Fetch.RespectRobots)
	v.SetDefault("fetch.requests_per_second", d.Fetch.RequestsPerSecond)
	v.SetDefault("fetch.burst", d.Fetch.Burst)
	v.SetDefault("batch.concurrency", d.Batch.Concurrency)
	v.SetDefault("batch.output_dir", d.Batch.OutputDir)
	v.SetDefault("batch.timeout", d.Batch.Timeout)
	v.SetDefault("metrics.file", d.Metrics.File)
}

// Load decodes the configuration held by v and validates it
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated settings
func (c Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if _, err := c.Tokenizer.mergePolicy(); err != nil {
		return err
	}
	switch c.Cache.Kind {
	case "", cache.KindNone, cache.KindMemory, cache.KindDisk, cache.KindLayered:
	default:
		return fmt.Errorf("cache kind %q: want none, memory, disk or layered", c.Cache.Kind)
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch concurrency %d is negative", c.Batch.Concurrency)
	}
	return nil
}

// Options converts the tokenizer settings to tokenizer options
func (c TokenizerConfig) Options(logger *zap.Logger) []tokenizer.Option {
	policy, _ := c.mergePolicy()
	return []tokenizer.Option{
		tokenizer.WithWindow(c.Window),
		tokenizer.WithRecognizerTimeout(c.RecognizerTimeout),
		tokenizer.WithMatchTimeout(c.MatchTimeout),
		tokenizer.WithMergePolicy(policy),
		tokenizer.WithMaxConcurrency(c.MaxConcurrency),
		tokenizer.WithLogger(logger),
	}
}

func (c TokenizerConfig) mergePolicy() (tokenizer.MergePolicy, error) {
	switch c.MergePolicy {
	case "", "last-wins":
		return tokenizer.MergeLastWins, nil
	case "first-wins":
		return tokenizer.MergeFirstWins, nil
	default:
		return 0, fmt.Errorf("merge policy %q: want last-wins or first-wins", c.MergePolicy)
	}
}

// NewCache builds the configured token cache; nil when disabled
func (c CacheConfig) NewCache() (cache.Cache, error) {
	return cache.New(c.Kind, c.Dir, c.TTL)
}

// CacheNamespace identifies the settings that change tokenizer output, so
// cached tokens are not shared between differently configured runs
func (c TokenizerConfig) CacheNamespace() string {
	policy := c.MergePolicy
	if policy == "" {
		policy = "last-wins"
	}
	return fmt.Sprintf("w%d/%s", c.Window, policy)
}
