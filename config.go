package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/hickeroar/nbayes/bayes"
	"github.com/hickeroar/nbayes/bayes/features"
	"github.com/hickeroar/nbayes/tokenizer"
)

const defaultSQLQuery = "SELECT category, text FROM samples"

// Config is the service configuration, read from YAML and overridden by flags.
type Config struct {
	Port          string        `yaml:"port"`
	AuthToken     string        `yaml:"authToken"`
	CriticalValue float64       `yaml:"criticalValue"`
	StemLanguage  string        `yaml:"stemLanguage"`
	CaseLanguage  string        `yaml:"caseLanguage"`
	CacheSize     int           `yaml:"cacheSize"`
	Log           LogConfig     `yaml:"log"`
	Dataset       DatasetConfig `yaml:"dataset"`
}

// LogConfig controls log level and optional file rotation.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// DatasetConfig names a dataset to train on at startup. At most one source may be set.
type DatasetConfig struct {
	Dir    string `yaml:"dir"`
	YAML   string `yaml:"yaml"`
	SQLite string `yaml:"sqlite"`
	Query  string `yaml:"query"`
}

func defaultConfig() Config {
	return Config{
		Port:          "8000",
		CriticalValue: features.DefaultCriticalValue,
		CacheSize:     1024,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// decodeConfig overlays YAML settings on top of the defaults.
func decodeConfig(r io.Reader) (Config, error) {
	cfg := defaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.validate()
}

func loadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return decodeConfig(f)
}

// parseConfig reads --config first, then applies any flags set explicitly.
func parseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	configPath := fs.String("config", "", "Path to an optional YAML config file.")
	port := fs.String("port", "8000", "The port the server should listen on.")
	authToken := fs.String("auth-token", "", "Optional bearer token required for API endpoints.")
	criticalValue := fs.Float64("critical-value", features.DefaultCriticalValue, "Chi-square critical value for feature selection.")
	stemLanguage := fs.String("stem-language", "", "Snowball stemming language, empty to disable.")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	if *configPath != "" {
		loaded, err := loadConfigFile(*configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "auth-token":
			cfg.AuthToken = *authToken
		case "critical-value":
			cfg.CriticalValue = *criticalValue
		case "stem-language":
			cfg.StemLanguage = *stemLanguage
		}
	})

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	if cfg.Port == "" {
		return errors.New("config: port must not be empty")
	}
	if cfg.CacheSize < 0 {
		return fmt.Errorf("config: cacheSize must not be negative, got %d", cfg.CacheSize)
	}

	sources := 0
	for _, source := range []string{cfg.Dataset.Dir, cfg.Dataset.YAML, cfg.Dataset.SQLite} {
		if source != "" {
			sources++
		}
	}
	if sources > 1 {
		return errors.New("config: at most one dataset source may be set")
	}
	return nil
}

// tokenizer builds the tokenizer described by the config.
func (cfg Config) tokenizer() (*tokenizer.Tokenizer, error) {
	tag := language.Und
	if cfg.CaseLanguage != "" {
		parsed, err := language.Parse(cfg.CaseLanguage)
		if err != nil {
			return nil, fmt.Errorf("config: caseLanguage: %w", err)
		}
		tag = parsed
	}

	opts := []tokenizer.Option{tokenizer.WithLanguage(tag)}
	if cfg.StemLanguage != "" {
		opts = append(opts, tokenizer.WithStemming(cfg.StemLanguage))
	}
	return tokenizer.New(opts...)
}

// trainOptions returns the classifier defaults described by the config.
func (cfg Config) trainOptions() ([]bayes.TrainOption, error) {
	tok, err := cfg.tokenizer()
	if err != nil {
		return nil, err
	}
	return []bayes.TrainOption{
		bayes.WithCriticalValue(cfg.CriticalValue),
		bayes.WithTokenizer(tok),
	}, nil
}
