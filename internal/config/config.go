// Package config loads rttaug settings from defaults, a YAML file,
// RTTAUG_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/viper"
	"golang.org/x/text/language"

	"github.com/valpere/rttaug/internal/dataset"
	"github.com/valpere/rttaug/internal/translator"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

const EnvPrefix = "RTTAUG"

// Services are the accepted values of the service key.
var Services = []string{"google", "mymemory", "ollama", "openrouter"}

type Input struct {
	Path      string `mapstructure:"path"`
	IDIndex   int    `mapstructure:"id_index"`
	TextIndex int    `mapstructure:"text_index"`
	Delimiter string `mapstructure:"delimiter"`
}

type Augment struct {
	PrimaryLang        string `mapstructure:"primary_lang"`
	FallbackLang       string `mapstructure:"fallback_lang"`
	OutputPath         string `mapstructure:"output_path"`
	FallbackOutputPath string `mapstructure:"fallback_output_path"`
	StatsPath          string `mapstructure:"stats_path"`
}

type Probe struct {
	OutputPath string   `mapstructure:"output_path"`
	Samples    int      `mapstructure:"samples"`
	Langs      []string `mapstructure:"langs"`
	Delimiter  string   `mapstructure:"delimiter"`
}

type Ledger struct {
	DBPath  string `mapstructure:"db_path"`
	Enabled bool   `mapstructure:"enabled"`
}

type MyMemory struct {
	Email string `mapstructure:"email"`
}

type Ollama struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

type OpenRouter struct {
	APIKey string `mapstructure:"api_key"`
	URL    string `mapstructure:"url"`
	Model  string `mapstructure:"model"`
}

type Config struct {
	LogLevel    string        `mapstructure:"log_level"`
	Service     string        `mapstructure:"service"`
	ProjectID   string        `mapstructure:"project_id"`
	Credentials string        `mapstructure:"credentials"`
	Timeout     time.Duration `mapstructure:"timeout"`
	SourceLang  string        `mapstructure:"source_lang"`

	Input      Input      `mapstructure:"input"`
	Augment    Augment    `mapstructure:"augment"`
	Probe      Probe      `mapstructure:"probe"`
	Ledger     Ledger     `mapstructure:"ledger"`
	MyMemory   MyMemory   `mapstructure:"mymemory"`
	Ollama     Ollama     `mapstructure:"ollama"`
	OpenRouter OpenRouter `mapstructure:"openrouter"`
}

// SetDefaults registers every key with its default so that environment
// variables are picked up for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("service", "google")
	v.SetDefault("project_id", "")
	v.SetDefault("credentials", "")
	v.SetDefault("timeout", 60*time.Second)
	v.SetDefault("source_lang", translator.DefaultSourceLang)

	v.SetDefault("input.path", "original_train.csv")
	v.SetDefault("input.id_index", 0)
	v.SetDefault("input.text_index", 1)
	v.SetDefault("input.delimiter", ",")

	v.SetDefault("augment.primary_lang", "de")
	v.SetDefault("augment.fallback_lang", "ja")
	v.SetDefault("augment.output_path", "new_samples_full.csv")
	v.SetDefault("augment.fallback_output_path", "new_samples_full_with_fallback.csv")
	v.SetDefault("augment.stats_path", "stats.csv")

	v.SetDefault("probe.output_path", "test_langs.tsv")
	v.SetDefault("probe.samples", 50)
	v.SetDefault("probe.langs", []string{"he", "de", "ru", "ja"})
	v.SetDefault("probe.delimiter", "tab")

	v.SetDefault("ledger.db_path", "./data/rttaug.db")
	v.SetDefault("ledger.enabled", true)

	v.SetDefault("mymemory.email", "")
	v.SetDefault("ollama.url", translator.DefaultOllamaURL)
	v.SetDefault("ollama.model", translator.DefaultOllamaModel)
	v.SetDefault("openrouter.api_key", "")
	v.SetDefault("openrouter.url", translator.DefaultOpenRouterURL)
	v.SetDefault("openrouter.model", translator.DefaultOpenRouterModel)
}

// BindEnv maps nested keys such as augment.primary_lang to
// RTTAUG_AUGMENT_PRIMARY_LANG.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// Comma-separated strings from env or flags arrive as one element.
	cfg.Probe.Langs = splitList(cfg.Probe.Langs)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !slices.Contains(Services, c.Service) {
		fail("service must be one of %v, got %q", Services, c.Service)
	}

	for _, l := range []struct{ key, code string }{
		{"source_lang", c.SourceLang},
		{"augment.primary_lang", c.Augment.PrimaryLang},
		{"augment.fallback_lang", c.Augment.FallbackLang},
	} {
		if err := checkLang(l.code); err != nil {
			fail("%s: %v", l.key, err)
		}
	}
	if c.Augment.PrimaryLang != "" && strings.EqualFold(c.Augment.PrimaryLang, c.Augment.FallbackLang) {
		fail("augment.primary_lang and augment.fallback_lang must differ, both are %q", c.Augment.PrimaryLang)
	}

	if c.Input.IDIndex < 0 || c.Input.TextIndex < 0 {
		fail("input.id_index and input.text_index must not be negative")
	}
	if c.Input.IDIndex == c.Input.TextIndex {
		fail("input.id_index and input.text_index must differ, both are %d", c.Input.IDIndex)
	}
	if _, err := ParseDelimiter(c.Input.Delimiter); err != nil {
		fail("input.delimiter: %v", err)
	}
	if _, err := ParseDelimiter(c.Probe.Delimiter); err != nil {
		fail("probe.delimiter: %v", err)
	}

	if c.Probe.Samples < 1 {
		fail("probe.samples must be at least 1, got %d", c.Probe.Samples)
	}
	if len(c.Probe.Langs) == 0 {
		fail("probe.langs must name at least one language")
	}
	for _, code := range c.Probe.Langs {
		if err := checkLang(code); err != nil {
			fail("probe.langs: %v", err)
		}
	}

	for _, o := range []struct{ key, path string }{
		{"augment.output_path", c.Augment.OutputPath},
		{"augment.fallback_output_path", c.Augment.FallbackOutputPath},
		{"augment.stats_path", c.Augment.StatsPath},
		{"probe.output_path", c.Probe.OutputPath},
	} {
		if o.path == "" {
			fail("%s must not be empty", o.key)
		} else if o.path == c.Input.Path {
			fail("%s must not overwrite the input file %s", o.key, c.Input.Path)
		}
	}
	if c.Augment.OutputPath != "" && c.Augment.OutputPath == c.Augment.FallbackOutputPath {
		fail("augment.output_path and augment.fallback_output_path must differ")
	}
	if c.Augment.StatsPath != "" &&
		(c.Augment.StatsPath == c.Augment.OutputPath || c.Augment.StatsPath == c.Augment.FallbackOutputPath) {
		fail("augment.stats_path must differ from the output paths, got %q", c.Augment.StatsPath)
	}

	if c.Timeout < 0 {
		fail("timeout must not be negative")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Layout returns the field positions of the input file. Call only on a
// validated config.
func (c *Config) Layout() dataset.Layout {
	delim, _ := ParseDelimiter(c.Input.Delimiter)
	return dataset.Layout{
		IDIndex:   c.Input.IDIndex,
		TextIndex: c.Input.TextIndex,
		Delimiter: delim,
	}
}

// ProbeDelimiter returns the delimiter of the probe output file.
func (c *Config) ProbeDelimiter() rune {
	delim, _ := ParseDelimiter(c.Probe.Delimiter)
	return delim
}

// ServiceConfig returns the per-call settings for the selected service.
func (c *Config) ServiceConfig() translator.ServiceConfig {
	cfg := translator.ServiceConfig{
		Credentials: c.Credentials,
		ProjectID:   c.ProjectID,
		Timeout:     c.Timeout,
	}
	if c.Service == "ollama" {
		cfg.Model = c.Ollama.Model
	}
	return cfg
}

// ParseDelimiter accepts a single character or one of the names "tab",
// "comma" and "semicolon".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return '\t', nil
	case "comma":
		return ',', nil
	case "semicolon":
		return ';', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("delimiter %q is not allowed", s)
	}
	return r, nil
}

func checkLang(code string) error {
	if strings.TrimSpace(code) == "" {
		return errors.New("language code is empty")
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("unknown language code %q", code)
	}
	return nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
