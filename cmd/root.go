/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valpere/rttaug/internal/config"
)

var version = "0.1.0"

var (
	cfgFile string
	vp      = viper.New()

	// Populated by loadConfig before any subcommand runs.
	cfg    *config.Config
	logger *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rttaug",
	Short: "Round-trip translation data augmentation",
	Long: `A CLI application that paraphrases question datasets by translating each
question into an intermediate language and back.

Every input row is kept. A paraphrase through the primary language is added
when it differs from the original; otherwise the fallback language is tried.

Supported services: Google Cloud Translation, MyMemory, Ollama (LLM), OpenRouter (LLM)

Use "rttaug augment --help" for augmentation options.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	config.SetDefaults(vp)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: .rttaug.yaml in $HOME or the current directory)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("service", "google", "Translation service: google, mymemory, ollama, openrouter")
	pf.String("project-id", "", "Google Cloud project ID (enables the v3 API)")
	pf.String("credentials", "", "Path to Google credentials JSON")
	pf.Duration("timeout", 0, "Per-request timeout (0 uses the configured default)")
	pf.String("source-lang", "en", "Language of the input questions")
	pf.StringP("input", "i", "original_train.csv", "Input file path")
	pf.String("delimiter", ",", "Input field delimiter (single character or tab)")
	pf.String("db", "./data/rttaug.db", "Run ledger database path")
	pf.Bool("no-ledger", false, "Do not record runs in the ledger database")

	bindFlag("log_level", "log-level")
	bindFlag("service", "service")
	bindFlag("project_id", "project-id")
	bindFlag("credentials", "credentials")
	bindFlag("source_lang", "source-lang")
	bindFlag("input.path", "input")
	bindFlag("input.delimiter", "delimiter")
	bindFlag("ledger.db_path", "db")
}

func bindFlag(key, flag string) {
	if err := vp.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		vp.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			vp.AddConfigPath(home)
		}
		vp.AddConfigPath(".")
		vp.SetConfigType("yaml")
		vp.SetConfigName(".rttaug")
	}
	config.BindEnv(vp)

	if err := vp.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("no-ledger") {
		noLedger, _ := flags.GetBool("no-ledger")
		vp.Set("ledger.enabled", !noLedger)
	}
	if flags.Changed("timeout") {
		timeout, _ := flags.GetDuration("timeout")
		vp.Set("timeout", timeout)
	}

	c, err := config.Load(vp)
	if err != nil {
		return err
	}
	cfg = c

	logger, err = newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	if used := vp.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	return nil
}

func newLogger(level string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "rttaug",
	})
	l.SetLevel(lvl)
	return l, nil
}
