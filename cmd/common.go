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
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/valpere/rttaug/internal/config"
	"github.com/valpere/rttaug/internal/store"
	"github.com/valpere/rttaug/internal/translator"
)

// buildService constructs the translation service selected in c.
func buildService(name string, c *config.Config) (translator.TranslationService, error) {
	switch name {
	case "google":
		return translator.NewGoogleService(), nil
	case "mymemory":
		return translator.NewMyMemoryService(c.MyMemory.Email), nil
	case "ollama":
		return translator.NewOllamaService(c.Ollama.URL, c.Ollama.Model), nil
	case "openrouter":
		return translator.NewOpenRouterService(c.OpenRouter.APIKey, c.OpenRouter.URL, c.OpenRouter.Model), nil
	default:
		return nil, fmt.Errorf("unknown service: %s (available: %v)", name, config.Services)
	}
}

func closeService(svc translator.TranslationService) {
	if closer, ok := svc.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close service", "service", svc.Name(), "err", err)
		}
	}
}

func newRoundTripper(svc translator.TranslationService) *translator.RoundTripper {
	return translator.NewRoundTripper(svc, cfg.ServiceConfig(), cfg.SourceLang)
}

// openLedger opens the run ledger database, creating its directory.
func openLedger(path string) (*store.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// interruptContext is cancelled on SIGINT or SIGTERM so that running
// pipelines stop between rows and still flush their output.
func interruptContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
