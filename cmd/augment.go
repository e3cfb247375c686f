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

	"github.com/spf13/cobra"

	"github.com/valpere/rttaug/internal/augment"
	"github.com/valpere/rttaug/internal/store"
)

var augmentCmd = &cobra.Command{
	Use:   "augment",
	Short: "Add round-trip paraphrases to every row of the input file",
	Long: `Read the input file row by row and write two outputs:

  --output           originals plus paraphrases from the primary language
  --fallback-output  the same plus paraphrases from the fallback language

A row whose text comes back unchanged from both languages gets no
paraphrase. Counters are written to --stats even when the run fails.

Example:
  rttaug augment -i original_train.csv --primary de --fallback ja`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		svc, err := buildService(cfg.Service, cfg)
		if err != nil {
			return err
		}
		defer closeService(svc)

		rt := newRoundTripper(svc)
		pipeline := augment.New(rt, augment.Config{
			PrimaryLang:  cfg.Augment.PrimaryLang,
			FallbackLang: cfg.Augment.FallbackLang,
			Layout:       cfg.Layout(),
		}, logger)

		var db *store.Store
		var runID string
		if cfg.Ledger.Enabled {
			db, err = openLedger(cfg.Ledger.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			runID, err = db.CreateRun(ctx, store.RunParams{
				InputFile:    cfg.Input.Path,
				Service:      rt.ServiceName(),
				PrimaryLang:  cfg.Augment.PrimaryLang,
				FallbackLang: cfg.Augment.FallbackLang,
			})
			if err != nil {
				return fmt.Errorf("failed to create run: %w", err)
			}
			ledger := db.Ledger(runID)
			pipeline.WithLedger(ledger)
			logger.Info("recording run", "run", ledger.RunID(), "service", rt.ServiceName())
		}

		stats, runErr := pipeline.RunFiles(ctx, augment.Paths{
			Input:        cfg.Input.Path,
			Primary:      cfg.Augment.OutputPath,
			WithFallback: cfg.Augment.FallbackOutputPath,
			Stats:        cfg.Augment.StatsPath,
		})

		if db != nil {
			// The run context may already be cancelled.
			err := db.FinishRun(context.WithoutCancel(ctx), runID, store.Counters{
				RowsProcessed: stats.RowsProcessed,
				FallbackUsage: stats.FallbackUsage,
				FallbackFail:  stats.FallbackFail,
			}, runErr)
			if err != nil {
				logger.Warn("failed to finish run", "run", runID, "err", err)
			}
		}

		if runErr != nil {
			return runErr
		}

		fmt.Printf("Processed %d rows (fallback used %d times, %d rows without paraphrase)\n",
			stats.RowsProcessed, stats.FallbackUsage, stats.FallbackFail)
		fmt.Printf("Wrote %s, %s and %s\n",
			cfg.Augment.OutputPath, cfg.Augment.FallbackOutputPath, cfg.Augment.StatsPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(augmentCmd)

	f := augmentCmd.Flags()
	f.String("primary", "de", "Primary intermediate language")
	f.String("fallback", "ja", "Fallback intermediate language")
	f.StringP("output", "o", "new_samples_full.csv", "Output with primary paraphrases")
	f.String("fallback-output", "new_samples_full_with_fallback.csv", "Output with primary and fallback paraphrases")
	f.String("stats", "stats.csv", "Stats output file")

	vp.BindPFlag("augment.primary_lang", f.Lookup("primary"))
	vp.BindPFlag("augment.fallback_lang", f.Lookup("fallback"))
	vp.BindPFlag("augment.output_path", f.Lookup("output"))
	vp.BindPFlag("augment.fallback_output_path", f.Lookup("fallback-output"))
	vp.BindPFlag("augment.stats_path", f.Lookup("stats"))
}
