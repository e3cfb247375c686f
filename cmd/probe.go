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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valpere/rttaug/internal/detector"
	"github.com/valpere/rttaug/internal/probe"
	"github.com/valpere/rttaug/internal/sampler"
)

var probeDetect bool

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Compare candidate intermediate languages on random samples",
	Long: `Draw random questions from the input file and round-trip each one through
every candidate language. One row per sample is written: id, question, then
one paraphrase per language in the given order.

With --detect the paraphrases are also checked with a language detector and
a per-language summary is logged.

Example:
  rttaug probe -i original_train.csv --samples 50 --langs he,de,ru,ja`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		svc, err := buildService(cfg.Service, cfg)
		if err != nil {
			return err
		}
		defer closeService(svc)

		p := probe.New(sampler.New(cfg.Layout(), nil), newRoundTripper(svc), probe.Config{
			InputPath:  cfg.Input.Path,
			Langs:      cfg.Probe.Langs,
			Samples:    cfg.Probe.Samples,
			SourceLang: cfg.SourceLang,
		}, logger)
		if probeDetect {
			logger.Info("loading language models")
			p.WithDetector(detector.New())
		}

		report, err := p.RunFile(ctx, cfg.Probe.OutputPath, cfg.ProbeDelimiter())
		if report != nil {
			report.Log(logger)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Wrote %d samples to %s\n", report.Samples, cfg.Probe.OutputPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)

	f := probeCmd.Flags()
	f.StringP("output", "o", "test_langs.tsv", "Probe output file")
	f.IntP("samples", "n", 50, "Number of random samples")
	f.StringSlice("langs", []string{"he", "de", "ru", "ja"}, "Candidate intermediate languages")
	f.String("output-delimiter", "tab", "Probe output field delimiter")
	f.BoolVar(&probeDetect, "detect", false, "Check paraphrases with a language detector")

	vp.BindPFlag("probe.output_path", f.Lookup("output"))
	vp.BindPFlag("probe.samples", f.Lookup("samples"))
	vp.BindPFlag("probe.langs", f.Lookup("langs"))
	vp.BindPFlag("probe.delimiter", f.Lookup("output-delimiter"))
}
