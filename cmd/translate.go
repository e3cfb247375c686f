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
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	translateFile  string
	translateLangs []string
	translateOnce  bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [text]",
	Short: "Round-trip a single question through one or more languages",
	Long: `Round-trip one question and print the paraphrase per language. Useful for
checking a service and a language pair before a full augmentation run.

The text is taken from the argument or from --file.

Example:
  rttaug translate "What color is the sky?" --to de,ja
  rttaug translate "What color is the sky?" --to de --one-way`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		switch {
		case len(args) == 1:
			text = args[0]
		case translateFile != "":
			data, err := os.ReadFile(translateFile)
			if err != nil {
				return fmt.Errorf("failed to read input file: %w", err)
			}
			text = string(data)
		default:
			return fmt.Errorf("no text given: pass it as an argument or with --file")
		}
		text = strings.TrimSpace(text)

		ctx, stop := interruptContext(cmd.Context())
		defer stop()

		svc, err := buildService(cfg.Service, cfg)
		if err != nil {
			return err
		}
		defer closeService(svc)
		rt := newRoundTripper(svc)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, translationHeader(translateOnce))
		for _, lang := range translateLangs {
			var out string
			if translateOnce {
				out, err = rt.Translate(ctx, text, rt.SourceLang(), lang)
			} else {
				out, err = rt.RoundTrip(ctx, strings.ToLower(text), lang)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(w, translationRow(lang, text, out, translateOnce))
		}
		return w.Flush()
	},
}

// A forward translation is in another language, so comparing it with the
// input says nothing and the CHANGED column is left out.
func translationHeader(oneWay bool) string {
	if oneWay {
		return "LANG\tRESULT"
	}
	return "LANG\tRESULT\tCHANGED"
}

func translationRow(lang, input, out string, oneWay bool) string {
	if oneWay {
		return fmt.Sprintf("%s\t%s", lang, out)
	}
	return fmt.Sprintf("%s\t%s\t%v", lang, out, out != strings.ToLower(input))
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&translateFile, "file", "f", "", "Read the text from a file")
	translateCmd.Flags().StringSliceVarP(&translateLangs, "to", "t", []string{"de", "ja"}, "Intermediate languages")
	translateCmd.Flags().BoolVar(&translateOnce, "one-way", false, "Print the forward translation only")
}
