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

	"github.com/valpere/rttaug/internal/sampler"
)

var sampleCount int

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print random records from the input file",
	Long: `Print records picked by seeking to a random byte offset in the input file.

Selection is biased towards records that follow long lines; see the probe
command for how samples are used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := sampler.New(cfg.Layout(), nil)
		for i := 0; i < sampleCount; i++ {
			id, text, err := s.Sample(cfg.Input.Path)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", id, text)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().IntVarP(&sampleCount, "count", "n", 1, "Number of records to print")
}
