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
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/rttaug/internal/config"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List translation services and check whether they respond",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SERVICE\tSELECTED\tSTATUS")
		for _, name := range config.Services {
			svc, err := buildService(name, cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			status := "ok"
			if err := svc.IsAvailable(ctx); err != nil {
				status = err.Error()
			}
			cancel()
			closeService(svc)

			selected := ""
			if name == cfg.Service {
				selected = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, selected, status)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(servicesCmd)
}
