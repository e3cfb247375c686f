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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/rttaug/internal/store"
)

var runsOutcome string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded augmentation runs",
	Long:  `List, inspect, and delete runs recorded in the SQLite run ledger.`,
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(cfg.Ledger.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tSERVICE\tLANGS\tSTATUS\tROWS\tFALLBACK\tFAILED\tINPUT")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%s\t%d\t%d\t%d\t%s\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Service,
				r.PrimaryLang, r.FallbackLang, r.Status,
				r.RowsProcessed, r.FallbackUsage, r.FallbackFail, r.InputFile)
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a run and its per-row outcomes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := store.New(cfg.Ledger.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		run, err := db.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		counts, err := db.OutcomeCounts(ctx, run.ID)
		if err != nil {
			return fmt.Errorf("failed to count outcomes: %w", err)
		}

		fmt.Printf("Run:            %s\n", run.ID)
		fmt.Printf("Input:          %s\n", run.InputFile)
		fmt.Printf("Service:        %s\n", run.Service)
		fmt.Printf("Languages:      %s (fallback %s)\n", run.PrimaryLang, run.FallbackLang)
		fmt.Printf("Status:         %s\n", run.Status)
		if run.Error != "" {
			fmt.Printf("Error:          %s\n", run.Error)
		}
		fmt.Printf("Started:        %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated:        %s\n", run.UpdatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Rows processed: %d\n", run.RowsProcessed)
		fmt.Printf("Fallback usage: %d\n", run.FallbackUsage)
		fmt.Printf("Fallback fail:  %d\n", run.FallbackFail)
		fmt.Printf("Outcomes:       %d primary, %d fallback, %d discarded\n",
			counts[store.OutcomePrimary], counts[store.OutcomeFallback], counts[store.OutcomeDiscarded])

		if runsOutcome == "" {
			return nil
		}

		filter := runsOutcome
		if filter == "all" {
			filter = ""
		}
		entries, err := db.ListOutcomes(ctx, run.ID, filter)
		if err != nil {
			return fmt.Errorf("failed to list outcomes: %w", err)
		}
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ROW\tID\tOUTCOME\tLANG\tSOURCE\tOUTPUT")
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
				e.RowIdx, e.RecordID, e.Outcome, e.Lang, snippet(e.SourceText), snippet(e.OutputText))
		}
		return w.Flush()
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a run and its outcomes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.New(cfg.Ledger.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.DeleteRun(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		fmt.Printf("Deleted run: %s\n", args[0])
		return nil
	},
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsShowCmd.Flags().StringVar(&runsOutcome, "outcome", "", "Also list rows with this outcome: primary, fallback, discarded, or all")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}
