package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kardiff/pses/pkg/selection"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Work with the stored picks history",
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the picks history as JSON or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		formatName, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		format, ok := selection.ParseFormat(formatName)
		if !ok {
			return fmt.Errorf("unknown format %q (json or csv)", formatName)
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		h := selection.Load(context.Background(), a.Store)

		if output == "" {
			output = selection.Filename(time.Now(), format)
		}
		out := os.Stdout
		if output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		if err := selection.Export(out, h, format); err != nil {
			return err
		}
		if output != "-" {
			fmt.Printf("Wrote %s\n", output)
		}
		return nil
	},
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print picks history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		h := selection.Load(context.Background(), a.Store)
		if len(h) == 0 {
			fmt.Println("No picks history.")
			return nil
		}
		st := h.Stats()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "WEEK\tSUBMISSIONS\tPICKS\tLOCK\t")
		for _, week := range h.Weeks() {
			sets := h.Week(week)
			if len(sets) == 0 {
				continue
			}
			lock := "-"
			if _, sel, ok := sets[0].Locked(); ok {
				lock = sel.Team
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\t\n", week, len(sets), len(sets[0].Selections), lock)
		}
		fmt.Fprintln(w, " \t \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d weeks\t%d\t%d locks\t\n", st.WeeksPlayed, st.TotalPicks, st.TotalLocks)
		w.Flush()

		fmt.Printf("Lock success rate: %.1f%%\n", st.LockSuccessRate())
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the whole picks history",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("refusing to clear history without --yes")
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if !selection.Clear(context.Background(), a.Store) {
			return fmt.Errorf("clearing history failed")
		}
		fmt.Println("Picks history cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyExportCmd.Flags().String("format", "json", "Export format: json or csv")
	historyExportCmd.Flags().StringP("output", "o", "", "Output file, - for stdout (default pigskin_picks_history_<date>.<ext>)")
	historyClearCmd.Flags().Bool("yes", false, "Confirm deletion")
}
