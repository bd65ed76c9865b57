package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kardiff/pses/pkg/snapshot"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect the games read from the last spreads page",
}

var snapshotShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current game snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		games, ok := snapshot.Load(context.Background(), a.Store)
		if !ok {
			fmt.Println("No snapshot yet. Visit the spreads page through the proxy first.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "GAME\tTEAM 1\tSPREAD\tTEAM 2\tSPREAD\tKICKOFF\t")
		for i, g := range games {
			kickoff := "unknown"
			if g.Time != nil {
				kickoff = g.Time.In(a.Location).Format("Mon Jan 2 3:04 PM MST")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t\n", i+1,
				g.Team1, snapshot.FormatSpread(g.Spread1), g.Team2, snapshot.FormatSpread(g.Spread2), kickoff)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
}
