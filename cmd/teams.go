package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "Inspect and refresh the team name data",
}

var teamsResolveCmd = &cobra.Command{
	Use:   "resolve [name...]",
	Short: "Print the standard name for each given team name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Resolver.Load(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Team data unavailable, names are passed through: %v\n", err)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "INPUT\tRESOLVED\t")
		for _, name := range args {
			fmt.Fprintf(w, "%s\t%s\t\n", name, a.Resolver.Resolve(name))
		}
		return w.Flush()
	},
}

var teamsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch the team name data now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.Resolver.Refresh(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Loaded %d teams.\n", len(a.Resolver.Teams()))
		return nil
	},
}

var teamsDiagnosticsCmd = &cobra.Command{
	Use:   "diagnostics",
	Short: "Print the state of the team name data",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := context.Background()
		if err := a.Resolver.Load(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Load failed: %v\n", err)
		}
		d := a.Resolver.Diagnostics(ctx)

		lastUpdate := "never"
		if !d.LastUpdate.IsZero() {
			lastUpdate = d.LastUpdate.Format(time.RFC3339)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "Version\t%s\n", d.Version)
		fmt.Fprintf(w, "Cache\t%s\n", d.CacheStatus)
		fmt.Fprintf(w, "Teams\t%d\n", d.TeamCount)
		fmt.Fprintf(w, "Last update\t%s\n", lastUpdate)
		if d.LastError != "" {
			fmt.Fprintf(w, "Last error\t%s\n", d.LastError)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(teamsCmd)
	teamsCmd.AddCommand(teamsResolveCmd)
	teamsCmd.AddCommand(teamsRefreshCmd)
	teamsCmd.AddCommand(teamsDiagnosticsCmd)
}
