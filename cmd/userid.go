package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kardiff/pses/pkg/modules/userid"
)

var useridCmd = &cobra.Command{
	Use:   "userid",
	Short: "Manage the saved pool user ID",
}

var useridGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the saved ID, recent IDs and the auto-fill setting",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := context.Background()

		saved := userid.Saved(ctx, a.Store)
		if saved == "" {
			saved = "(none)"
		}
		fmt.Printf("Saved ID:  %s\n", saved)
		fmt.Printf("Auto-fill: %t\n", userid.AutoFill(ctx, a.Store))
		for i, id := range userid.Recent(ctx, a.Store) {
			fmt.Printf("Recent %d:  %s\n", i+1, id)
		}
		return nil
	},
}

var useridSetCmd = &cobra.Command{
	Use:   "set [id]",
	Short: "Save a user ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := userid.Save(context.Background(), a.Store, args[0]); err != nil {
			return err
		}
		fmt.Println("ID Saved: " + args[0])
		return nil
	},
}

var useridAutoFillCmd = &cobra.Command{
	Use:   "autofill [true|false]",
	Short: "Turn filling the saved ID into the picks form on or off",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", args[0])
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if !userid.SetAutoFill(context.Background(), a.Store, on) {
			return fmt.Errorf("saving the auto-fill setting failed")
		}
		fmt.Printf("Auto-fill: %t\n", on)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(useridCmd)
	useridCmd.AddCommand(useridGetCmd)
	useridCmd.AddCommand(useridSetCmd)
	useridCmd.AddCommand(useridAutoFillCmd)
}
