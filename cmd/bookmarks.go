package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kardiff/pses/pkg/modules/standings"
)

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks",
	Short: "Manage bookmarked players",
}

var bookmarksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarked players",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		players := standings.Bookmarks(context.Background(), a.Store)
		if len(players) == 0 {
			fmt.Println("No bookmarked players")
			return nil
		}
		for _, p := range players {
			fmt.Println(p)
		}
		return nil
	},
}

var bookmarksToggleCmd = &cobra.Command{
	Use:   "toggle [player name]",
	Short: "Bookmark a player, or remove the bookmark",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		player := strings.Join(args, " ")
		added, err := standings.Toggle(context.Background(), a.Store, player)
		if err != nil {
			return err
		}
		msg, _ := standings.ToggleMessage(player, added)
		fmt.Println(msg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bookmarksCmd)
	bookmarksCmd.AddCommand(bookmarksListCmd)
	bookmarksCmd.AddCommand(bookmarksToggleCmd)
}
