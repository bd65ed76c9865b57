package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kardiff/pses/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the enhancing proxy",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if a.Upstream == nil {
			return fmt.Errorf("no upstream configured; set upstream in the config file or pass --upstream")
		}
		return server.New(a).Start(a.Config.Listen)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("upstream", "", "Pool site base URL (Example: https://www.example-pool.com)")
	serveCmd.Flags().String("listen", "", "HTTP listen address (default from config, 127.0.0.1:8787)")
	serveCmd.Flags().String("user", "", "Basic auth username")
	serveCmd.Flags().String("password", "", "Basic auth password")
	viper.BindPFlag("upstream", serveCmd.Flags().Lookup("upstream"))
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
	viper.BindPFlag("auth.username", serveCmd.Flags().Lookup("user"))
	viper.BindPFlag("auth.password", serveCmd.Flags().Lookup("password"))
}
