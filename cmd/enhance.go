package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kardiff/pses/pkg/whttp"
)

var enhanceCmd = &cobra.Command{
	Use:   "enhance [path]",
	Short: "Enhance one page and write the resulting HTML",
	Long: `Enhance one page and write the resulting HTML.

The page is read from --file when given, otherwise fetched from the upstream site.
path selects the modules to run, as in /forms/fbpicks.html.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		output, _ := cmd.Flags().GetString("output")

		local, err := url.Parse(args[0])
		if err != nil || !strings.HasPrefix(local.Path, "/") {
			return fmt.Errorf("path must start with /: %q", args[0])
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := context.Background()

		var body io.Reader
		if file != "" {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()
			body = f
		} else {
			if a.Upstream == nil {
				return fmt.Errorf("no upstream configured and no --file given")
			}
			res, err := whttp.SendHTTPRequest(ctx, &whttp.WHTTPReq{
				URL:    a.Upstream.ResolveReference(local).String(),
				Method: http.MethodGet,
			}, a.Client)
			if err != nil {
				return err
			}
			if res.StatusCode != http.StatusOK {
				return fmt.Errorf("upstream returned status %d", res.StatusCode)
			}
			body = strings.NewReader(res.BodyString)
		}

		p, _, err := a.Enhance(ctx, local, body)
		if err != nil {
			return err
		}

		out := os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return p.Render(out)
	},
}

func init() {
	rootCmd.AddCommand(enhanceCmd)
	enhanceCmd.Flags().StringP("file", "f", "", "Read the page from this file instead of the upstream site")
	enhanceCmd.Flags().StringP("output", "o", "-", "Write the enhanced HTML here")
}
