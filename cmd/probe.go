package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/wphttp/pkg/probe"
	"github.com/sw33tLie/wphttp/pkg/siteurl"
)

// probeCmd represents the probe command
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Fetch the live home page and list resources it loads over http",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()

		target := viper.GetString("site.url")
		if !siteurl.IsHTTPS(target) {
			db, _, err := openStore(false)
			if err != nil {
				return err
			}
			site, err := resolveSite(ctx, db)
			db.Close()
			if err != nil {
				return err
			}
			target = site.URL
		}

		res, err := probe.Run(ctx, probe.Config{
			URL:     siteurl.Untrailingslash(target) + "/",
			Timeout: viper.GetDuration("probe.timeout"),
			Retries: viper.GetInt("probe.retries"),
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s [%d] %s\n", res.URL, res.StatusCode, res.Title)
		if len(res.Insecure) == 0 {
			fmt.Println("No insecure resources on the page.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TAG\tATTRIBUTE\tURL\t")
		for _, r := range res.Insecure {
			fmt.Fprintf(w, "%s\t%s\t%s\t\n", r.Tag, r.Attr, r.URL)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
