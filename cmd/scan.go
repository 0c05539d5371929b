package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/wphttp/pkg/report"
	"github.com/sw33tLie/wphttp/pkg/scan"
	"github.com/sw33tLie/wphttp/pkg/siteurl"
	"gopkg.in/yaml.v3"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Report where the http:// version of the site is still referenced",
	RunE: func(cmd *cobra.Command, _ []string) error {
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "text", "json", "yaml":
		default:
			return fmt.Errorf("unknown format %q, use text, json or yaml", format)
		}

		db, _, err := openStore(false)
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := context.Background()
		site, err := resolveSite(ctx, db)
		if err != nil {
			return err
		}
		scanner, err := newScanner(db)
		if err != nil {
			return err
		}
		sum, err := scanner.ScanAll(ctx, site.Needle)
		if err != nil {
			return err
		}
		return printSummary(os.Stdout, format, site, sum)
	},
}

type scanOutput struct {
	Site    siteurl.Site  `json:"site" yaml:"site"`
	Summary *scan.Summary `json:"summary" yaml:"summary"`
}

func printSummary(w io.Writer, format string, site siteurl.Site, sum *scan.Summary) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(scanOutput{Site: site, Summary: sum})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(scanOutput{Site: site, Summary: sum})
	}

	mode := ""
	if site.Fake {
		mode = " (stored home, site is not https)"
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Site:\t%s%s\n", site.URL, mode)
	fmt.Fprintf(tw, "Looking for:\t%s\n", site.Needle)
	fmt.Fprintln(tw, "\t")
	fmt.Fprintf(tw, "Options:\t%s\n", reportLine(sum.Options, "options"))
	fmt.Fprintf(tw, "Widgets:\t%s\n", reportLine(sum.Widgets, "widgets"))
	for _, k := range scan.WidgetKinds {
		if r := sum.WidgetKinds[k]; r.Total > 0 {
			fmt.Fprintf(tw, "  %s:\t%s\n", k, reportLine(r, "widgets"))
		}
	}
	fmt.Fprintf(tw, "Content:\t%d published posts and pages\n", len(sum.Content))
	fmt.Fprintf(tw, "Custom content:\t%d published posts of other types\n", len(sum.CustomContent))
	fmt.Fprintf(tw, "Metadata:\t%d published posts and pages\n", sum.PublishedMeta.Total)
	fmt.Fprintf(tw, "Other metadata:\t%d rows\n", sum.UnpublishedMeta.Total)
	if err := tw.Flush(); err != nil {
		return err
	}

	if sum.Clean() {
		fmt.Fprintln(w, "\nNo insecure links found.")
	} else if len(sum.Posts) > 0 {
		fmt.Fprintf(w, "\n%d posts to review, see 'wphttp posts'.\n", len(sum.Posts))
	}
	return nil
}

func reportLine(r report.MatchReport, noun string) string {
	line := fmt.Sprintf("%d of %d %s", r.Invalid, r.Total, noun)
	if r.Title != "" {
		line += fmt.Sprintf(", first: %q", r.Title)
	}
	if r.Unverifiable > 0 {
		line += fmt.Sprintf(", %d values could not be checked", r.Unverifiable)
	}
	return line
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("format", "f", "text", "Output format: text, json or yaml")
}
