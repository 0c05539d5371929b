package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/sw33tLie/wphttp/pkg/scan"
)

const defaultLinksPerPage = 20

// postsCmd represents the posts command
var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List published posts and pages with insecure links",
	RunE: func(cmd *cobra.Command, _ []string) error {
		page, _ := cmd.Flags().GetInt("page")

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
		meta, err := scanner.PublishedMeta(ctx, site.Needle)
		if err != nil {
			return err
		}
		refs, err := scanner.Posts(ctx, site.Needle, meta)
		if err != nil {
			return err
		}
		printPosts(os.Stdout, refs, paginate(len(refs), viper.GetInt("report.links_per_page"), page))
		return nil
	},
}

type pageWindow struct {
	Start, End  int
	Page, Pages int
}

// paginate clamps page into range. A non-positive perPage falls back to the
// default and pages out of range show the first one.
func paginate(total, perPage, page int) pageWindow {
	if perPage <= 0 {
		perPage = defaultLinksPerPage
	}
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 1 || page > pages {
		page = 1
	}
	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}
	return pageWindow{Start: start, End: end, Page: page, Pages: pages}
}

func printPosts(w io.Writer, refs []scan.PostRef, win pageWindow) {
	if len(refs) == 0 {
		fmt.Fprintln(w, "No published posts or pages with insecure links.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tACTION\t")
	for _, r := range refs[win.Start:win.End] {
		action := fmt.Sprintf("wphttp fix post %d", r.ID)
		if r.MetaKey != "" {
			action = "META " + r.MetaKey
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", r.ID, r.Title, action)
	}
	tw.Flush()
	fmt.Fprintf(w, "\nPage %d of %d (%d posts)\n", win.Page, win.Pages, len(refs))
}

func init() {
	rootCmd.AddCommand(postsCmd)
	postsCmd.Flags().IntP("page", "p", 1, "Page of the list to show")
}
