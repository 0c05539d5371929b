package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"github.com/sw33tLie/wphttp/internal/utils"
	"github.com/sw33tLie/wphttp/pkg/fix"
	"github.com/sw33tLie/wphttp/pkg/scan"
	"github.com/sw33tLie/wphttp/pkg/storage"
)

// fixCmd represents the fix command
var fixCmd = &cobra.Command{
	Use:   "fix <scope> | fix post <id>",
	Short: "Rewrite insecure links to https",
	Long: `Rewrite insecure links to https in one scope of the database.

Scopes: options, widgets, widget_text, widget_image, widget_video, widget_rss,
content, custom, meta, other_meta. "fix post <id>" rewrites a single post.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		var postID storage.RecordID
		scope := args[0]
		if scope == "post" {
			if len(args) != 2 {
				return fmt.Errorf("fix post needs a post id")
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid post id %q", args[1])
			}
			postID = storage.RecordID(id)
		} else if len(args) != 1 {
			return fmt.Errorf("unexpected argument %q", args[1])
		}

		db, dbPath, err := openStore(!dryRun)
		if err != nil {
			return err
		}
		defer db.Close()

		if !dryRun {
			lock, err := utils.NewDBLock(dbPath)
			if err != nil {
				return err
			}
			if err := lock.Lock(); err != nil {
				return err
			}
			defer lock.Unlock()
		}

		ctx := context.Background()
		site, err := resolveSite(ctx, db)
		if err != nil {
			return err
		}

		opts := fix.Options{DryRun: dryRun}
		if dryRun {
			opts.Preview = func(c fix.Change) { printChange(os.Stdout, c) }
		}
		replacer := fix.New(db, opts)

		var out fix.Outcome
		if postID != 0 {
			out, err = replacer.ReplacePost(ctx, postID, site.Needle, site.URL)
		} else {
			out, err = replacer.ReplaceScope(ctx, scope, site.Needle, site.URL)
		}
		printOutcome(os.Stdout, out, dryRun)
		if err != nil {
			return err
		}

		scanner, err := newScanner(db)
		if err != nil {
			return err
		}
		remaining, err := rescan(ctx, scanner, scope, postID, site.Needle)
		if err != nil {
			return err
		}
		fmt.Println(remaining)
		return nil
	},
}

func printChange(w io.Writer, c fix.Change) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(c.Before),
		B:        difflib.SplitLines(c.After),
		FromFile: c.Record + " (stored)",
		ToFile:   c.Record + " (fixed)",
		Context:  1,
	})
	if err != nil {
		utils.Log.Warnf("Could not diff %s: %v", c.Record, err)
		return
	}
	fmt.Fprintln(w, diff)
}

func printOutcome(w io.Writer, out fix.Outcome, dryRun bool) {
	verb := "Fixed"
	if dryRun {
		verb = "Would fix"
	}
	fmt.Fprintf(w, "%s %d of %d records (%d already fixed, %d failed)\n", verb, out.Fixed, out.Attempted, out.AlreadyFixed, out.Failed)
	for _, e := range out.Errors() {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// rescan reports what is left in scope after a fix.
func rescan(ctx context.Context, s *scan.Scanner, scope string, postID storage.RecordID, needle string) (string, error) {
	if postID != 0 {
		ids, err := s.PublishedContent(ctx, needle)
		if err != nil {
			return "", err
		}
		for _, id := range ids {
			if id == postID {
				return fmt.Sprintf("Post %d still contains %s", postID, needle), nil
			}
		}
		return fmt.Sprintf("Post %d is clean", postID), nil
	}

	if scope == scan.ScopeWidgets {
		r, err := s.Widgets(ctx, needle)
		if err != nil {
			return "", err
		}
		return "Remaining: " + reportLine(r, "widgets"), nil
	}
	kind, err := scan.ParseKind(scope)
	if err != nil {
		return "", err
	}
	switch {
	case kind == scan.KindOptions:
		r, err := s.Options(ctx, needle)
		if err != nil {
			return "", err
		}
		return "Remaining: " + reportLine(r, "options"), nil
	case kind.IsWidget():
		r, err := s.Widget(ctx, kind, needle)
		if err != nil {
			return "", err
		}
		return "Remaining: " + reportLine(r, "widgets"), nil
	case kind == scan.KindContent || kind == scan.KindCustom:
		get := s.PublishedContent
		if kind == scan.KindCustom {
			get = s.CustomContent
		}
		ids, err := get(ctx, needle)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Remaining: %d posts", len(ids)), nil
	}
	get := s.PublishedMeta
	if kind == scan.KindOtherMeta {
		get = s.UnpublishedMeta
	}
	meta, err := get(ctx, needle)
	if err != nil {
		return "", err
	}
	if kind == scan.KindMeta {
		return fmt.Sprintf("Remaining: metadata on %d posts", meta.Total), nil
	}
	return fmt.Sprintf("Remaining: %d metadata rows", meta.Total), nil
}

func init() {
	rootCmd.AddCommand(fixCmd)
	fixCmd.Flags().BoolP("dry-run", "n", false, "Show the changes without writing them")
}
