package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"github.com/sw33tLie/wphttp/internal/utils"
	"github.com/sw33tLie/wphttp/pkg/scan"
	"github.com/sw33tLie/wphttp/pkg/siteurl"
	"github.com/sw33tLie/wphttp/pkg/storage"
)

// openStore opens the configured database. It must already exist; wphttp
// never creates a WordPress database from scratch. Only writers get a
// read-write connection.
func openStore(write bool) (*storage.DB, string, error) {
	dbPath, err := utils.GetAbsDBPath(viper.GetString("db.path"))
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("database not found: %s", dbPath)
		}
		return nil, "", err
	}
	opts := []storage.Option{
		storage.WithPrefix(viper.GetString("db.prefix")),
		storage.WithBusyTimeout(viper.GetInt("db.busy_timeout")),
	}
	if write {
		opts = append(opts, storage.WithWrite())
	}
	db, err := storage.Open(dbPath, opts...)
	if err != nil {
		return nil, "", err
	}
	return db, dbPath, nil
}

// resolveSite works out the needle from the configured site and the stored
// home option.
func resolveSite(ctx context.Context, store storage.RecordStore) (siteurl.Site, error) {
	home, err := store.GetSerializedValue(ctx, "home")
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return siteurl.Site{}, err
	}
	site, err := siteurl.Resolve(viper.GetString("site.url"), home)
	if err != nil {
		return siteurl.Site{}, fmt.Errorf("%w (configured %q, stored home %q)", err, viper.GetString("site.url"), home)
	}
	if site.Fake {
		utils.Log.Warnf("Site is not https, scanning for the stored home %s instead", site.URL)
	}
	utils.Log.Debugf("Looking for %s on %s", site.Needle, site.Domain)
	return site, nil
}

// titlePriority reads widgets.title_priority. Short names such as "video"
// are accepted for the widget kinds.
func titlePriority() ([]scan.Kind, error) {
	var out []scan.Kind
	for _, name := range viper.GetStringSlice("widgets.title_priority") {
		k, err := scan.ParseKind(name)
		if err != nil {
			if k, err = scan.ParseKind("widget_" + name); err != nil {
				return nil, fmt.Errorf("widgets.title_priority: %w", err)
			}
		}
		out = append(out, k)
	}
	return out, nil
}

func newScanner(store storage.RecordStore) (*scan.Scanner, error) {
	priority, err := titlePriority()
	if err != nil {
		return nil, err
	}
	return scan.New(store, scan.Config{TitlePriority: priority}), nil
}
