package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/wphttp/internal/utils"
	"github.com/sw33tLie/wphttp/pkg/scan"
	"github.com/sw33tLie/wphttp/pkg/storage"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `                 _     _   _
 __      ___ __ | |__ | |_| |_ _ __
 \ \ /\ / / '_ \| '_ \| __| __| '_ \
  \ V  V /| |_) | | | | |_| |_| |_) |
   \_/\_/ | .__/|_| |_|\__|\__| .__/
          |_|                 |_|

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wphttp",
	Short: "Find and fix http:// links left behind on an https WordPress site.",
	Long: LOGO + `wphttp scans the options, widgets, posts and post metadata of a WordPress
database for links to the insecure version of the site, and rewrites them.

Serialized values are rewritten with their lengths recomputed; values that
cannot be decoded safely are reported and left alone.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wphttp.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().StringP("dbpath", "d", "", "Path to the WordPress SQLite database")
	rootCmd.PersistentFlags().String("prefix", storage.DefaultPrefix, "WordPress table prefix")
	rootCmd.PersistentFlags().StringP("site", "s", "", "Site URL (default: the home option stored in the database)")

	viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("dbpath"))
	viper.BindPFlag("db.prefix", rootCmd.PersistentFlags().Lookup("prefix"))
	viper.BindPFlag("site.url", rootCmd.PersistentFlags().Lookup("site"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Defaults first, so a freshly written config file carries them.
	viper.SetDefault("db.path", "")
	viper.SetDefault("db.prefix", storage.DefaultPrefix)
	viper.SetDefault("db.busy_timeout", storage.DefaultBusyTimeout)
	viper.SetDefault("site.url", "")
	viper.SetDefault("report.links_per_page", defaultLinksPerPage)
	viper.SetDefault("widgets.title_priority", kindNames(scan.DefaultTitlePriority))
	viper.SetDefault("probe.timeout", "15s")
	viper.SetDefault("probe.retries", 2)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".wphttp")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("wphttp")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.wphttp.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

func kindNames(kinds []scan.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
