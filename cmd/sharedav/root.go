package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/panshare/sharedav/internal/store"
	"github.com/panshare/sharedav/internal/store/postgres"
	"github.com/panshare/sharedav/internal/store/sqlite"
)

// Global scope flags.
var (
	storeDriver string
	databaseURL string
	sqlitePath  string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "sharedav",
	Short: "Manage the sharedav record store",
	Long: `sharedav manages the share records served by the sharedav WebDAV server.

It adds, lists, searches, hides and removes stored share codes, and converts
shares to and from the FastLink interchange format.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store", envOr("STORE_DRIVER", "sqlite"), "record store driver (sqlite or postgres)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", envOr("SQLITE_PATH", "/data/sharedav.db"), "SQLite database path")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// openStore connects to the configured record store.
func openStore() (store.Store, error) {
	switch storeDriver {
	case "sqlite":
		return sqlite.New(sqlitePath)
	case "postgres":
		if databaseURL == "" {
			return nil, fmt.Errorf("--database-url is required with the postgres driver")
		}
		return postgres.New(databaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", storeDriver)
	}
}
