package main

import (
	"fmt"
	"os"

	"github.com/hugh/rateboard/internal/database"
	"github.com/hugh/rateboard/pkg/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	var databaseURL string

	resolveURL := func() (string, error) {
		if databaseURL != "" {
			return databaseURL, nil
		}
		cfg, err := config.Load()
		if err != nil {
			return "", err
		}
		return cfg.Database.URL(), nil
	}

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the rateboard database schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", "", "postgres:// URL (defaults to DATABASE_* settings)")

	for _, direction := range []string{"up", "down"} {
		direction := direction
		root.AddCommand(&cobra.Command{
			Use:   direction,
			Short: fmt.Sprintf("Apply every %s migration", direction),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				url, err := resolveURL()
				if err != nil {
					return err
				}
				if err := database.Migrate(url, direction); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", direction)
				return nil
			},
		})
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := resolveURL()
			if err != nil {
				return err
			}
			version, dirty, err := database.MigrationVersion(url)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
