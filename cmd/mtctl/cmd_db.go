package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	rootdb "github.com/garnizeh/trailblazers/db"
	"github.com/garnizeh/trailblazers/internal/db"
	"github.com/garnizeh/trailblazers/internal/logging"
)

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations and taxonomy seeds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			d, err := db.New(cmd.Context(), cfg.DatabasePath, logging.New(cmd.ErrOrStderr(), c.logLevel, "text"))
			if err != nil {
				return err
			}
			defer d.Close()

			if err := db.Migrate(cmd.Context(), d, rootdb.Migrations, rootdb.SeedFiles); err != nil {
				return err
			}
			success(cmd, "Database %s is up to date.", cfg.DatabasePath)
			return nil
		},
	}
}

func (c *cli) dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Back up or restore the database file",
	}

	backup := &cobra.Command{
		Use:   "backup [destination]",
		Short: "Write a consistent copy of the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			dst := cfg.DatabasePath + "." + time.Now().Format("20060102-150405") + ".bak"
			if len(args) == 1 {
				dst = args[0]
			}

			d, err := db.New(cmd.Context(), cfg.DatabasePath, logging.New(cmd.ErrOrStderr(), c.logLevel, "text"))
			if err != nil {
				return err
			}
			defer d.Close()

			if err := d.Backup(cmd.Context(), dst); err != nil {
				return err
			}
			success(cmd, "Backup written to %s.", dst)
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace the database file with a backup; stop the server first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if err := db.Restore(args[0], cfg.DatabasePath); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			success(cmd, "Database %s restored from %s.", cfg.DatabasePath, args[0])
			return nil
		},
	}

	cmd.AddCommand(backup, restore)
	return cmd
}
