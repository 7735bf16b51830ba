// Command mtctl is the operator CLI for the Mobility Trailblazers award
// database: migrations, user and candidate imports, assignments, exports and
// data-integrity repairs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/garnizeh/trailblazers/internal/app"
	"github.com/garnizeh/trailblazers/internal/config"
	"github.com/garnizeh/trailblazers/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cli struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "mtctl",
		Short:         "Administer the Mobility Trailblazers award database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config YAML file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level written to stderr")

	root.AddCommand(
		c.migrateCmd(),
		c.dbCmd(),
		c.usersCmd(),
		c.importCmd(),
		c.photosCmd(),
		c.exportCmd(),
		c.assignCmd(),
		c.diagnoseCmd(),
		c.fixCmd(),
		c.remindersCmd(),
	)
	return root
}

func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// open builds the application without starting the job workers; queued jobs
// are picked up by the server.
func (c *cli) open(cmd *cobra.Command) (*app.App, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cmd.ErrOrStderr(), c.logLevel, "text")
	return app.New(cmd.Context(), cfg, logger)
}

func success(cmd *cobra.Command, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

func warn(cmd *cobra.Command, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

func heading(cmd *cobra.Command, title string) {
	color.New(color.FgCyan, color.Bold).Fprintf(cmd.OutOrStdout(), "\n%s\n", title)
}
