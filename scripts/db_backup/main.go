package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/garnizeh/trailblazers/internal/config"
	"github.com/garnizeh/trailblazers/internal/db"
)

func main() {
	ctx := context.Background()
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	dst := cfg.DatabasePath + "." + time.Now().Format("20060102-150405") + ".bak"
	if len(os.Args) > 1 {
		dst = os.Args[1]
	}

	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.Backup(ctx, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup written to %s.\n", dst)
}
