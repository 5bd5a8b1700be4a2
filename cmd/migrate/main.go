// Command migrate applies the embedded schema migrations.
//
//	migrate [up|status]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/kidsstudy/kidsstudy/migrations"
)

func main() {
	_ = godotenv.Load()

	databaseURL := flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	timeout := flag.Duration("timeout", time.Minute, "Overall timeout")
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := migrations.Open(*databaseURL)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	switch command {
	case "up":
		err = migrations.Up(ctx, db, logger)
	case "status":
		err = migrations.Status(ctx, db, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q; use up or status\n", command)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration failed", "command", command, "error", err)
		os.Exit(1)
	}
}
