package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/myfruitshop/myfruitshop/db/migrations"
	"github.com/myfruitshop/myfruitshop/internal/app"
	"github.com/myfruitshop/myfruitshop/internal/platform/migrate"
)

func main() {
	if app.InTestMode() {
		return
	}

	command := flag.String("cmd", migrate.CmdUp, "goose command: up, down, status or version")
	dsn := flag.String("dsn", "", "postgres DSN (defaults to PG_DSN)")
	flag.Parse()

	if err := run(*command, *dsn); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(command, dsn string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Validate(migrations.FS); err != nil {
		return err
	}
	if command == "validate" {
		slog.Info("migrations valid")
		return nil
	}

	if dsn == "" {
		dsn = os.Getenv("PG_DSN")
	}
	if dsn == "" {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		dsn = cfg.PGDSN
	}

	db, err := migrate.Open(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return migrate.Run(ctx, db, command, flag.Args()...)
}
