// Command migrate manages the database schema.
//
//	migrate up              apply pending SQL migrations
//	migrate down -version N revert the latest migration (N must match it)
//	migrate auto            run model auto-migration regardless of DB_SCHEMA_MODE
//	migrate status          print the schema plan and pending migrations
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"skillswap/internal/config"
	"skillswap/internal/database"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage: migrate <up|down|auto|status> [flags]")

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	sub, args := args[0], args[1:]

	fs := flag.NewFlagSet("migrate "+sub, flag.ContinueOnError)
	version := fs.Int("version", 0, "migration version to revert (down only)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer func() { _ = sqlDB.Close() }()
	}

	m := database.NewMigrator(db, database.GetMigrations())
	switch sub {
	case "up":
		n, err := m.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s)\n", n)
	case "down":
		if *version <= 0 {
			return errors.New("down requires -version")
		}
		if err := m.Down(ctx, *version); err != nil {
			return err
		}
		fmt.Printf("reverted migration %d\n", *version)
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return err
		}
		fmt.Println("models auto-migrated")
	case "status":
		st, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("mode=%s env=%s sql=%t auto=%t applied=%v\n",
			st.Mode, st.Environment, st.SQL, st.AutoMigrate, st.AppliedVersions)
		for _, p := range st.PendingMigrations {
			fmt.Println("pending", p)
		}
	default:
		return errUsage
	}
	return nil
}
