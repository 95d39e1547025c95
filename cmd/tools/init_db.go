package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/exdock/exdock/internal"
)

// initDBCommand applies the catalog schema. The statements are idempotent so
// re-running against an initialized database is safe.
func initDBCommand(args []string) {
	fs := flag.NewFlagSet("init-db", flag.ExitOnError)
	databaseURL := fs.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (defaults to DATABASE_URL)")
	timeout := fs.Duration("timeout", 30*time.Second, "overall timeout for schema application")
	fs.Parse(args)

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "init-db: -database-url or DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init-db: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, internal.SchemaDDL()); err != nil {
		fmt.Fprintf(os.Stderr, "init-db: failed to apply schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("catalog schema applied")
}

func printDDLCommand() {
	fmt.Print(internal.SchemaDDL())
}
