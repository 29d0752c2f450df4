// Command ledgerctl manages users, accounts, payment methods and transactions of a
// wallet database from the shell.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/NgigiN/wallet/internal/cli"
	"github.com/NgigiN/wallet/internal/config"
	"github.com/NgigiN/wallet/internal/ledger"
	"github.com/NgigiN/wallet/internal/lock"
	"github.com/NgigiN/wallet/internal/logging"
	"github.com/NgigiN/wallet/internal/storage"
	"github.com/google/subcommands"
)

func main() {
	os.Exit(int(run()))
}

func run() subcommands.ExitStatus {
	configPath := flag.String("config", "", "optional YAML config file")
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	// commands are registered before parsing so -help lists them; the app they share
	// is filled in once the configuration is known
	app := &cli.App{Out: os.Stdout, Err: os.Stderr}
	cli.Register(commander, app)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	log := logging.New(cfg.Log.Level, os.Stderr)
	ctx := context.Background()

	db, err := storage.NewDatabase(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open the database: %v\n", err)
		return subcommands.ExitFailure
	}
	defer db.Close()

	locks, closeLocks, err := lock.Open(ctx, cfg.Lock, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize locks: %v\n", err)
		return subcommands.ExitFailure
	}
	defer closeLocks()

	app.Dir = db
	app.Ledger = ledger.NewRecorder(db, locks, log)
	app.Currency = cfg.Currency
	app.Attempts = cfg.Retry.Attempts
	return commander.Execute(ctx)
}
