package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NgigiN/wallet/internal/config"
	"github.com/NgigiN/wallet/internal/discord"
	"github.com/NgigiN/wallet/internal/httpapi"
	"github.com/NgigiN/wallet/internal/ledger"
	"github.com/NgigiN/wallet/internal/lock"
	"github.com/NgigiN/wallet/internal/logging"
	"github.com/NgigiN/wallet/internal/mpesa"
	"github.com/NgigiN/wallet/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logging.New(cfg.Log.Level, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.NewDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize the database: %w", err)
	}
	defer db.Close()

	locks, closeLocks, err := lock.Open(ctx, cfg.Lock, logging.Component(log, "lock"))
	if err != nil {
		return fmt.Errorf("failed to initialize locks: %w", err)
	}
	defer closeLocks()

	rec := ledger.NewRecorder(db, locks, logging.Component(log, "recorder"))
	opts := httpapi.Options{
		Mode:      cfg.HTTP.Mode,
		Currency:  cfg.Currency,
		Attempts:  cfg.Retry.Attempts,
		Connected: map[string]func() bool{},
	}

	if cfg.Discord.Token != "" {
		booking := mpesa.Booking{User: cfg.Discord.User, Payment: cfg.Mpesa.Payment, Account: cfg.Mpesa.Account}
		handler := discord.NewHandler(rec, booking, cfg.Currency, cfg.Retry.Attempts, logging.Component(log, "discord"))
		bot, err := discord.NewBot(cfg.Discord, handler, logging.Component(log, "discord"))
		if err != nil {
			return fmt.Errorf("failed to initialize the discord bot: %w", err)
		}
		if err := bot.Start(); err != nil {
			return fmt.Errorf("failed to start bot: %w", err)
		}
		defer bot.Stop()
		opts.Connected["discord"] = bot.Connected
	} else {
		log.Info().Msg("discord token not set, bot disabled")
	}

	srv := httpapi.NewServer(db, rec, opts, logging.Component(log, "http")).HTTPServer(cfg.HTTP.Addr)
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
