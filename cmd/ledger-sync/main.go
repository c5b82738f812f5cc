package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/ledger-sync/internal/archive"
	"github.com/dvloznov/ledger-sync/internal/changelog"
	"github.com/dvloznov/ledger-sync/internal/config"
	"github.com/dvloznov/ledger-sync/internal/ledgersync"
	"github.com/dvloznov/ledger-sync/internal/logger"
	"github.com/dvloznov/ledger-sync/internal/plaidsync"
	"github.com/dvloznov/ledger-sync/internal/sheets"
)

// runTimeout bounds a whole run so a scheduled job never hangs.
const runTimeout = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New(logger.ParseLevel(""))
		bootstrap.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize structured logger
	log := logger.New(logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, runTimeout)

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	// run returns before Fatal so its deferred Close calls still happen
	err = run(ctx, cfg)
	cancel()
	stop()
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("plaid_env", cfg.Plaid.Environment).
		Int("credentials", len(cfg.Plaid.AccessTokens)).
		Str("worksheet", cfg.Sheets.TransactionsWorksheet).
		Msg("Starting Plaid to Google Sheets sync")

	spreadsheet, err := sheets.Open(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetKey)
	if err != nil {
		return fmt.Errorf("opening spreadsheet: %w", err)
	}
	txSheet, err := spreadsheet.Worksheet(ctx, cfg.Sheets.TransactionsWorksheet)
	if err != nil {
		return fmt.Errorf("opening transactions worksheet: %w", err)
	}
	metaSheet, err := spreadsheet.Worksheet(ctx, cfg.Sheets.MetaWorksheet)
	if err != nil {
		return fmt.Errorf("opening cursor worksheet: %w", err)
	}

	plaidClient, err := plaidsync.NewPlaidClient(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Environment)
	if err != nil {
		return err
	}

	var recorders []ledgersync.Recorder

	if cfg.Archive.Bucket != "" {
		store, err := archive.NewGCSObjectStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		recorders = append(recorders, archive.NewArchiver(store, cfg.Archive.Bucket))
	}

	if cfg.Changelog.Enabled() {
		cl, err := changelog.NewBigQueryChangelog(ctx, cfg.Changelog.ProjectID, cfg.Changelog.DatasetID, cfg.Changelog.TableID)
		if err != nil {
			return err
		}
		defer cl.Close()
		recorders = append(recorders, cl)
	}

	runner := ledgersync.NewRunner(
		sheets.NewLedger(txSheet, metaSheet),
		plaidsync.NewFetcher(plaidClient),
		cfg.Plaid.AccessTokens,
		recorders...,
	)

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("appended", report.Apply.Appended).
		Int("updated", report.Apply.Updated).
		Int("deleted", report.Apply.Deleted).
		Msg("Sync completed successfully")
	return nil
}
