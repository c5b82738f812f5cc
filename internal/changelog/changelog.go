// Package changelog appends every change a run applied to a BigQuery table.
package changelog

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/ledger-sync/internal/ledgersync"
	"github.com/dvloznov/ledger-sync/internal/logger"
)

// RowInserter streams rows into a table. *bigquery.Inserter satisfies it.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Changelog is a ledgersync.Recorder writing ChangeRows.
type Changelog struct {
	inserter RowInserter
	client   *bigquery.Client
}

// Ensure Changelog implements ledgersync.Recorder
var _ ledgersync.Recorder = (*Changelog)(nil)

// NewChangelog creates a Changelog on top of an existing inserter.
func NewChangelog(inserter RowInserter) *Changelog {
	return &Changelog{inserter: inserter}
}

// NewBigQueryChangelog opens a BigQuery client and targets
// project.dataset.table.
func NewBigQueryChangelog(ctx context.Context, projectID, datasetID, tableID string) (*Changelog, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryChangelog: bigquery client: %w", err)
	}

	// Use fully qualified table name to avoid project ID issues
	table := client.DatasetInProject(projectID, datasetID).Table(tableID)
	return &Changelog{inserter: table.Inserter(), client: client}, nil
}

// Close closes the BigQuery client connection.
func (c *Changelog) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Name implements ledgersync.Recorder.
func (c *Changelog) Name() string { return "changelog" }

// Record implements ledgersync.Recorder.
func (c *Changelog) Record(ctx context.Context, report *ledgersync.RunReport) error {
	rows := Rows(report.RunID, report.Delta, report.FinishedAt)
	if len(rows) == 0 {
		return nil
	}

	if err := c.inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("Changelog: inserting %d rows: %w", len(rows), err)
	}

	log := logger.FromContext(ctx)
	log.Info().Int("rows", len(rows)).Msg("Recorded change log")
	return nil
}
