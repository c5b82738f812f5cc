// Package archive keeps a JSON copy of every completed run in Cloud Storage.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/dvloznov/ledger-sync/internal/domain"
	"github.com/dvloznov/ledger-sync/internal/ledgersync"
	"github.com/dvloznov/ledger-sync/internal/logger"
)

const (
	objectPrefix = "runs"
	contentType  = "application/json"
)

// Archiver is a ledgersync.Recorder that uploads run reports.
type Archiver struct {
	store  ObjectStore
	bucket string
}

// Ensure Archiver implements ledgersync.Recorder
var _ ledgersync.Recorder = (*Archiver)(nil)

// NewArchiver creates an Archiver writing to bucket.
func NewArchiver(store ObjectStore, bucket string) *Archiver {
	return &Archiver{store: store, bucket: bucket}
}

// Name implements ledgersync.Recorder.
func (a *Archiver) Name() string { return "archive" }

// document is the archived form of a run: the report plus the changes that
// were applied.
type document struct {
	*ledgersync.RunReport
	Changes changes `json:"changes"`
}

type changes struct {
	Added    []domain.Transaction `json:"added"`
	Modified []domain.Transaction `json:"modified"`
	Deleted  []string             `json:"deleted"`
}

// ObjectName returns where a report is stored: runs/<start date>/<run id>.json.
func ObjectName(report *ledgersync.RunReport) string {
	return path.Join(objectPrefix, report.StartedAt.UTC().Format("2006-01-02"), report.RunID+".json")
}

// Record implements ledgersync.Recorder.
func (a *Archiver) Record(ctx context.Context, report *ledgersync.RunReport) error {
	doc := document{RunReport: report}
	if report.Delta != nil {
		doc.Changes = changes{
			Added:    report.Delta.Added.Values(),
			Modified: report.Delta.Modified,
			Deleted:  report.Delta.Deleted.Sorted(),
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("Archive: encoding report: %w", err)
	}

	object := ObjectName(report)
	if err := a.store.WriteObject(ctx, a.bucket, object, contentType, data); err != nil {
		return fmt.Errorf("Archive: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("object", "gs://"+a.bucket+"/"+object).
		Int("bytes", len(data)).
		Msg("Archived run report")
	return nil
}
