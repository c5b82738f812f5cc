package sheets

import "time"

// NewLedgerWithMeterProvider creates a Ledger reporting to a specific provider.
var NewLedgerWithMeterProvider = newLedger

// SetNow replaces the clock used for the last-run timestamp.
func SetNow(l *Ledger, now func() time.Time) {
	l.now = now
}
