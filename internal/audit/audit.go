package audit

import (
	"context"
	"log/slog"
	"time"
)

// Admin actions recorded against the ledger.
const (
	ActionTopupApproved   = "topup.approved"
	ActionTopupRejected   = "topup.rejected"
	ActionWalletSuspended = "wallet.suspended"
	ActionWalletResumed   = "wallet.resumed"
	ActionManualCredit    = "wallet.manual_credit"
	ActionManualDebit     = "wallet.manual_debit"
	ActionStockLoaded     = "voucher.stock_loaded"
)

// Event is one admin-attributable action against the ledger. Persistence is
// an external collaborator's concern; this package only emits.
type Event struct {
	Actor      string
	Action     string
	Target     string
	Reason     string
	SourceAddr string
	At         time.Time
}

// Recorder hands audit events to the external audit collaborator.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LoggerRecorder emits audit events to the structured log. It stands in for
// the external audit store during tests and local runs.
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder constructs a logging audit recorder.
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	return &LoggerRecorder{logger: logger}
}

// Record writes the event to the structured logger.
func (r *LoggerRecorder) Record(_ context.Context, event Event) {
	if r == nil || r.logger == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	r.logger.Info("audit",
		"actor", event.Actor,
		"action", event.Action,
		"target", event.Target,
		"reason", event.Reason,
		"source_addr", event.SourceAddr,
		"at", event.At,
	)
}
