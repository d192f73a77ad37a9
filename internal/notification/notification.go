package notification

import (
	"context"
	"log/slog"
)

// Notification kinds emitted by the ledger-facing services.
const (
	// KindWalletCredited indicates a committed credit posting.
	KindWalletCredited = "wallet_credited"
	// KindWalletDebited indicates a committed debit posting.
	KindWalletDebited = "wallet_debited"
	// KindTopupApproved indicates a balance request reached APPROVED.
	KindTopupApproved = "topup_approved"
	// KindTopupRejected indicates a balance request reached REJECTED.
	KindTopupRejected = "topup_rejected"
	// KindPurchaseCompleted indicates a service purchase succeeded.
	KindPurchaseCompleted = "purchase_completed"
	// KindPurchaseFailed indicates a service purchase failed after compensation.
	KindPurchaseFailed = "purchase_failed"
)

// Message describes a user-facing notification payload. Amount and Balance
// are in minor currency units; Reference carries the voucher code or request
// id when relevant.
type Message struct {
	Kind        string
	Destination string
	Amount      int64
	Balance     int64
	Reference   string
	Body        string
}

// Notifier delivers notifications to downstream systems. Senders must treat
// delivery as best effort: a failed send never affects ledger state.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"amount", message.Amount,
		"balance", message.Balance,
		"reference", message.Reference,
		"body", message.Body,
	)
	return nil
}
