package notification

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mfs-core/mfs_ledger/internal/domain"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	EntryID     string
	Body        string
}

// KindFor names the notification emitted for a completed transfer type.
func KindFor(t domain.EntryType) string {
	return "transfer." + strings.ToLower(string(t))
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("destination", message.Destination),
		slog.String("entry_id", message.EntryID),
		slog.String("body", message.Body),
	)
	return nil
}
