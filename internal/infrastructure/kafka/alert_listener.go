package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/event"
	pkgkafka "github.com/bibbank/fraudledger/pkg/kafka"
)

// EscalationThreshold is the confidence at which a detected fraud is
// escalated instead of just noted.
var EscalationThreshold = decimal.RequireFromString("0.8")

// AlertListener consumes fraud events from the alert topic. Its Handle
// method is a pkg/kafka Handler.
type AlertListener struct {
	logger *slog.Logger
}

// NewAlertListener creates a new AlertListener.
func NewAlertListener(logger *slog.Logger) *AlertListener {
	return &AlertListener{logger: logger}
}

// Handle processes one message. Events other than fraud.detected are
// acknowledged without action.
func (l *AlertListener) Handle(ctx context.Context, msg pkgkafka.Message) error {
	if msg.Headers["event_type"] != event.EventTypeFraudDetected {
		return nil
	}

	var evt event.FraudDetected
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", event.EventTypeFraudDetected, err)
	}

	attrs := []any{
		slog.String("alert_id", evt.AlertID),
		slog.String("transaction_id", evt.TransactionID),
		slog.String("subject_id", evt.SubjectID),
		slog.String("confidence", evt.Confidence.String()),
		slog.String("severity", evt.Severity),
		slog.Any("triggered_rules", evt.TriggeredRules),
	}

	if evt.Confidence.GreaterThanOrEqual(EscalationThreshold) {
		l.logger.ErrorContext(ctx, "high confidence fraud escalated", attrs...)
		return nil
	}
	l.logger.WarnContext(ctx, "fraud alert received", attrs...)
	return nil
}
