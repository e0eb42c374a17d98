package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/fraudledger/internal/application/dto"
	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// ManageAlerts covers the investigation workflow for fraud alerts.
type ManageAlerts struct {
	alerts    port.AlertStore
	publisher port.EventPublisher
	logger    *slog.Logger
}

// NewManageAlerts creates a new ManageAlerts use case.
func NewManageAlerts(alerts port.AlertStore, publisher port.EventPublisher, logger *slog.Logger) *ManageAlerts {
	return &ManageAlerts{alerts: alerts, publisher: publisher, logger: logger}
}

// BySubject returns a subject's alerts, newest first.
func (uc *ManageAlerts) BySubject(ctx context.Context, subjectID string) ([]dto.AlertResponse, error) {
	alerts, err := uc.alerts.FindBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find alerts: %w", err)
	}
	return dto.FromAlerts(alerts), nil
}

// Open returns every open alert.
func (uc *ManageAlerts) Open(ctx context.Context) ([]dto.AlertResponse, error) {
	alerts, err := uc.alerts.FindOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find open alerts: %w", err)
	}
	return dto.FromAlerts(alerts), nil
}

// BySeverity returns alerts of one severity band.
func (uc *ManageAlerts) BySeverity(ctx context.Context, severity string) ([]dto.AlertResponse, error) {
	s, err := valueobject.AlertSeverityFromString(strings.ToUpper(strings.TrimSpace(severity)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
	}
	alerts, err := uc.alerts.FindBySeverity(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to find alerts: %w", err)
	}
	return dto.FromAlerts(alerts), nil
}

// Resolve closes an alert and publishes the resolution.
func (uc *ManageAlerts) Resolve(ctx context.Context, req dto.ResolveAlertRequest) (dto.AlertResponse, error) {
	if req.AlertID == uuid.Nil {
		return dto.AlertResponse{}, fmt.Errorf("%w: alert ID is required", model.ErrValidation)
	}

	alert, err := uc.alerts.FindByID(ctx, req.AlertID)
	if err != nil {
		return dto.AlertResponse{}, fmt.Errorf("failed to find alert: %w", err)
	}

	if err := alert.Resolve(req.ResolvedBy, req.Resolution, time.Now()); err != nil {
		return dto.AlertResponse{}, fmt.Errorf("failed to resolve alert: %w", err)
	}
	if err := uc.alerts.Save(ctx, alert); err != nil {
		return dto.AlertResponse{}, fmt.Errorf("failed to save alert: %w", err)
	}

	if evts := alert.ClearEvents(); len(evts) > 0 {
		if err := uc.publisher.Publish(ctx, evts...); err != nil {
			uc.logger.Warn("failed to publish alert resolution",
				slog.String("alert_id", alert.ID().String()),
				slog.String("error", err.Error()),
			)
		}
	}

	return dto.FromAlert(alert), nil
}
