package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/fraudledger/internal/domain/model"
)

// ResolveAlertRequest is the input DTO for closing an alert.
type ResolveAlertRequest struct {
	AlertID    uuid.UUID `json:"alert_id"`
	ResolvedBy string    `json:"resolved_by"`
	Resolution string    `json:"resolution"`
}

// AlertResponse is the output DTO for a fraud alert.
type AlertResponse struct {
	AlertTime      time.Time  `json:"alert_time"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	TriggeredRules []string   `json:"triggered_rules"`
	ID             uuid.UUID  `json:"id"`
	SubjectID      string     `json:"subject_id"`
	TransactionID  string     `json:"transaction_id"`
	AlertType      string     `json:"alert_type"`
	Description    string     `json:"description"`
	Severity       string     `json:"severity"`
	Confidence     string     `json:"confidence"`
	Amount         string     `json:"amount"`
	Status         string     `json:"status"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
}

// FromAlert maps a domain alert to the response DTO.
func FromAlert(a *model.FraudAlert) AlertResponse {
	return AlertResponse{
		ID:             a.ID(),
		SubjectID:      a.SubjectID(),
		TransactionID:  a.TransactionID(),
		AlertType:      a.AlertType(),
		Description:    a.Description(),
		TriggeredRules: a.TriggeredRules(),
		Severity:       a.Severity().String(),
		Confidence:     a.Confidence().StringFixed(2),
		Amount:         a.Amount().String(),
		AlertTime:      a.AlertTime(),
		Status:         a.Status().String(),
		ResolvedAt:     a.ResolvedAt(),
		ResolvedBy:     a.ResolvedBy(),
	}
}

// FromAlerts maps a slice of alerts.
func FromAlerts(alerts []*model.FraudAlert) []AlertResponse {
	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, FromAlert(a))
	}
	return out
}
