package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// AlertStore is an in-memory fraud alert store.
type AlertStore struct {
	mu     sync.RWMutex
	alerts map[uuid.UUID]*model.FraudAlert
}

// NewAlertStore creates an empty in-memory alert store.
func NewAlertStore() *AlertStore {
	return &AlertStore{alerts: make(map[uuid.UUID]*model.FraudAlert)}
}

func (s *AlertStore) Save(_ context.Context, alert *model.FraudAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[alert.ID()] = cloneAlert(alert)
	return nil
}

func (s *AlertStore) FindByID(_ context.Context, id uuid.UUID) (*model.FraudAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, model.ErrNotFound)
	}
	return cloneAlert(a), nil
}

func (s *AlertStore) FindBySubject(_ context.Context, subjectID string) ([]*model.FraudAlert, error) {
	return s.filter(func(a *model.FraudAlert) bool { return a.SubjectID() == subjectID }), nil
}

func (s *AlertStore) FindOpen(_ context.Context) ([]*model.FraudAlert, error) {
	return s.filter(func(a *model.FraudAlert) bool {
		return a.Status().Equal(valueobject.AlertOpen)
	}), nil
}

func (s *AlertStore) FindBySeverity(_ context.Context, severity valueobject.AlertSeverity) ([]*model.FraudAlert, error) {
	return s.filter(func(a *model.FraudAlert) bool { return a.Severity().Equal(severity) }), nil
}

func (s *AlertStore) filter(keep func(*model.FraudAlert) bool) []*model.FraudAlert {
	s.mu.RLock()
	var out []*model.FraudAlert
	for _, a := range s.alerts {
		if keep(a) {
			out = append(out, cloneAlert(a))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].AlertTime().After(out[j].AlertTime())
	})
	return out
}

func cloneAlert(a *model.FraudAlert) *model.FraudAlert {
	rules := make([]string, len(a.TriggeredRules()))
	copy(rules, a.TriggeredRules())

	return model.ReconstructFraudAlert(
		a.ID(),
		a.SubjectID(),
		a.TransactionID(),
		a.AlertType(),
		a.Description(),
		rules,
		a.Severity(),
		a.Confidence(),
		a.Amount(),
		a.AlertTime(),
		a.Status(),
		a.ResolvedAt(),
		a.ResolvedBy(),
	)
}

var _ port.AlertStore = (*AlertStore)(nil)
