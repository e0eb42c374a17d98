package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/model"
	"github.com/bibbank/fraudledger/internal/domain/port"
)

// ModelRuleName is the name the model-assisted rule reports.
const ModelRuleName = "Model-Assisted Rule"

// DefaultModelThreshold is the prediction at or above which the rule trips.
var DefaultModelThreshold = decimal.RequireFromString("0.5")

// ModelRule delegates the fraud call to an external model. Prediction
// failures surface as rule errors, so the engine carries on without it.
type ModelRule struct {
	client    port.ModelClient
	threshold decimal.Decimal
}

// NewModelRule creates a ModelRule. A threshold outside (0, 1] falls back to
// DefaultModelThreshold.
func NewModelRule(client port.ModelClient, threshold decimal.Decimal) *ModelRule {
	if !threshold.IsPositive() || threshold.GreaterThan(decimalOne) {
		threshold = DefaultModelThreshold
	}
	return &ModelRule{client: client, threshold: threshold}
}

func (r *ModelRule) Name() string { return ModelRuleName }

func (r *ModelRule) Evaluate(ctx context.Context, tx *model.Transaction) (bool, error) {
	p, err := r.predict(ctx, tx)
	if err != nil {
		return false, err
	}
	return p.GreaterThanOrEqual(r.threshold), nil
}

func (r *ModelRule) Confidence(ctx context.Context, tx *model.Transaction) (decimal.Decimal, error) {
	return r.predict(ctx, tx)
}

func (r *ModelRule) predict(ctx context.Context, tx *model.Transaction) (decimal.Decimal, error) {
	features := map[string]interface{}{
		"amount":           tx.Amount().InexactFloat64(),
		"personal_average": tx.PersonalAverage().InexactFloat64(),
		"category_code":    tx.CategoryCode(),
		"category_risk":    tx.CategoryRisk().String(),
		"merchant_name":    tx.MerchantName(),
		"payment_method":   tx.PaymentMethod().String(),
		"hour":             tx.Timestamp().UTC().Hour(),
		"subject_id":       tx.SubjectID(),
	}

	score, err := r.client.Predict(ctx, features)
	if err != nil {
		return decimal.Zero, fmt.Errorf("model prediction failed: %w", err)
	}
	return clampUnit(decimal.NewFromFloat(score)).Round(2), nil
}
