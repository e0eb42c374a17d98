package ml

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/service"
)

var (
	baseScore = decimal.RequireFromString("0.05")

	ratioWeights = []struct {
		atLeast decimal.Decimal
		weight  decimal.Decimal
	}{
		{decimal.NewFromInt(10), decimal.RequireFromString("0.45")},
		{decimal.NewFromInt(5), decimal.RequireFromString("0.30")},
		{decimal.NewFromInt(3), decimal.RequireFromString("0.15")},
	}

	categoryWeights = map[string]decimal.Decimal{
		"MEDIUM":   decimal.RequireFromString("0.05"),
		"HIGH":     decimal.RequireFromString("0.20"),
		"CRITICAL": decimal.RequireFromString("0.35"),
	}

	largeAmount       = decimal.NewFromInt(10000)
	largeAmountWeight = decimal.RequireFromString("0.20")
	nightWeight       = decimal.RequireFromString("0.10")
	merchantWeight    = decimal.RequireFromString("0.20")
)

// HeuristicClient implements port.ModelClient with a fixed additive model
// over the feature vector. It stands in for a hosted model where none is
// deployed.
type HeuristicClient struct {
	logger *slog.Logger
}

// NewHeuristicClient creates a new HeuristicClient.
func NewHeuristicClient(logger *slog.Logger) *HeuristicClient {
	return &HeuristicClient{logger: logger}
}

// Predict returns a fraud probability in [0, 1]. Missing or mistyped
// features contribute nothing.
func (c *HeuristicClient) Predict(ctx context.Context, features map[string]interface{}) (float64, error) {
	score := baseScore

	amount := decimalFeature(features, "amount")
	if avg := decimalFeature(features, "personal_average"); avg.IsPositive() {
		ratio := amount.Div(avg)
		for _, w := range ratioWeights {
			if ratio.GreaterThanOrEqual(w.atLeast) {
				score = score.Add(w.weight)
				break
			}
		}
	}
	if amount.GreaterThanOrEqual(largeAmount) {
		score = score.Add(largeAmountWeight)
	}

	if level, ok := features["category_risk"].(string); ok {
		score = score.Add(categoryWeights[level])
	}
	if hour, ok := features["hour"].(int); ok && (hour >= 23 || hour <= 5) {
		score = score.Add(nightWeight)
	}
	if name, ok := features["merchant_name"].(string); ok && service.IsSuspiciousMerchantName(name) {
		score = score.Add(merchantWeight)
	}

	if score.GreaterThan(decimal.NewFromInt(1)) {
		score = decimal.NewFromInt(1)
	}
	score = score.Round(2)

	c.logger.DebugContext(ctx, "model prediction",
		slog.Int("feature_count", len(features)),
		slog.String("score", score.String()),
	)
	return score.InexactFloat64(), nil
}

func decimalFeature(features map[string]interface{}, key string) decimal.Decimal {
	switch v := features[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case decimal.Decimal:
		return v
	default:
		return decimal.Zero
	}
}

var _ port.ModelClient = (*HeuristicClient)(nil)
