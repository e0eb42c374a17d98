package ml_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/fraudledger/internal/infrastructure/ml"
)

func TestHeuristicClient_Predict(t *testing.T) {
	client := ml.NewHeuristicClient(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name     string
		features map[string]interface{}
		expected float64
	}{
		{
			name:     "no features",
			features: map[string]interface{}{},
			expected: 0.05,
		},
		{
			name: "ordinary daytime purchase",
			features: map[string]interface{}{
				"amount": 40.0, "personal_average": 35.0, "category_risk": "LOW",
				"hour": 14, "merchant_name": "Corner Grocery",
			},
			expected: 0.05,
		},
		{
			name: "ten times the average in a high risk category",
			features: map[string]interface{}{
				"amount": 5000.0, "personal_average": 400.0, "category_risk": "HIGH", "hour": 12,
			},
			expected: 0.70,
		},
		{
			name: "five times the average at night",
			features: map[string]interface{}{
				"amount": 500.0, "personal_average": 100.0, "hour": 2,
			},
			expected: 0.45,
		},
		{
			name: "everything at once saturates",
			features: map[string]interface{}{
				"amount": 50000.0, "personal_average": 100.0, "category_risk": "CRITICAL",
				"hour": 23, "merchant_name": "offshore_gambling ltd",
			},
			expected: 1.0,
		},
		{
			name: "mistyped features are ignored",
			features: map[string]interface{}{
				"amount": "lots", "category_risk": 4, "hour": "midnight",
			},
			expected: 0.05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := client.Predict(context.Background(), tt.features)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, score, 1e-9)
		})
	}
}
