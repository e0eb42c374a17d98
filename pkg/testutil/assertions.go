package testutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequireNoError fails the test immediately if err is not nil.
func RequireNoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	require.NoError(t, err, msgAndArgs...)
}

// AssertErrorContains checks that err contains the expected substring.
func AssertErrorContains(t *testing.T, err error, expected string) {
	t.Helper()
	assert.Error(t, err)
	if err != nil {
		assert.Contains(t, err.Error(), expected)
	}
}

// AssertDecimalEqual compares got with a decimal literal numerically, so
// "0.85" equals "0.8500".
func AssertDecimalEqual(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) bool {
	t.Helper()
	w := decimal.RequireFromString(want)
	if w.Equal(got) {
		return true
	}
	return assert.Fail(t, "decimals differ: want "+w.String()+", got "+got.String(), msgAndArgs...)
}
