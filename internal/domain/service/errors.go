package service

import (
	"errors"
	"fmt"

	"github.com/bibbank/fraudledger/internal/domain/model"
)

var (
	// ErrPolicyNotFound is returned for unknown policy identifiers.
	ErrPolicyNotFound = fmt.Errorf("policy %w", model.ErrNotFound)

	// ErrSerialization is returned when a payload cannot be encoded into a
	// block. The ledger tip is unchanged when it is returned.
	ErrSerialization = errors.New("payload serialization failed")

	// ErrRuleEvaluation wraps failures raised by individual rules. The engine
	// only logs it.
	ErrRuleEvaluation = errors.New("rule evaluation failed")
)
