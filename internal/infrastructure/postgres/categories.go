package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// CategoryDirectory resolves merchant category codes from the
// merchant_categories table. Codes are stored upper case.
type CategoryDirectory struct {
	pool *pgxpool.Pool
}

// NewCategoryDirectory creates a new PostgreSQL-backed category directory.
func NewCategoryDirectory(pool *pgxpool.Pool) *CategoryDirectory {
	return &CategoryDirectory{pool: pool}
}

func (d *CategoryDirectory) Resolve(ctx context.Context, categoryCode string) (valueobject.RiskLevel, bool, error) {
	var levelStr string
	err := d.pool.QueryRow(ctx,
		`SELECT risk_level FROM merchant_categories WHERE code = $1`,
		normalizeCode(categoryCode),
	).Scan(&levelStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return valueobject.RiskLevel{}, false, nil
		}
		return valueobject.RiskLevel{}, false, fmt.Errorf("failed to resolve category %s: %w", categoryCode, err)
	}

	level, err := valueobject.RiskLevelFromString(levelStr)
	if err != nil {
		return valueobject.RiskLevel{}, false, fmt.Errorf("failed to parse risk level of category %s: %w", categoryCode, err)
	}
	return level, true, nil
}

// Upsert adds or reclassifies one category.
func (d *CategoryDirectory) Upsert(ctx context.Context, code, name string, level valueobject.RiskLevel) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO merchant_categories (code, name, risk_level)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, risk_level = EXCLUDED.risk_level`,
		normalizeCode(code), name, level.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert category %s: %w", code, err)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var _ port.CategoryDirectory = (*CategoryDirectory)(nil)
