package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/bibbank/fraudledger/internal/domain/port"
	"github.com/bibbank/fraudledger/internal/domain/valueobject"
)

// Category is a merchant category with its risk classification.
type Category struct {
	Code  string
	Name  string
	Level valueobject.RiskLevel
}

// DefaultCategories is the directory every new deployment starts with.
// Both the short codes and their ISO 18245 equivalents are listed.
func DefaultCategories() []Category {
	return []Category{
		{"GRO", "Grocery Stores", valueobject.RiskLevelLow},
		{"5411", "Grocery Stores", valueobject.RiskLevelLow},
		{"RES", "Restaurants", valueobject.RiskLevelLow},
		{"5812", "Restaurants", valueobject.RiskLevelLow},
		{"GAS", "Fuel Stations", valueobject.RiskLevelMedium},
		{"5541", "Fuel Stations", valueobject.RiskLevelMedium},
		{"ELE", "Electronics", valueobject.RiskLevelMedium},
		{"5732", "Electronics", valueobject.RiskLevelMedium},
		{"TRV", "Travel Agencies", valueobject.RiskLevelMedium},
		{"4722", "Travel Agencies", valueobject.RiskLevelMedium},
		{"JEW", "Jewelry Stores", valueobject.RiskLevelHigh},
		{"5944", "Jewelry Stores", valueobject.RiskLevelHigh},
		{"CRY", "Cryptocurrency Exchanges", valueobject.RiskLevelHigh},
		{"6051", "Cryptocurrency Exchanges", valueobject.RiskLevelHigh},
		{"GAM", "Gambling", valueobject.RiskLevelCritical},
		{"7995", "Gambling", valueobject.RiskLevelCritical},
	}
}

// CategoryDirectory resolves category codes case-insensitively.
type CategoryDirectory struct {
	mu     sync.RWMutex
	levels map[string]valueobject.RiskLevel
}

// NewCategoryDirectory creates a directory holding the given categories.
func NewCategoryDirectory(categories ...Category) *CategoryDirectory {
	d := &CategoryDirectory{levels: make(map[string]valueobject.RiskLevel, len(categories))}
	for _, c := range categories {
		d.Put(c.Code, c.Level)
	}
	return d
}

// Put adds or replaces one category.
func (d *CategoryDirectory) Put(code string, level valueobject.RiskLevel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[normalizeCode(code)] = level
}

func (d *CategoryDirectory) Resolve(_ context.Context, categoryCode string) (valueobject.RiskLevel, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	level, ok := d.levels[normalizeCode(categoryCode)]
	return level, ok, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

var _ port.CategoryDirectory = (*CategoryDirectory)(nil)
