package service

import (
	"strings"

	"github.com/iliyamo/felicity-registration/internal/model"
)

// noVariant is the index reported when stock comes from the aggregate
// quantity because the event declares no variants.
const noVariant = -1

// VariantStock is the outcome of resolving a requested variant.
type VariantStock struct {
	Index     int // position in Merchandise.Variants, or noVariant
	Available int
	UnitPrice int64
}

// ResolveVariantStock locates the requested variant and computes how many
// units are available for it.  Lookup is by exact (size, color) first, then
// by the "{size} - {color}" display name, which older clients send in the
// size field.  A variant without its own stock record takes an even share
// of the aggregate quantity.
func ResolveVariantStock(m *model.Merchandise, key model.VariantKey) (VariantStock, error) {
	if m == nil {
		return VariantStock{Index: noVariant}, nil
	}
	if len(m.Variants) == 0 {
		return VariantStock{Index: noVariant, Available: m.StockQuantity}, nil
	}
	i := findVariant(m.Variants, key)
	if i < 0 {
		return VariantStock{}, model.ErrVariantNotFound
	}
	v := m.Variants[i]
	available := v.Stock
	// Sold > 0 means the variant has been stocked explicitly and simply sold
	// out; only untouched records take the aggregate share.
	if v.Stock <= 0 && v.Sold == 0 && m.StockQuantity > 0 {
		available = FallbackShare(m.StockQuantity, len(m.Variants), i)
	}
	return VariantStock{Index: i, Available: available, UnitPrice: v.Price}, nil
}

func findVariant(variants []model.Variant, key model.VariantKey) int {
	for i, v := range variants {
		if v.Size == key.Size && v.Color == key.Color {
			return i
		}
	}
	names := []string{strings.TrimSpace(key.Size), strings.TrimSpace(key.Color), key.DisplayName()}
	for i, v := range variants {
		display := v.Key().DisplayName()
		for _, n := range names {
			if n != "" && strings.EqualFold(n, display) {
				return i
			}
		}
	}
	return -1
}

// FallbackShare splits total across n variants deterministically: every
// variant gets total/n and the first total%n variants get one more.
func FallbackShare(total, n, index int) int {
	if n <= 0 || index < 0 || index >= n || total <= 0 {
		return 0
	}
	base := total / n
	if index < total%n {
		return base + 1
	}
	return base
}

// CheckPurchase resolves the variant and validates qty against the
// available stock and the per purchase limit, in that order.
func CheckPurchase(m *model.Merchandise, key model.VariantKey, qty int) (VariantStock, error) {
	if qty <= 0 {
		return VariantStock{}, model.ErrInvalidInput
	}
	vs, err := ResolveVariantStock(m, key)
	if err != nil {
		return vs, err
	}
	if vs.Available <= 0 {
		return vs, model.ErrOutOfStock
	}
	if qty > vs.Available {
		return vs, model.ErrInsufficientStock
	}
	if qty > m.Limit() {
		return vs, model.ErrLimitExceeded
	}
	return vs, nil
}
