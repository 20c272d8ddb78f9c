package service

import "github.com/iliyamo/felicity-registration/internal/model"

// TryReserve takes qty units of capacity from a row-locked event.  A nil
// key reserves seats against RegistrationLimit; a non-nil key reserves
// merchandise units of that variant.  The caller persists ev inside the
// same transaction that records the registration the units belong to.
func TryReserve(ev *model.Event, key *model.VariantKey, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidInput
	}
	if key == nil {
		if ev.RegistrationLimit != nil && ev.CurrentRegistrations+qty > *ev.RegistrationLimit {
			return model.ErrCapacityFull
		}
		ev.CurrentRegistrations += qty
		return nil
	}

	m := ev.Merchandise
	if m == nil {
		return model.ErrOutOfStock
	}
	vs, err := ResolveVariantStock(m, *key)
	if err != nil {
		return err
	}
	if vs.Available <= 0 {
		return model.ErrOutOfStock
	}
	if qty > vs.Available {
		return model.ErrInsufficientStock
	}
	if vs.Index == noVariant {
		m.StockQuantity -= qty
		return nil
	}
	v := &m.Variants[vs.Index]
	v.Stock = vs.Available - qty
	v.Sold += qty
	return nil
}

// Release returns qty units taken by TryReserve.  Counters never drop
// below zero; callers issue at most one release per reservation.
func Release(ev *model.Event, key *model.VariantKey, qty int) {
	if qty <= 0 {
		return
	}
	if key == nil {
		ev.CurrentRegistrations -= qty
		if ev.CurrentRegistrations < 0 {
			ev.CurrentRegistrations = 0
		}
		return
	}

	m := ev.Merchandise
	if m == nil {
		return
	}
	if len(m.Variants) == 0 {
		m.StockQuantity += qty
		return
	}
	i := findVariant(m.Variants, *key)
	if i < 0 {
		return
	}
	v := &m.Variants[i]
	returned := qty
	if returned > v.Sold {
		returned = v.Sold
	}
	v.Sold -= returned
	v.Stock += returned
}
