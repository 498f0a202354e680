package services

import (
	"math"

	"github.com/tomas-aguilar/mesa-pos-api/models"
)

// ItemTotal computes one line item's contribution to the order total:
// (menu item price + sum of selected option surcharges) * quantity.
// The menu item price is the catalog price carried on the preloaded
// MenuItem; option surcharges are the captured extra prices.
func ItemTotal(item *models.OrderItem) float64 {
	unit := item.MenuItem.Price
	for _, sel := range item.SelectedOptions {
		unit += sel.ExtraPrice
	}
	return roundCents(unit * float64(item.Quantity))
}

// OrderTotal computes the order total over all non-cancelled items.
// It is recomputed in full on every mutation that could affect it rather
// than adjusted incrementally, so the stored total can never drift from
// the underlying line items.
func OrderTotal(items []models.OrderItem) float64 {
	total := 0.0
	for i := range items {
		if items[i].Status == models.ItemStatusCancelled {
			continue
		}
		total += ItemTotal(&items[i])
	}
	return roundCents(total)
}

// DeriveOrderStatus derives the order-level status from its items:
// all items cancelled -> CANCELLED, all items completed -> COMPLETED,
// anything else (including an empty item set) -> ACTIVE.
func DeriveOrderStatus(items []models.OrderItem) string {
	if len(items) == 0 {
		return models.OrderStatusActive
	}

	allCancelled := true
	allCompleted := true
	for i := range items {
		if items[i].Status != models.ItemStatusCancelled {
			allCancelled = false
		}
		if items[i].Status != models.ItemStatusCompleted {
			allCompleted = false
		}
	}

	if allCancelled {
		return models.OrderStatusCancelled
	}
	if allCompleted {
		return models.OrderStatusCompleted
	}
	return models.OrderStatusActive
}

// roundCents rounds a monetary amount to two decimal places
func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
