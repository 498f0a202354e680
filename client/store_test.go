package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tomas-aguilar/mesa-pos-api/models"
	"github.com/tomas-aguilar/mesa-pos-api/services"
)

func twoKnownOrders() []models.Order {
	now := time.Now()
	return []models.Order{
		{
			ID:        1,
			Status:    models.OrderStatusActive,
			Total:     21.00,
			CreatedAt: now.Add(-10 * time.Minute),
			Items: []models.OrderItem{
				{ID: 11, OrderID: 1, Quantity: 2, Status: models.ItemStatusPreparing, MenuItem: models.MenuItem{ID: 5, Price: 8.00}},
				{ID: 12, OrderID: 1, Quantity: 1, Status: models.ItemStatusPreparing, MenuItem: models.MenuItem{ID: 6, Price: 5.00}},
			},
		},
		{
			ID:        2,
			Status:    models.OrderStatusActive,
			Total:     5.00,
			CreatedAt: now.Add(-5 * time.Minute),
			Items: []models.OrderItem{
				{ID: 21, OrderID: 2, Quantity: 1, Status: models.ItemStatusPreparing, MenuItem: models.MenuItem{ID: 6, Price: 5.00}},
			},
		},
	}
}

func newSyncedFixture(t *testing.T) (*fakeAPI, *SyncedOrders) {
	api := newFakeAPI()
	t.Cleanup(api.close)

	api.on(http.MethodGet, "/api/v1/orders", http.StatusOK, twoKnownOrders())

	store := NewSyncedOrders(New(api.server.URL, "token-abc"))
	if err := store.Refresh(); err != nil {
		t.Fatalf("Failed to refresh store: %v", err)
	}
	return api, store
}

func TestSyncedOrders_Refresh(t *testing.T) {
	_, store := newSyncedFixture(t)

	orders := store.Orders()
	assert.Len(t, orders, 2)
	// Newest first
	assert.Equal(t, uint(2), orders[0].ID)
	assert.Equal(t, uint(1), orders[1].ID)

	order, ok := store.Get(1)
	assert.True(t, ok)
	assert.InDelta(t, 21.00, order.Total, 0.001)

	_, ok = store.Get(99)
	assert.False(t, ok)
}

func TestSyncedOrders_SetItemStatus_Optimistic(t *testing.T) {
	api, store := newSyncedFixture(t)

	// Server confirms with the same derived state the client predicted
	api.on(http.MethodPatch, "/api/v1/orders/1/items/12/status", http.StatusOK, ItemAndOrder{
		Item: models.OrderItem{ID: 12, OrderID: 1, Status: models.ItemStatusCancelled},
		Order: models.Order{
			ID:     1,
			Status: models.OrderStatusActive,
			Total:  16.00,
			Items: []models.OrderItem{
				{ID: 11, OrderID: 1, Quantity: 2, Status: models.ItemStatusPreparing, MenuItem: models.MenuItem{ID: 5, Price: 8.00}},
				{ID: 12, OrderID: 1, Quantity: 1, Status: models.ItemStatusCancelled, MenuItem: models.MenuItem{ID: 6, Price: 5.00}},
			},
		},
	})

	err := store.SetItemStatus(1, 12, models.ItemStatusCancelled)
	assert.NoError(t, err)

	order, _ := store.Get(1)
	assert.Equal(t, models.OrderStatusActive, order.Status)
	assert.InDelta(t, 16.00, order.Total, 0.001)
	assert.Equal(t, models.ItemStatusCancelled, order.Items[1].Status)
}

func TestSyncedOrders_SetItemStatus_LocalPredictionMatchesServerRules(t *testing.T) {
	api, store := newSyncedFixture(t)

	api.on(http.MethodPatch, "/api/v1/orders/2/items/21/status", http.StatusOK, ItemAndOrder{
		Item: models.OrderItem{ID: 21, OrderID: 2, Status: models.ItemStatusCancelled},
		Order: models.Order{
			ID:     2,
			Status: models.OrderStatusCancelled,
			Total:  0,
			Items: []models.OrderItem{
				{ID: 21, OrderID: 2, Quantity: 1, Status: models.ItemStatusCancelled, MenuItem: models.MenuItem{ID: 6, Price: 5.00}},
			},
		},
	})

	err := store.SetItemStatus(2, 21, models.ItemStatusCancelled)
	assert.NoError(t, err)

	// Cancelling the only item cancels the order, locally and remotely
	order, _ := store.Get(2)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.InDelta(t, 0.0, order.Total, 0.001)
}

func TestSyncedOrders_FailedWriteIsRolledBack(t *testing.T) {
	api, store := newSyncedFixture(t)

	api.fail(http.MethodPatch, "/api/v1/orders/1/status", http.StatusBadRequest, "VALIDATION_ERROR", "invalid order status")

	err := store.SetOrderStatus(1, "EATEN")
	assert.Error(t, err)

	apiErr, ok := err.(*APIError)
	assert.True(t, ok)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)

	// The optimistic change was discarded by the reconciliation re-fetch
	order, _ := store.Get(1)
	assert.Equal(t, models.OrderStatusActive, order.Status)
	assert.InDelta(t, 21.00, order.Total, 0.001)
}

func TestSyncedOrders_SetOrderStatus_CascadePrediction(t *testing.T) {
	api, store := newSyncedFixture(t)

	api.on(http.MethodPatch, "/api/v1/orders/1/status", http.StatusOK, models.Order{
		ID:     1,
		Status: models.OrderStatusCancelled,
		Total:  0,
		Items: []models.OrderItem{
			{ID: 11, OrderID: 1, Quantity: 2, Status: models.ItemStatusCancelled, MenuItem: models.MenuItem{ID: 5, Price: 8.00}},
			{ID: 12, OrderID: 1, Quantity: 1, Status: models.ItemStatusCancelled, MenuItem: models.MenuItem{ID: 6, Price: 5.00}},
		},
	})

	err := store.SetOrderStatus(1, models.OrderStatusCancelled)
	assert.NoError(t, err)

	order, _ := store.Get(1)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	for _, item := range order.Items {
		assert.Equal(t, models.ItemStatusCancelled, item.Status)
	}
	assert.InDelta(t, 0.0, order.Total, 0.001)
}

func TestSyncedOrders_SetItemQuantity(t *testing.T) {
	api, store := newSyncedFixture(t)

	api.on(http.MethodPatch, "/api/v1/orders/1/items/11/quantity", http.StatusOK, ItemAndOrder{
		Item: models.OrderItem{ID: 11, OrderID: 1, Quantity: 1, Status: models.ItemStatusPreparing},
		Order: models.Order{
			ID:     1,
			Status: models.OrderStatusActive,
			Total:  13.00,
			Items: []models.OrderItem{
				{ID: 11, OrderID: 1, Quantity: 1, Status: models.ItemStatusPreparing, MenuItem: models.MenuItem{ID: 5, Price: 8.00}},
				{ID: 12, OrderID: 1, Quantity: 1, Status: models.ItemStatusPreparing, MenuItem: models.MenuItem{ID: 6, Price: 5.00}},
			},
		},
	})

	err := store.SetItemQuantity(1, 11, 1)
	assert.NoError(t, err)

	order, _ := store.Get(1)
	assert.InDelta(t, 13.00, order.Total, 0.001)
	assert.Equal(t, 1, order.Items[0].Quantity)
}

func TestSyncedOrders_SetUrgency(t *testing.T) {
	api, store := newSyncedFixture(t)

	api.on(http.MethodPatch, "/api/v1/orders/2/urgency", http.StatusOK, models.Order{
		ID:       2,
		Status:   models.OrderStatusActive,
		Total:    5.00,
		IsUrgent: true,
	})

	err := store.SetUrgency(2, true)
	assert.NoError(t, err)

	order, _ := store.Get(2)
	assert.True(t, order.IsUrgent)
}

func TestSyncedOrders_RemoveOrder(t *testing.T) {
	api, store := newSyncedFixture(t)

	api.on(http.MethodDelete, "/api/v1/orders/1", http.StatusOK, map[string]bool{"deleted": true})

	err := store.RemoveOrder(1)
	assert.NoError(t, err)

	_, ok := store.Get(1)
	assert.False(t, ok)
	assert.Len(t, store.Orders(), 1)
}

func TestSyncedOrders_HandleEvent(t *testing.T) {
	_, store := newSyncedFixture(t)

	// Update from another device
	store.HandleEvent(services.OrderEvent{
		Type:    models.NotificationOrderUpdated,
		OrderID: 2,
		Order: &models.Order{
			ID:     2,
			Status: models.OrderStatusCompleted,
			Total:  5.00,
		},
	})

	order, _ := store.Get(2)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)

	// New order from another device
	store.HandleEvent(services.OrderEvent{
		Type:    models.NotificationNewOrder,
		OrderID: 3,
		Order:   &models.Order{ID: 3, Status: models.OrderStatusActive, Total: 8.00},
	})

	assert.Len(t, store.Orders(), 3)

	// Deletion removes the order even without a payload
	store.HandleEvent(services.OrderEvent{
		Type:    models.NotificationOrderDeleted,
		OrderID: 1,
	})

	_, ok := store.Get(1)
	assert.False(t, ok)
	assert.Len(t, store.Orders(), 2)
}

func TestSyncedOrders_HandleEvent_UnknownOrderUpsert(t *testing.T) {
	_, store := newSyncedFixture(t)

	// Deleting an order this device never knew about is a no-op
	store.HandleEvent(services.OrderEvent{
		Type:    models.NotificationOrderDeleted,
		OrderID: 77,
	})
	assert.Len(t, store.Orders(), 2)

	// Update event without a payload is ignored
	store.HandleEvent(services.OrderEvent{
		Type:    models.NotificationOrderUpdated,
		OrderID: 1,
	})
	order, ok := store.Get(1)
	assert.True(t, ok)
	assert.Equal(t, models.OrderStatusActive, order.Status)
}

func TestSyncedOrders_StartPolling(t *testing.T) {
	api, store := newSyncedFixture(t)

	// Future refreshes see a shrunken list
	api.on(http.MethodGet, "/api/v1/orders", http.StatusOK, twoKnownOrders()[:1])

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store.StartPolling(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(store.Orders()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	assert.Len(t, store.Orders(), 1)
}
