package client

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"encoding/json"

	"github.com/tomas-aguilar/mesa-pos-api/models"
	"github.com/tomas-aguilar/mesa-pos-api/services"
)

// SyncedOrders is a staff device's local view of the order list. Every
// mutation is applied to local state immediately (optimistic update)
// before the API call is issued; on success the server's authoritative
// payload replaces the optimistic one, and on failure the whole list is
// re-fetched so the incorrect optimistic state is discarded. Broadcast
// events from other devices are merged in by order id, and a periodic
// poll bounds staleness when events are missed.
type SyncedOrders struct {
	api *Client

	mu     sync.RWMutex
	orders map[uint]models.Order
}

// NewSyncedOrders creates an empty synced order set over the given API client
func NewSyncedOrders(api *Client) *SyncedOrders {
	return &SyncedOrders{
		api:    api,
		orders: make(map[uint]models.Order),
	}
}

// Refresh replaces local state with the server's authoritative order list
func (s *SyncedOrders) Refresh() error {
	orders, err := s.api.ListOrders("")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = make(map[uint]models.Order, len(orders))
	for _, order := range orders {
		s.orders[order.ID] = order
	}
	return nil
}

// Orders returns a snapshot of all known orders, newest first
func (s *SyncedOrders) Orders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]models.Order, 0, len(s.orders))
	for _, order := range s.orders {
		snapshot = append(snapshot, order)
	}
	sort.Slice(snapshot, func(i, j int) bool {
		return snapshot[i].CreatedAt.After(snapshot[j].CreatedAt)
	})
	return snapshot
}

// Get returns one order by id if the device knows about it
func (s *SyncedOrders) Get(orderID uint) (models.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	order, ok := s.orders[orderID]
	return order, ok
}

// PlaceOrder creates an order. Creation has no optimistic phase (the
// server assigns the id); the created order is merged on success.
func (s *SyncedOrders) PlaceOrder(input services.CreateOrderInput) (*models.Order, error) {
	order, err := s.api.CreateOrder(input)
	if err != nil {
		return nil, err
	}
	s.upsert(*order)
	return order, nil
}

// SetOrderStatus applies the status change locally first, mirroring the
// server's cascade and re-derivation rules, then writes it through. On
// failure the optimistic state is discarded by a full re-fetch.
func (s *SyncedOrders) SetOrderStatus(orderID uint, status string) error {
	s.mu.Lock()
	if order, ok := s.orders[orderID]; ok {
		order.Status = status
		if status == models.OrderStatusCompleted || status == models.OrderStatusCancelled {
			for i := range order.Items {
				item := &order.Items[i]
				if item.Status != models.ItemStatusCompleted && item.Status != models.ItemStatusCancelled {
					item.Status = status
				}
			}
		}
		order.Total = services.OrderTotal(order.Items)
		s.orders[orderID] = order
	}
	s.mu.Unlock()

	updated, err := s.api.UpdateOrderStatus(orderID, status)
	if err != nil {
		return s.reconcileFailure(err)
	}
	s.upsert(*updated)
	return nil
}

// SetItemStatus applies the item status change locally, re-deriving the
// order status and total the same way the server does, then writes it
// through.
func (s *SyncedOrders) SetItemStatus(orderID, itemID uint, status string) error {
	s.mu.Lock()
	if order, ok := s.orders[orderID]; ok {
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				order.Items[i].Status = status
				break
			}
		}
		order.Status = services.DeriveOrderStatus(order.Items)
		order.Total = services.OrderTotal(order.Items)
		s.orders[orderID] = order
	}
	s.mu.Unlock()

	result, err := s.api.UpdateItemStatus(orderID, itemID, status)
	if err != nil {
		return s.reconcileFailure(err)
	}
	s.upsert(result.Order)
	return nil
}

// SetItemQuantity applies the quantity change locally with a fresh
// total, then writes it through
func (s *SyncedOrders) SetItemQuantity(orderID, itemID uint, quantity int) error {
	s.mu.Lock()
	if order, ok := s.orders[orderID]; ok {
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				order.Items[i].Quantity = quantity
				break
			}
		}
		order.Total = services.OrderTotal(order.Items)
		s.orders[orderID] = order
	}
	s.mu.Unlock()

	result, err := s.api.UpdateItemQuantity(orderID, itemID, quantity)
	if err != nil {
		return s.reconcileFailure(err)
	}
	s.upsert(result.Order)
	return nil
}

// SetUrgency applies the urgency toggle locally, then writes it through
func (s *SyncedOrders) SetUrgency(orderID uint, isUrgent bool) error {
	s.mu.Lock()
	if order, ok := s.orders[orderID]; ok {
		order.IsUrgent = isUrgent
		s.orders[orderID] = order
	}
	s.mu.Unlock()

	updated, err := s.api.UpdateOrderUrgency(orderID, isUrgent)
	if err != nil {
		return s.reconcileFailure(err)
	}
	s.upsert(*updated)
	return nil
}

// RemoveOrder removes the order locally, then deletes it server-side
func (s *SyncedOrders) RemoveOrder(orderID uint) error {
	s.mu.Lock()
	delete(s.orders, orderID)
	s.mu.Unlock()

	if err := s.api.DeleteOrder(orderID); err != nil {
		return s.reconcileFailure(err)
	}
	return nil
}

// HandleEvent merges one live broadcast into local state. Events for
// orders this device mutated itself are harmless no-ops by the time
// they arrive; events from other devices bring their changes in.
func (s *SyncedOrders) HandleEvent(event services.OrderEvent) {
	if event.Type == models.NotificationOrderDeleted {
		s.mu.Lock()
		delete(s.orders, event.OrderID)
		s.mu.Unlock()
		return
	}
	if event.Order != nil {
		s.upsert(*event.Order)
	}
}

// Listen connects to the live event stream and merges events until the
// context is cancelled or the connection drops. The stream is a hint,
// not the source of truth; callers should run StartPolling alongside.
func (s *SyncedOrders) Listen(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.api.baseURL+"/api/v1/events", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if s.api.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.api.token)
	}
	req.Header.Set("Accept", "text/event-stream")

	// No timeout: this is a long-lived stream bounded by ctx
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to event stream: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}

		var event services.OrderEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &event); err != nil {
			continue
		}
		s.HandleEvent(event)
	}
	return scanner.Err()
}

// StartPolling refreshes from the server at the given interval until
// the context is cancelled, bounding staleness when events are missed
func (s *SyncedOrders) StartPolling(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.Refresh()
			}
		}
	}()
}

// upsert replaces the local copy of one order with an authoritative one
func (s *SyncedOrders) upsert(order models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = order
}

// reconcileFailure discards optimistic state after a failed write by
// re-fetching the authoritative list, then reports the original error
func (s *SyncedOrders) reconcileFailure(opErr error) error {
	if err := s.Refresh(); err != nil {
		return fmt.Errorf("operation failed (%v) and re-sync failed: %w", opErr, err)
	}
	return opErr
}
