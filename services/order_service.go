package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomas-aguilar/mesa-pos-api/models"
	"gorm.io/gorm"
)

// SelectionInput references one option group choice on a new order item
type SelectionInput struct {
	MenuOptionID   uint `json:"menu_option_id" binding:"required"`
	OptionChoiceID uint `json:"option_choice_id" binding:"required"`
}

// OrderItemInput describes one requested line item on a new order
type OrderItemInput struct {
	MenuItemID      uint             `json:"menu_item_id" binding:"required"`
	Quantity        int              `json:"quantity" binding:"required,gt=0"`
	Notes           string           `json:"notes"`
	SelectedOptions []SelectionInput `json:"selected_options"`
}

// CreateOrderInput is the full payload for placing a new order
type CreateOrderInput struct {
	Items        []OrderItemInput `json:"items" binding:"required,min=1,dive"`
	TableNumber  *int             `json:"table_number"`
	CustomerName *string          `json:"customer_name"`
	IsUrgent     bool             `json:"is_urgent"`
}

// OrderService is the single authority for reading and mutating order
// state. Every mutation runs as one database transaction that re-reads
// current state, re-derives status and total from the full item set,
// writes the new state and records notifications. Concurrent mutations
// are serialized by transactional isolation, not application locking;
// two racing status changes are last-write-wins.
type OrderService struct {
	db       *gorm.DB
	catalog  *CatalogService
	notifier *Notifier
}

var orderServiceInstance *OrderService

// InitOrderService initializes the global order service instance
func InitOrderService(db *gorm.DB, notifier *Notifier) *OrderService {
	orderServiceInstance = NewOrderService(db, notifier)
	return orderServiceInstance
}

// GetOrderService returns the initialized order service instance
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService sets the order service instance (primarily for testing)
func SetOrderService(s *OrderService) {
	orderServiceInstance = s
}

// NewOrderService creates an order service over the given database
func NewOrderService(db *gorm.DB, notifier *Notifier) *OrderService {
	return &OrderService{
		db:       db,
		catalog:  NewCatalogService(db),
		notifier: notifier,
	}
}

// CreateOrder resolves every requested menu item and option selection
// against the catalog, prices the order, and persists the order with
// its items, selections and staff notifications in one transaction.
// Any bad catalog reference fails the whole operation before commit.
func (s *OrderService) CreateOrder(input CreateOrderInput, staff *models.Staff) (*models.Order, error) {
	if len(input.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for _, item := range input.Items {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	var orderID uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		order := models.Order{
			Status:       models.OrderStatusActive,
			TableNumber:  input.TableNumber,
			CustomerName: input.CustomerName,
			IsUrgent:     input.IsUrgent,
			StaffID:      staff.ID,
		}

		for _, itemInput := range input.Items {
			menuItem, err := s.catalog.ResolveMenuItem(tx, itemInput.MenuItemID)
			if err != nil {
				return err
			}

			item := models.OrderItem{
				MenuItemID: menuItem.ID,
				MenuItem:   *menuItem,
				Quantity:   itemInput.Quantity,
				Notes:      itemInput.Notes,
				Status:     models.ItemStatusPreparing,
			}

			for _, selInput := range itemInput.SelectedOptions {
				option, choice, err := s.catalog.ResolveSelection(menuItem, selInput.MenuOptionID, selInput.OptionChoiceID)
				if err != nil {
					return err
				}
				item.SelectedOptions = append(item.SelectedOptions, models.SelectedOption{
					MenuOptionID:   option.ID,
					OptionChoiceID: choice.ID,
					ExtraPrice:     choice.ExtraPrice,
				})
			}

			order.Items = append(order.Items, item)
		}

		order.Total = OrderTotal(order.Items)

		// Catalog rows rode along only for pricing; persist items with
		// foreign keys alone so the catalog is never written back
		for i := range order.Items {
			order.Items[i].MenuItem = models.MenuItem{}
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		orderID = order.ID

		content := fmt.Sprintf("New order #%d placed by %s", order.ID, staff.Name)
		if order.TableNumber != nil {
			content = fmt.Sprintf("%s for table %d", content, *order.TableNumber)
		}
		return s.notifier.PersistNotifications(tx, models.NotificationNewOrder, content, &order.ID)
	})
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	s.publish(models.NotificationNewOrder, order, fmt.Sprintf("New order #%d", order.ID))
	return order, nil
}

// UpdateOrderStatus sets the order's status. A terminal status
// (COMPLETED or CANCELLED) cascades to every item not already in a
// terminal state; this is the one case where order status drives item
// status rather than being derived from it.
func (s *OrderService) UpdateOrderStatus(orderID uint, newStatus string) (*models.Order, error) {
	if !models.IsValidOrderStatus(newStatus) {
		return nil, ErrInvalidOrderStatus
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.loadOrderForUpdate(tx, orderID)
		if err != nil {
			return err
		}

		if newStatus == models.OrderStatusCompleted || newStatus == models.OrderStatusCancelled {
			for i := range order.Items {
				item := &order.Items[i]
				if item.Status == models.ItemStatusCompleted || item.Status == models.ItemStatusCancelled {
					continue
				}
				item.Status = newStatus
				if err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).
					Update("status", item.Status).Error; err != nil {
					return err
				}
			}
		}

		updates := map[string]interface{}{
			"status": newStatus,
			"total":  OrderTotal(order.Items),
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return err
		}

		content := fmt.Sprintf("Order #%d is now %s", order.ID, newStatus)
		return s.notifier.PersistNotifications(tx, models.NotificationOrderUpdated, content, &order.ID)
	})
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	s.publish(models.NotificationOrderUpdated, order, fmt.Sprintf("Order #%d is now %s", order.ID, newStatus))
	return order, nil
}

// UpdateItemStatus sets one item's status, then re-derives the order's
// status from the full item set and recomputes the total. Returns the
// updated item and its order.
func (s *OrderService) UpdateItemStatus(orderID, itemID uint, newStatus string) (*models.OrderItem, *models.Order, error) {
	if !models.IsValidItemStatus(newStatus) {
		return nil, nil, ErrInvalidItemStatus
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.loadOrderForUpdate(tx, orderID)
		if err != nil {
			return err
		}

		item := findItem(order, itemID)
		if item == nil {
			return ErrOrderItemNotFound
		}

		item.Status = newStatus
		if err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).
			Update("status", newStatus).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status": DeriveOrderStatus(order.Items),
			"total":  OrderTotal(order.Items),
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return err
		}

		content := fmt.Sprintf("%s on order #%d is now %s", item.MenuItem.Name, order.ID, newStatus)
		return s.notifier.PersistNotifications(tx, models.NotificationOrderUpdated, content, &order.ID)
	})
	if err != nil {
		return nil, nil, err
	}

	return s.reloadItemAndPublish(orderID, itemID)
}

// UpdateItemQuantity changes one item's quantity and recomputes the
// order total from all non-cancelled items. The quantity must already
// be validated as a positive integer; zero removes nothing here, items
// are removed through order deletion instead.
func (s *OrderService) UpdateItemQuantity(orderID, itemID uint, quantity int) (*models.OrderItem, *models.Order, error) {
	if quantity < 1 {
		return nil, nil, ErrInvalidQuantity
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		order, err := s.loadOrderForUpdate(tx, orderID)
		if err != nil {
			return err
		}

		item := findItem(order, itemID)
		if item == nil {
			return ErrOrderItemNotFound
		}

		item.Quantity = quantity
		if err := tx.Model(&models.OrderItem{}).Where("id = ?", item.ID).
			Update("quantity", quantity).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("total", OrderTotal(order.Items)).Error; err != nil {
			return err
		}

		content := fmt.Sprintf("%s on order #%d changed to x%d", item.MenuItem.Name, order.ID, quantity)
		return s.notifier.PersistNotifications(tx, models.NotificationOrderUpdated, content, &order.ID)
	})
	if err != nil {
		return nil, nil, err
	}

	return s.reloadItemAndPublish(orderID, itemID)
}

// UpdateOrderUrgency toggles the urgency flag. Status and total are
// untouched.
func (s *OrderService) UpdateOrderUrgency(orderID uint, isUrgent bool) (*models.Order, error) {
	var content string
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if err := tx.Model(&order).Update("is_urgent", isUrgent).Error; err != nil {
			return err
		}

		if isUrgent {
			content = fmt.Sprintf("Order #%d marked urgent", order.ID)
		} else {
			content = fmt.Sprintf("Order #%d is no longer urgent", order.ID)
		}
		return s.notifier.PersistNotifications(tx, models.NotificationOrderUpdated, content, &order.ID)
	})
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	s.publish(models.NotificationOrderUpdated, order, content)
	return order, nil
}

// DeleteOrder removes the order, its items, their selected options and
// every notification referencing the order, all in one transaction.
// Deletion writes no durable notification rows; connected clients get
// a live ORDER_DELETED broadcast only.
func (s *OrderService) DeleteOrder(orderID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		var itemIDs []uint
		if err := tx.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).
			Pluck("id", &itemIDs).Error; err != nil {
			return err
		}

		if len(itemIDs) > 0 {
			if err := tx.Where("order_item_id IN ?", itemIDs).
				Delete(&models.SelectedOption{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		return err
	}

	s.notifier.Publish(OrderEvent{
		Type:    models.NotificationOrderDeleted,
		OrderID: orderID,
		Content: fmt.Sprintf("Order #%d deleted", orderID),
	})
	return nil
}

// GetOrder returns the fully hydrated order or ErrOrderNotFound
func (s *OrderService) GetOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.hydrated(s.db).First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// ListOrders returns hydrated orders, newest first, optionally filtered
// by status and/or restricted to a trailing time window.
func (s *OrderService) ListOrders(status string, recentWithin time.Duration) ([]models.Order, error) {
	query := s.hydrated(s.db)
	if status != "" {
		if !models.IsValidOrderStatus(status) {
			return nil, ErrInvalidOrderStatus
		}
		query = query.Where("status = ?", status)
	}
	if recentWithin > 0 {
		query = query.Where("created_at >= ?", time.Now().Add(-recentWithin))
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// hydrated attaches the preloads that make an order fully presentable:
// staff, items in insertion order, catalog rows and option selections.
// Menu items are loaded unscoped: a catalog row soft-deleted after the
// order was placed must keep pricing and presenting its order items.
func (s *OrderService) hydrated(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Staff").
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		Preload("Items.MenuItem", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Preload("Items.SelectedOptions.MenuOption").
		Preload("Items.SelectedOptions.OptionChoice")
}

// loadOrderForUpdate reads the order with everything pricing and status
// derivation need inside the mutation's transaction
func (s *OrderService) loadOrderForUpdate(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		Preload("Items.MenuItem", func(db *gorm.DB) *gorm.DB {
			return db.Unscoped()
		}).
		Preload("Items.SelectedOptions").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// findItem returns the order's item with the given id, or nil if the
// item does not belong to this order
func findItem(order *models.Order, itemID uint) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i]
		}
	}
	return nil
}

// reloadItemAndPublish fetches the post-commit order, publishes the
// update event and returns the mutated item alongside the order
func (s *OrderService) reloadItemAndPublish(orderID, itemID uint) (*models.OrderItem, *models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, nil, err
	}

	item := findItem(order, itemID)
	if item == nil {
		return nil, nil, ErrOrderItemNotFound
	}

	s.publish(models.NotificationOrderUpdated, order, fmt.Sprintf("Order #%d updated", order.ID))
	return item, order, nil
}

// publish sends a live event carrying the full order payload. The
// broadcast is fire-and-forget and never blocks the mutation's caller.
func (s *OrderService) publish(eventType string, order *models.Order, content string) {
	s.notifier.Publish(OrderEvent{
		Type:    eventType,
		OrderID: order.ID,
		Order:   order,
		Content: content,
	})
}
