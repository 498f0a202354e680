package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tomas-aguilar/mesa-pos-api/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// orderTestFixture holds everything an order store test needs: a fresh
// in-memory database with two staff members and a small menu
type orderTestFixture struct {
	db       *gorm.DB
	service  *OrderService
	notifier *Notifier
	staff    models.Staff
	second   models.Staff
	burger   models.MenuItem // 8.00, "Protein" option with Beef +2.00 / Tofu +0.00
	fries    models.MenuItem // 5.00, no options
}

func setupOrderService(t *testing.T) *orderTestFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Staff{},
		&models.MenuItem{},
		&models.MenuOption{},
		&models.OptionChoice{},
		&models.Order{},
		&models.OrderItem{},
		&models.SelectedOption{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	f := &orderTestFixture{db: db, notifier: NewNotifier()}
	f.service = NewOrderService(db, f.notifier)

	f.staff = models.Staff{Auth0ID: "auth0|server1", Name: "Ana", Email: "ana@example.com", Role: models.RoleServer}
	f.second = models.Staff{Auth0ID: "auth0|kitchen1", Name: "Beto", Email: "beto@example.com", Role: models.RoleKitchen}
	db.Create(&f.staff)
	db.Create(&f.second)

	f.burger = models.MenuItem{
		Name:      "Burger",
		Price:     8.00,
		Available: true,
		Options: []models.MenuOption{
			{
				Name: "Protein",
				Choices: []models.OptionChoice{
					{Name: "Beef", ExtraPrice: 2.00},
					{Name: "Tofu", ExtraPrice: 0},
				},
			},
		},
	}
	f.fries = models.MenuItem{Name: "Fries", Price: 5.00, Available: true}
	db.Create(&f.burger)
	db.Create(&f.fries)

	return f
}

// beefSelection returns the selection input for the burger's Beef choice
func (f *orderTestFixture) beefSelection() SelectionInput {
	return SelectionInput{
		MenuOptionID:   f.burger.Options[0].ID,
		OptionChoiceID: f.burger.Options[0].Choices[0].ID,
	}
}

func TestCreateOrder(t *testing.T) {
	f := setupOrderService(t)

	table := 4
	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{
			{
				MenuItemID:      f.burger.ID,
				Quantity:        2,
				Notes:           "no onions",
				SelectedOptions: []SelectionInput{f.beefSelection()},
			},
		},
		TableNumber: &table,
	}, &f.staff)

	assert.NoError(t, err)
	assert.NotNil(t, order)
	assert.Equal(t, models.OrderStatusActive, order.Status)
	// (8.00 + 2.00) * 2
	assert.InDelta(t, 20.00, order.Total, 0.001)
	assert.Equal(t, f.staff.ID, order.StaffID)
	assert.Equal(t, 4, *order.TableNumber)

	assert.Len(t, order.Items, 1)
	item := order.Items[0]
	assert.Equal(t, models.ItemStatusPreparing, item.Status)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "no onions", item.Notes)
	assert.Equal(t, "Burger", item.MenuItem.Name)
	assert.Len(t, item.SelectedOptions, 1)
	assert.Equal(t, "Protein", item.SelectedOptions[0].MenuOption.Name)
	assert.Equal(t, "Beef", item.SelectedOptions[0].OptionChoice.Name)
	assert.InDelta(t, 2.00, item.SelectedOptions[0].ExtraPrice, 0.001)
}

func TestCreateOrder_Validation(t *testing.T) {
	f := setupOrderService(t)

	tests := []struct {
		name    string
		input   CreateOrderInput
		wantErr error
	}{
		{
			name:    "empty item list",
			input:   CreateOrderInput{},
			wantErr: ErrEmptyOrder,
		},
		{
			name: "zero quantity",
			input: CreateOrderInput{
				Items: []OrderItemInput{{MenuItemID: f.fries.ID, Quantity: 0}},
			},
			wantErr: ErrInvalidQuantity,
		},
		{
			name: "unknown menu item",
			input: CreateOrderInput{
				Items: []OrderItemInput{{MenuItemID: 9999, Quantity: 1}},
			},
			wantErr: ErrMenuItemNotFound,
		},
		{
			name: "option group from a different menu item",
			input: CreateOrderInput{
				Items: []OrderItemInput{{
					MenuItemID: f.fries.ID,
					Quantity:   1,
					SelectedOptions: []SelectionInput{
						f.beefSelection(),
					},
				}},
			},
			wantErr: ErrMenuOptionNotFound,
		},
		{
			name: "unknown choice inside a valid option group",
			input: CreateOrderInput{
				Items: []OrderItemInput{{
					MenuItemID: f.burger.ID,
					Quantity:   1,
					SelectedOptions: []SelectionInput{
						{MenuOptionID: f.burger.Options[0].ID, OptionChoiceID: 9999},
					},
				}},
			},
			wantErr: ErrOptionChoiceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateOrder(tt.input, &f.staff)
			assert.ErrorIs(t, err, tt.wantErr)

			// A failed create must leave nothing behind
			var count int64
			f.db.Model(&models.Order{}).Count(&count)
			assert.Equal(t, int64(0), count)
		})
	}
}

func TestUpdateItemStatus_CancellingOnlyItemCancelsOrder(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.fries.ID, Quantity: 1}},
	}, &f.staff)
	assert.NoError(t, err)

	item, updated, err := f.service.UpdateItemStatus(order.ID, order.Items[0].ID, models.ItemStatusCancelled)
	assert.NoError(t, err)
	assert.Equal(t, models.ItemStatusCancelled, item.Status)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)
	assert.InDelta(t, 0.00, updated.Total, 0.001)
}

func TestUpdateItemStatus_CompletionDerivesOrderStatus(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{
			{MenuItemID: f.burger.ID, Quantity: 1},
			{MenuItemID: f.fries.ID, Quantity: 1},
		},
	}, &f.staff)
	assert.NoError(t, err)

	// One completed, one still preparing: order stays active
	_, updated, err := f.service.UpdateItemStatus(order.ID, order.Items[0].ID, models.ItemStatusCompleted)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusActive, updated.Status)

	// Completing the second item completes the order
	_, updated, err = f.service.UpdateItemStatus(order.ID, order.Items[1].ID, models.ItemStatusCompleted)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)
	// Completed items still count toward the total
	assert.InDelta(t, 13.00, updated.Total, 0.001)
}

func TestUpdateItemStatus_Errors(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.fries.ID, Quantity: 1}},
	}, &f.staff)
	assert.NoError(t, err)

	other, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.burger.ID, Quantity: 1}},
	}, &f.staff)
	assert.NoError(t, err)

	_, _, err = f.service.UpdateItemStatus(9999, order.Items[0].ID, models.ItemStatusCompleted)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// An item that exists but belongs to a different order is not found
	_, _, err = f.service.UpdateItemStatus(order.ID, other.Items[0].ID, models.ItemStatusCompleted)
	assert.ErrorIs(t, err, ErrOrderItemNotFound)

	_, _, err = f.service.UpdateItemStatus(order.ID, order.Items[0].ID, "BURNED")
	assert.ErrorIs(t, err, ErrInvalidItemStatus)
}

func TestUpdateItemQuantity(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.fries.ID, Quantity: 3}},
	}, &f.staff)
	assert.NoError(t, err)
	assert.InDelta(t, 15.00, order.Total, 0.001)

	// Reducing quantity from 3 to 1 at 5.00 per unit drops the total by 10.00
	item, updated, err := f.service.UpdateItemQuantity(order.ID, order.Items[0].ID, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
	assert.InDelta(t, 5.00, updated.Total, 0.001)
}

func TestUpdateItemQuantity_RejectsNonPositive(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.fries.ID, Quantity: 2}},
	}, &f.staff)
	assert.NoError(t, err)

	for _, quantity := range []int{0, -1} {
		_, _, err := f.service.UpdateItemQuantity(order.ID, order.Items[0].ID, quantity)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}

	// Quantity is untouched after the rejected updates
	fresh, err := f.service.GetOrder(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, 2, fresh.Items[0].Quantity)
	assert.InDelta(t, 10.00, fresh.Total, 0.001)
}

func TestUpdateItemQuantity_SurvivesMenuItemSoftDelete(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{
			{MenuItemID: f.burger.ID, Quantity: 2, SelectedOptions: []SelectionInput{f.beefSelection()}},
		},
	}, &f.staff)
	assert.NoError(t, err)
	assert.InDelta(t, 20.00, order.Total, 0.001)

	// Manager retires the burger from the menu after the order was placed
	assert.NoError(t, f.db.Delete(&models.MenuItem{}, f.burger.ID).Error)

	// Repricing mutations still see the retired catalog row
	item, updated, err := f.service.UpdateItemQuantity(order.ID, order.Items[0].ID, 3)
	assert.NoError(t, err)
	assert.Equal(t, 3, item.Quantity)
	// (8.00 + 2.00) * 3
	assert.InDelta(t, 30.00, updated.Total, 0.001)

	// Hydrated reads keep presenting the retired item, not a zero row
	fresh, err := f.service.GetOrder(order.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Burger", fresh.Items[0].MenuItem.Name)
	assert.InDelta(t, 8.00, fresh.Items[0].MenuItem.Price, 0.001)

	// Status changes reprice through the same path
	_, updated, err = f.service.UpdateItemStatus(order.ID, order.Items[0].ID, models.ItemStatusCompleted)
	assert.NoError(t, err)
	assert.InDelta(t, 30.00, updated.Total, 0.001)
}

func TestUpdateOrderStatus_TerminalCascades(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{
			{MenuItemID: f.burger.ID, Quantity: 1},
			{MenuItemID: f.fries.ID, Quantity: 1},
		},
	}, &f.staff)
	assert.NoError(t, err)

	// Complete one item first so the cascade must skip it
	_, _, err = f.service.UpdateItemStatus(order.ID, order.Items[0].ID, models.ItemStatusCompleted)
	assert.NoError(t, err)

	updated, err := f.service.UpdateOrderStatus(order.ID, models.OrderStatusCancelled)
	assert.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, updated.Status)

	// Already-terminal item keeps its status; the preparing one is cancelled
	assert.Equal(t, models.ItemStatusCompleted, updated.Items[0].Status)
	assert.Equal(t, models.ItemStatusCancelled, updated.Items[1].Status)

	// Total drops to the completed item's contribution
	assert.InDelta(t, 8.00, updated.Total, 0.001)
}

func TestUpdateOrderStatus_Errors(t *testing.T) {
	f := setupOrderService(t)

	_, err := f.service.UpdateOrderStatus(9999, models.OrderStatusCompleted)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.fries.ID, Quantity: 1}},
	}, &f.staff)
	assert.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(order.ID, "PAUSED")
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}

func TestUpdateOrderUrgency(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.fries.ID, Quantity: 2}},
	}, &f.staff)
	assert.NoError(t, err)
	assert.False(t, order.IsUrgent)

	updated, err := f.service.UpdateOrderUrgency(order.ID, true)
	assert.NoError(t, err)
	assert.True(t, updated.IsUrgent)

	// Status and total are untouched
	assert.Equal(t, order.Status, updated.Status)
	assert.InDelta(t, order.Total, updated.Total, 0.001)

	_, err = f.service.UpdateOrderUrgency(9999, true)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeleteOrder_CascadesEverything(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{
			{MenuItemID: f.burger.ID, Quantity: 1, SelectedOptions: []SelectionInput{f.beefSelection()}},
			{MenuItemID: f.fries.ID, Quantity: 2},
		},
	}, &f.staff)
	assert.NoError(t, err)

	assert.NoError(t, f.service.DeleteOrder(order.ID))

	_, err = f.service.GetOrder(order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	var items, options, notifications int64
	f.db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&items)
	f.db.Model(&models.SelectedOption{}).Count(&options)
	f.db.Model(&models.Notification{}).Where("order_id = ?", order.ID).Count(&notifications)
	assert.Equal(t, int64(0), items, "no orphaned items")
	assert.Equal(t, int64(0), options, "no orphaned selected options")
	assert.Equal(t, int64(0), notifications, "no orphaned notifications")

	assert.ErrorIs(t, f.service.DeleteOrder(order.ID), ErrOrderNotFound)
}

func TestNotificationFanOut(t *testing.T) {
	f := setupOrderService(t)

	// Two registered staff members: every mutation writes two rows
	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.fries.ID, Quantity: 1}},
	}, &f.staff)
	assert.NoError(t, err)

	var count int64
	f.db.Model(&models.Notification{}).Where("type = ?", models.NotificationNewOrder).Count(&count)
	assert.Equal(t, int64(2), count)

	_, err = f.service.UpdateOrderUrgency(order.ID, true)
	assert.NoError(t, err)

	f.db.Model(&models.Notification{}).Where("type = ?", models.NotificationOrderUpdated).Count(&count)
	assert.Equal(t, int64(2), count)

	// Each staff member got exactly one row per mutation
	for _, staffID := range []uint{f.staff.ID, f.second.ID} {
		f.db.Model(&models.Notification{}).Where("staff_id = ?", staffID).Count(&count)
		assert.Equal(t, int64(2), count)
	}

	// Delete writes no durable rows, it only broadcasts
	id, events := f.notifier.Subscribe()
	defer f.notifier.Unsubscribe(id)

	assert.NoError(t, f.service.DeleteOrder(order.ID))

	select {
	case event := <-events:
		assert.Equal(t, models.NotificationOrderDeleted, event.Type)
		assert.Equal(t, order.ID, event.OrderID)
		assert.Nil(t, event.Order)
	case <-time.After(time.Second):
		t.Fatal("expected a deletion broadcast")
	}

	f.db.Model(&models.Notification{}).Where("type = ?", models.NotificationOrderDeleted).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestMutationsPublishLiveEvents(t *testing.T) {
	f := setupOrderService(t)

	id, events := f.notifier.Subscribe()
	defer f.notifier.Unsubscribe(id)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.burger.ID, Quantity: 1}},
	}, &f.staff)
	assert.NoError(t, err)

	event := <-events
	assert.Equal(t, models.NotificationNewOrder, event.Type)
	assert.NotNil(t, event.Order)
	assert.Equal(t, order.ID, event.Order.ID)

	_, _, err = f.service.UpdateItemStatus(order.ID, order.Items[0].ID, models.ItemStatusCompleted)
	assert.NoError(t, err)

	event = <-events
	assert.Equal(t, models.NotificationOrderUpdated, event.Type)
	// The broadcast carries the full updated payload
	assert.Equal(t, models.OrderStatusCompleted, event.Order.Status)
}

// TestTotalInvariant drives a mixed mutation sequence and checks the
// stored total always equals a fresh recomputation over current items
func TestTotalInvariant(t *testing.T) {
	f := setupOrderService(t)

	order, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{
			{MenuItemID: f.burger.ID, Quantity: 2, SelectedOptions: []SelectionInput{f.beefSelection()}},
			{MenuItemID: f.fries.ID, Quantity: 3},
		},
	}, &f.staff)
	assert.NoError(t, err)

	checkInvariant := func() {
		fresh, err := f.service.GetOrder(order.ID)
		assert.NoError(t, err)
		assert.InDelta(t, OrderTotal(fresh.Items), fresh.Total, 0.001)
	}
	checkInvariant()

	_, _, err = f.service.UpdateItemQuantity(order.ID, order.Items[0].ID, 1)
	assert.NoError(t, err)
	checkInvariant()

	_, _, err = f.service.UpdateItemStatus(order.ID, order.Items[1].ID, models.ItemStatusCancelled)
	assert.NoError(t, err)
	checkInvariant()

	_, err = f.service.UpdateOrderStatus(order.ID, models.OrderStatusCancelled)
	assert.NoError(t, err)
	checkInvariant()
}

func TestListOrders(t *testing.T) {
	f := setupOrderService(t)

	first, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.fries.ID, Quantity: 1}},
	}, &f.staff)
	assert.NoError(t, err)

	second, err := f.service.CreateOrder(CreateOrderInput{
		Items: []OrderItemInput{{MenuItemID: f.burger.ID, Quantity: 1}},
	}, &f.staff)
	assert.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(second.ID, models.OrderStatusCompleted)
	assert.NoError(t, err)

	active, err := f.service.ListOrders(models.OrderStatusActive, 0)
	assert.NoError(t, err)
	assert.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)

	completed, err := f.service.ListOrders(models.OrderStatusCompleted, 0)
	assert.NoError(t, err)
	assert.Len(t, completed, 1)
	assert.Equal(t, second.ID, completed[0].ID)

	all, err := f.service.ListOrders("", 0)
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	// A generous trailing window includes everything; orders are hydrated
	recent, err := f.service.ListOrders("", time.Hour)
	assert.NoError(t, err)
	assert.Len(t, recent, 2)
	for _, order := range recent {
		assert.NotEmpty(t, order.Items)
		assert.NotEmpty(t, order.Items[0].MenuItem.Name)
	}

	_, err = f.service.ListOrders("PAUSED", 0)
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)
}
