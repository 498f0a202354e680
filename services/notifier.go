package services

import (
	"log"
	"sync"

	"github.com/tomas-aguilar/mesa-pos-api/models"
	"gorm.io/gorm"
)

// OrderEvent is one live broadcast describing an order mutation. For
// deletions only OrderID is set; for every other mutation Order carries
// the full updated payload.
type OrderEvent struct {
	Type    string        `json:"type"` // NEW_ORDER, ORDER_UPDATED, ORDER_DELETED
	OrderID uint          `json:"order_id"`
	Order   *models.Order `json:"order,omitempty"`
	Content string        `json:"content"`
}

// Notifier makes every order mutation visible to all staff: it writes
// one durable Notification row per registered staff member inside the
// mutation's transaction, and separately publishes a live event to all
// connected subscribers. Live delivery is best-effort; a client that
// misses an event recovers through its notification feed and by
// re-querying order state.
type Notifier struct {
	mu          sync.Mutex
	subscribers map[uint64]chan OrderEvent
	nextID      uint64
}

var notifierInstance *Notifier

// InitNotifier initializes the global notifier instance
func InitNotifier() *Notifier {
	notifierInstance = NewNotifier()
	return notifierInstance
}

// GetNotifier returns the initialized notifier instance
func GetNotifier() *Notifier {
	return notifierInstance
}

// SetNotifier sets the notifier instance (primarily for testing)
func SetNotifier(n *Notifier) {
	notifierInstance = n
}

// NewNotifier creates a notifier with no subscribers
func NewNotifier() *Notifier {
	return &Notifier{
		subscribers: make(map[uint64]chan OrderEvent),
	}
}

// subscriberBuffer bounds how far a slow subscriber may fall behind
// before events are dropped for it
const subscriberBuffer = 16

// Subscribe registers a live event subscriber and returns its id and
// receive channel. The caller must Unsubscribe when done.
func (n *Notifier) Subscribe() (uint64, <-chan OrderEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	ch := make(chan OrderEvent, subscriberBuffer)
	n.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel
func (n *Notifier) Unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ch, ok := n.subscribers[id]; ok {
		delete(n.subscribers, id)
		close(ch)
	}
}

// SubscriberCount returns the number of connected subscribers
func (n *Notifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subscribers)
}

// Publish fans the event out to all connected subscribers. Sends are
// non-blocking: a subscriber whose buffer is full misses the event and
// is expected to re-sync from its feed.
func (n *Notifier) Publish(event OrderEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, ch := range n.subscribers {
		select {
		case ch <- event:
		default:
			log.Printf("Dropping %s event for slow subscriber %d", event.Type, id)
		}
	}
}

// PersistNotifications writes one Notification row per registered staff
// member describing the mutation. It must be called with the mutation's
// own transaction so the rows commit or roll back with the mutation.
func (n *Notifier) PersistNotifications(tx *gorm.DB, notifType, content string, orderID *uint) error {
	var staff []models.Staff
	if err := tx.Find(&staff).Error; err != nil {
		return err
	}

	if len(staff) == 0 {
		return nil
	}

	notifications := make([]models.Notification, 0, len(staff))
	for _, member := range staff {
		notifications = append(notifications, models.Notification{
			Type:    notifType,
			Content: content,
			OrderID: orderID,
			StaffID: member.ID,
		})
	}

	return tx.Create(&notifications).Error
}
