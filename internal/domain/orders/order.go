package orders

import (
	"errors"
	"time"
)

// OrderType is a custom type that represents how the customer receives the order.
type OrderType string

const (
	OrderTypePickup   OrderType = "pickup"
	OrderTypeDelivery OrderType = "delivery"
)

// ErrItemsLocked is returned when items are modified after submission.
var ErrItemsLocked = errors.New("orders: items can only change while the order is in 'created' status")

// OrderItem represents a single item in an order. Price is the per-unit
// recipe price captured when the item was added.
type OrderItem struct {
	RecipeID string `json:"recipe_identifier"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    Money  `json:"price"`
}

// HistoryEntry is one append-only audit record. Entries are never reordered
// or mutated after commit.
type HistoryEntry struct {
	Description string    `json:"description"`
	At          time.Time `json:"at"`
}

// Order is the canonical lifecycle record for one customer order. All status
// changes go through guarded transitions; an event that does not match the
// current status leaves the order untouched.
type Order struct {
	ID             string
	CustomerID     string
	Type           OrderType
	Items          []OrderItem
	Status         OrderStatus
	History        []HistoryEntry
	AssignedDriver *string
	CompletedOn    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewOrder creates an order in 'created' status for the given customer.
func NewOrder(id, customerID string, typ OrderType, now time.Time) *Order {
	o := &Order{
		ID:         id,
		CustomerID: customerID,
		Type:       typ,
		Status:     StatusCreated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	o.AddHistory("Order created", now)
	return o
}

// AddHistory appends an audit entry unconditionally.
func (o *Order) AddHistory(description string, now time.Time) {
	o.History = append(o.History, HistoryEntry{Description: description, At: now})
}

// AddItem appends an item. Items are mutable only while the order has not
// been submitted.
func (o *Order) AddItem(recipeID, name string, quantity int, price Money, now time.Time) error {
	if o.Status != StatusCreated {
		return ErrItemsLocked
	}
	o.Items = append(o.Items, OrderItem{RecipeID: recipeID, Name: name, Quantity: quantity, Price: price})
	o.UpdatedAt = now
	return nil
}

// TotalAmount sums item price * quantity.
func (o *Order) TotalAmount() Money {
	var sum Money
	for _, it := range o.Items {
		sum += Money(it.Quantity) * it.Price
	}
	return sum
}

// transition applies the guarded state change and records exactly one history
// entry. Returns false when the current status does not permit the move.
func (o *Order) transition(to OrderStatus, description string, now time.Time) bool {
	if !CanTransition(o.Status, to) {
		return false
	}
	o.Status = to
	o.AddHistory(description, now)
	o.UpdatedAt = now
	return true
}

// Submit moves the order from 'created' to 'submitted'.
func (o *Order) Submit(now time.Time) bool {
	return o.transition(StatusSubmitted, "Order submitted", now)
}

// MarkPreparing records that the kitchen started prepping the order.
func (o *Order) MarkPreparing(now time.Time) bool {
	return o.transition(StatusPreparing, "Order prep started", now)
}

// MarkPrepComplete records that prep finished.
func (o *Order) MarkPrepComplete(now time.Time) bool {
	return o.transition(StatusPrepComplete, "Prep complete", now)
}

// MarkBakeComplete records that the bake finished.
func (o *Order) MarkBakeComplete(now time.Time) bool {
	return o.transition(StatusBakeComplete, "Bake complete", now)
}

// MarkQualityChecked records the final kitchen check. Delivery orders wait
// for a driver; pickup orders become collectable.
func (o *Order) MarkQualityChecked(now time.Time) bool {
	target := StatusQualityChecked
	if o.Type == OrderTypePickup {
		target = StatusAwaitingCollection
	}
	return o.transition(target, "Order quality checked", now)
}

// AssignDriver attaches a driver to a quality-checked delivery order.
func (o *Order) AssignDriver(driverName string, now time.Time) bool {
	if !o.transition(StatusAssignedToDriver, "Order assigned to driver "+driverName, now) {
		return false
	}
	o.AssignedDriver = &driverName
	return true
}

// MarkDriverCollected records that the assigned driver picked the order up.
func (o *Order) MarkDriverCollected(now time.Time) bool {
	return o.transition(StatusOutForDelivery, "Order collected by driver", now)
}

// MarkDelivered completes a delivery order. The order passes through
// 'delivered' and lands on 'completed' in one call; the driver is cleared and
// the completion timestamp is set exactly once.
func (o *Order) MarkDelivered(now time.Time) bool {
	if !o.transition(StatusDelivered, "Order delivered", now) {
		return false
	}
	o.transition(StatusCompleted, "Order completed.", now)
	o.AssignedDriver = nil
	o.setCompletedOn(now)
	return true
}

// Collect completes a pickup order awaiting collection.
func (o *Order) Collect(now time.Time) bool {
	if !o.transition(StatusCollected, "Order completed.", now) {
		return false
	}
	o.setCompletedOn(now)
	return true
}

func (o *Order) setCompletedOn(now time.Time) {
	if o.CompletedOn == nil {
		t := now
		o.CompletedOn = &t
	}
}

// AwaitingCollection reports whether the customer can collect the order.
func (o *Order) AwaitingCollection() bool {
	return o.Status == StatusAwaitingCollection
}

// Completed reports whether the order reached a terminal status.
func (o *Order) Completed() bool {
	return IsTerminal(o.Status)
}
