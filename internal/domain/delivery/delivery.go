package delivery

import "time"

// State tracks the delivery service's own view of an order.
type State string

const (
	StateAwaitingDriver State = "awaiting_driver"
	StateAssigned       State = "assigned"
	StateCollected      State = "collected"
	StateDelivered      State = "delivered"
)

var forward = map[State]State{
	StateAwaitingDriver: StateAssigned,
	StateAssigned:       StateCollected,
	StateCollected:      StateDelivered,
}

// Delivery is created when an order passes its quality check and is waiting
// for a driver. It is the delivery service's local aggregate; the orders
// service learns about it only through driver events.
type Delivery struct {
	OrderID   string
	Driver    string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewDelivery registers a deliverable order with no driver yet.
func NewDelivery(orderID string, now time.Time) *Delivery {
	return &Delivery{
		OrderID:   orderID,
		State:     StateAwaitingDriver,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Assign attaches a driver. No-op unless the delivery is awaiting one.
func (d *Delivery) Assign(driverName string, now time.Time) bool {
	if !d.advance(StateAssigned, now) {
		return false
	}
	d.Driver = driverName
	return true
}

// MarkCollected records the driver picking the order up.
func (d *Delivery) MarkCollected(now time.Time) bool {
	return d.advance(StateCollected, now)
}

// MarkDelivered records the hand-off to the customer.
func (d *Delivery) MarkDelivered(now time.Time) bool {
	return d.advance(StateDelivered, now)
}

func (d *Delivery) advance(to State, now time.Time) bool {
	if forward[d.State] != to {
		return false
	}
	d.State = to
	d.UpdatedAt = now
	return true
}
