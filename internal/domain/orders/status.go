package orders

// OrderStatus is a custom type that represents the current status of an order in its lifecycle.
type OrderStatus string

const (
	StatusCreated            OrderStatus = "created"
	StatusSubmitted          OrderStatus = "submitted"
	StatusPreparing          OrderStatus = "preparing"
	StatusPrepComplete       OrderStatus = "prep_complete"
	StatusBakeComplete       OrderStatus = "bake_complete"
	StatusQualityChecked     OrderStatus = "quality_checked"
	StatusAwaitingCollection OrderStatus = "awaiting_collection"
	StatusAssignedToDriver   OrderStatus = "assigned_to_driver"
	StatusOutForDelivery     OrderStatus = "out_for_delivery"
	StatusDelivered          OrderStatus = "delivered"
	StatusCollected          OrderStatus = "collected"
	StatusCompleted          OrderStatus = "completed"
)

// Allowed state transitions. Anything not listed here is swallowed by the
// aggregate as a no-op, which is how duplicate and late redeliveries are
// tolerated without corrupting state.
var allowed = map[OrderStatus]map[OrderStatus]bool{
	StatusCreated:            {StatusSubmitted: true},
	StatusSubmitted:          {StatusPreparing: true},
	StatusPreparing:          {StatusPrepComplete: true},
	StatusPrepComplete:       {StatusBakeComplete: true},
	StatusBakeComplete:       {StatusQualityChecked: true, StatusAwaitingCollection: true},
	StatusQualityChecked:     {StatusAssignedToDriver: true},
	StatusAwaitingCollection: {StatusCollected: true},
	StatusAssignedToDriver:   {StatusOutForDelivery: true},
	StatusOutForDelivery:     {StatusDelivered: true},
	StatusDelivered:          {StatusCompleted: true},
	StatusCollected:          {},
	StatusCompleted:          {},
}

// CanTransition checks if from->to is allowed.
func CanTransition(from, to OrderStatus) bool {
	nexts := allowed[from]
	return nexts != nil && nexts[to]
}

// IsTerminal reports whether the status ends the order lifecycle. A terminal
// status is never revisited. Delivered is transient: MarkDelivered passes
// through it and lands on Completed in the same call.
func IsTerminal(s OrderStatus) bool {
	return s == StatusCompleted || s == StatusCollected
}
