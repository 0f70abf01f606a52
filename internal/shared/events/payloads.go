package events

// Event type names carried in the envelope's event_type field.
const (
	TypeOrderConfirmed        = "OrderConfirmedEvent"
	TypeOrderPreparing        = "OrderPreparingEvent"
	TypeOrderPrepComplete     = "OrderPrepCompleteEvent"
	TypeOrderBakeComplete     = "OrderBakeCompleteEvent"
	TypeOrderQualityChecked   = "OrderQualityCheckedEvent"
	TypeKitchenOrderConfirmed = "KitchenOrderConfirmedEvent"
	TypeDriverAssignedOrder   = "DriverAssignedOrderEvent"
	TypeDriverCollectedOrder  = "DriverCollectedOrderEvent"
	TypeDriverDeliveredOrder  = "DriverDeliveredOrderEvent"
	TypeOrderCompleted        = "OrderCompletedEvent"
	TypeLoyaltyPointsUpdated  = "LoyaltyPointsUpdatedEvent"
)

// OrderItemLine is one item inside OrderConfirmedEvent.
type OrderItemLine struct {
	RecipeIdentifier string `json:"recipeIdentifier"`
	Quantity         int    `json:"quantity"`
}

// OrderConfirmed is published by the orders service when a customer submits
// an order. It is the event that starts the kitchen pipeline.
type OrderConfirmed struct {
	OrderIdentifier string          `json:"orderIdentifier"`
	OrderType       string          `json:"orderType"`
	Items           []OrderItemLine `json:"items"`
}

// KitchenStage is the shared payload of the four kitchen pipeline events
// (preparing, prep complete, bake complete, quality checked).
type KitchenStage struct {
	OrderIdentifier   string `json:"orderIdentifier"`
	KitchenIdentifier string `json:"kitchenIdentifier"`
}

// KitchenOrderConfirmed acknowledges that the kitchen accepted the order.
type KitchenOrderConfirmed struct {
	OrderIdentifier string `json:"orderIdentifier"`
}

// DriverOrder is the payload of the driver assigned/collected/delivered events.
type DriverOrder struct {
	OrderIdentifier string `json:"orderIdentifier"`
	DriverName      string `json:"driverName"`
}

// OrderCompleted is published by the orders service when an order reaches a
// terminal status. The loyalty service accrues points from OrderValue.
type OrderCompleted struct {
	OrderIdentifier    string  `json:"orderIdentifier"`
	CustomerIdentifier string  `json:"customerIdentifier"`
	OrderValue         float64 `json:"orderValue"`
}

// LoyaltyPointsUpdated carries a customer's new points total so consumers can
// refresh their cached projections.
type LoyaltyPointsUpdated struct {
	CustomerIdentifier string  `json:"customerIdentifier"`
	PointsTotal        float64 `json:"pointsTotal"`
}
