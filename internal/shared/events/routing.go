package events

// Exchange names. Failed messages dead-letter to the DLX after the bounded
// retry budget is spent.
const (
	Exchange           = "orders_topic"
	DeadLetterExchange = "orders_topic_dlx"
	DeadLetterQueue    = "orders_dlx_queue"
)

// Queue names, one durable queue per (consuming service, event group).
const (
	QueueKitchenOrderConfirmed  = "kitchen-orderConfirmed-worker"
	QueueOrdersKitchenEvents    = "orders-kitchenEvents-worker"
	QueueOrdersDriverEvents     = "orders-driverEvents-worker"
	QueueOrdersLoyaltyUpdated   = "orders-loyaltyUpdated-worker"
	QueueDeliveryQualityChecked = "delivery-qualityChecked-worker"
	QueueLoyaltyOrderCompleted  = "loyalty-orderCompleted-worker"
)

// routingKeys is the single source of truth for eventType -> routing key.
var routingKeys = map[string]string{
	TypeOrderConfirmed:        "order.confirmed.v1",
	TypeOrderPreparing:        "kitchen.orderPreparing.v1",
	TypeOrderPrepComplete:     "kitchen.orderPrepComplete.v1",
	TypeOrderBakeComplete:     "kitchen.orderBakeComplete.v1",
	TypeOrderQualityChecked:   "kitchen.orderQualityChecked.v1",
	TypeKitchenOrderConfirmed: "kitchen.orderConfirmed.v1",
	TypeDriverAssignedOrder:   "delivery.driverAssigned.v1",
	TypeDriverCollectedOrder:  "delivery.driverCollected.v1",
	TypeDriverDeliveredOrder:  "delivery.driverDelivered.v1",
	TypeOrderCompleted:        "order.completed.v1",
	TypeLoyaltyPointsUpdated:  "loyalty.pointsUpdated.v1",
}

// RoutingKey returns the broker routing key for an event type.
func RoutingKey(eventType string) (string, bool) {
	key, ok := routingKeys[eventType]
	return key, ok
}

// Binding maps a queue to a routing key on the topic exchange.
type Binding struct {
	Queue      string
	RoutingKey string
}

// Bindings is the explicit choreography routing table: which queue receives
// which events. The saga's control flow is fully described here instead of
// being discovered by tracing code paths.
var Bindings = []Binding{
	{QueueKitchenOrderConfirmed, routingKeys[TypeOrderConfirmed]},
	{QueueOrdersKitchenEvents, "kitchen.*.v1"},
	{QueueOrdersDriverEvents, routingKeys[TypeDriverAssignedOrder]},
	{QueueOrdersDriverEvents, routingKeys[TypeDriverCollectedOrder]},
	{QueueOrdersDriverEvents, routingKeys[TypeDriverDeliveredOrder]},
	{QueueOrdersLoyaltyUpdated, routingKeys[TypeLoyaltyPointsUpdated]},
	{QueueDeliveryQualityChecked, routingKeys[TypeOrderQualityChecked]},
	{QueueLoyaltyOrderCompleted, routingKeys[TypeOrderCompleted]},
}
