package model

// OrderStatus is the lifecycle state shared by supply orders and product
// orders.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCompleted OrderStatus = "completed"
	OrderRejected  OrderStatus = "rejected"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered,
		OrderCompleted, OrderRejected, OrderCancelled:
		return true
	}
	return false
}

// Open reports whether the order still holds or may still claim stock.
func (s OrderStatus) Open() bool {
	return s == OrderPending || s == OrderConfirmed || s == OrderShipped || s == OrderDelivered
}

// OrderEvent is an action applied to an order.
type OrderEvent string

const (
	OrderEventConfirm  OrderEvent = "confirm"
	OrderEventReject   OrderEvent = "reject"
	OrderEventShip     OrderEvent = "ship"
	OrderEventDeliver  OrderEvent = "deliver"
	OrderEventComplete OrderEvent = "complete"
	OrderEventCancel   OrderEvent = "cancel"
)

// Party identifies which side of an order may fire an event.
type Party int

const (
	PartyBuyer Party = iota + 1
	PartySeller
)

func (p Party) String() string {
	switch p {
	case PartyBuyer:
		return "buyer"
	case PartySeller:
		return "seller"
	}
	return "unknown"
}

// StockEffect is the inventory side effect of a transition on the
// listing the order was placed against.
type StockEffect int

const (
	StockNone StockEffect = iota
	StockDecrement
	StockRestore
)

// OrderTransition is one row of the order workflow table.
type OrderTransition struct {
	From   OrderStatus
	Event  OrderEvent
	To     OrderStatus
	Actor  Party
	Effect StockEffect
}

type orderKey struct {
	from  OrderStatus
	event OrderEvent
}

var orderTransitions = map[orderKey]OrderTransition{}

func init() {
	for _, t := range []OrderTransition{
		{OrderPending, OrderEventConfirm, OrderConfirmed, PartySeller, StockDecrement},
		{OrderPending, OrderEventReject, OrderRejected, PartySeller, StockNone},
		{OrderPending, OrderEventCancel, OrderCancelled, PartyBuyer, StockNone},
		{OrderConfirmed, OrderEventCancel, OrderCancelled, PartyBuyer, StockRestore},
		{OrderConfirmed, OrderEventShip, OrderShipped, PartySeller, StockNone},
		{OrderShipped, OrderEventDeliver, OrderDelivered, PartySeller, StockNone},
		{OrderDelivered, OrderEventComplete, OrderCompleted, PartyBuyer, StockNone},
	} {
		orderTransitions[orderKey{t.From, t.Event}] = t
	}
}

// NextOrderTransition looks up the transition for (from, event).  The
// boolean is false when the event is not allowed in that state.
func NextOrderTransition(from OrderStatus, event OrderEvent) (OrderTransition, bool) {
	t, ok := orderTransitions[orderKey{from, event}]
	return t, ok
}

// ParseOrderEvent maps a path segment such as "confirm" to an event.
func ParseOrderEvent(s string) (OrderEvent, bool) {
	switch e := OrderEvent(s); e {
	case OrderEventConfirm, OrderEventReject, OrderEventShip,
		OrderEventDeliver, OrderEventComplete, OrderEventCancel:
		return e, true
	}
	return "", false
}
