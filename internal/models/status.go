package models

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusProcessed      OrderStatus = "processed"
	StatusShipped        OrderStatus = "shipped"
	StatusOutForDelivery OrderStatus = "out-for-delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
	StatusOnHold         OrderStatus = "on-hold"
	StatusExpired        OrderStatus = "expired"
)

var orderStatuses = map[OrderStatus]bool{
	StatusPending:        true,
	StatusProcessed:      true,
	StatusShipped:        true,
	StatusOutForDelivery: true,
	StatusDelivered:      true,
	StatusCancelled:      true,
	StatusOnHold:         true,
	StatusExpired:        true,
}

func (s OrderStatus) Valid() bool {
	return orderStatuses[s]
}
