package enums

// OrderInternalStatus tracks fulfilment work on the dashboard side.
type OrderInternalStatus string

const (
	OrderStatusPending    OrderInternalStatus = "Pending"
	OrderStatusProcessing OrderInternalStatus = "Processing"
	OrderStatusCompleted  OrderInternalStatus = "Completed"
	OrderStatusCanceled   OrderInternalStatus = "Canceled"
)

func (s OrderInternalStatus) String() string {
	return string(s)
}

type ShipmentStatus string

const (
	ShipmentStatusUnfulfilled ShipmentStatus = "Unfulfilled"
	ShipmentStatusShipped     ShipmentStatus = "Shipped"
	ShipmentStatusDelivered   ShipmentStatus = "Delivered"
)

func (s ShipmentStatus) String() string {
	return string(s)
}
