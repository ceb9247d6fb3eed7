package laundry

import "time"

type OrderStatus string

const (
	StatusPending        OrderStatus = "pending"
	StatusConfirmed      OrderStatus = "confirmed"
	StatusPickedUp       OrderStatus = "picked_up"
	StatusWashing        OrderStatus = "washing"
	StatusIroning        OrderStatus = "ironing"
	StatusReadyForPickup OrderStatus = "ready_for_pickup"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusDelivered      OrderStatus = "delivered"
	StatusCancelled      OrderStatus = "cancelled"
)

// порядок обработки заказа
var StatusFlow = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPickedUp,
	StatusWashing,
	StatusIroning,
	StatusReadyForPickup,
	StatusOutForDelivery,
	StatusDelivered,
}

func (s OrderStatus) Valid() bool {
	if s == StatusCancelled {
		return true
	}
	for _, v := range StatusFlow {
		if v == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

const DetergentEco = "eco"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Location struct {
	Lat     float64 `bson:"lat" json:"lat"`
	Lng     float64 `bson:"lng" json:"lng"`
	Address string  `bson:"address,omitempty" json:"address,omitempty"`
}

type StatusLogEntry struct {
	Status    OrderStatus `bson:"status" json:"status"`
	Timestamp time.Time   `bson:"timestamp" json:"timestamp"`
	Actor     string      `bson:"actor" json:"actor"`
	Note      string      `bson:"note,omitempty" json:"note,omitempty"`
	Location  *Location   `bson:"location,omitempty" json:"location,omitempty"`
}

type OrderItem struct {
	Service  string  `bson:"service" json:"service"`
	Quantity int     `bson:"quantity" json:"quantity"`
	Price    float64 `bson:"price" json:"price"`
}

type Order struct {
	ID             string           `bson:"id" json:"id"`
	OrderNumber    string           `bson:"orderNumber" json:"orderNumber"`
	TrackingCode   string           `bson:"trackingCode" json:"trackingCode"`
	TagID          string           `bson:"tagId" json:"tagId"`
	UserID         string           `bson:"userId" json:"userId"`
	Status         OrderStatus      `bson:"status" json:"status"`
	StatusLog      []StatusLogEntry `bson:"statusLog" json:"statusLog"`
	Items          []OrderItem      `bson:"items,omitempty" json:"items,omitempty"`
	Total          float64          `bson:"total" json:"total"`
	PaymentStatus  PaymentStatus    `bson:"paymentStatus" json:"paymentStatus"`
	Detergent      string           `bson:"detergent,omitempty" json:"detergent,omitempty"`
	Urgent         bool             `bson:"urgent" json:"urgent"`
	CreatedAt      time.Time        `bson:"createdAt" json:"createdAt"`
	LastUpdated    time.Time        `bson:"lastUpdated" json:"lastUpdated"`
	CompletedAt    *time.Time       `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	RewardsApplied bool             `bson:"rewardsApplied" json:"rewardsApplied"`
	Version        int64            `bson:"version" json:"-"`
}

// данные для создания заказа
type NewOrder struct {
	UserID        string        `json:"userId"`
	Items         []OrderItem   `json:"items"`
	Total         float64       `json:"total"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	Detergent     string        `json:"detergent"`
	Urgent        bool          `json:"urgent"`
}

// кто выполняет действие
type Actor struct {
	UserID string
	Admin  bool
}

func (a Actor) CanAccess(o Order) bool {
	return a.Admin || (a.UserID != "" && a.UserID == o.UserID)
}

// событие сканирования метки заказа
type TagScan struct {
	TagID    string      `json:"tagId"`
	Status   OrderStatus `json:"status"`
	DeviceID string      `json:"deviceId"`
	Note     string      `json:"note"`
	Location *Location   `json:"location"`
}
