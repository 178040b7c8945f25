package models

import "math"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// UserProfile — приложение хранит профиль отдельно от identity-провайдера.
// uid выдаётся провайдером и не меняется.
type UserProfile struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Pin     string `json:"pin,omitempty"`
	Role    Role   `json:"role"`
}

// Product prices are whole rupees, no minor units.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int64    `json:"price"`
	OldPrice int64    `json:"old_price,omitempty"`
	Cat      string   `json:"cat"`
	Img      []string `json:"img"`
	Desc     string   `json:"desc"`
	COD      bool     `json:"cod"`
	InStock  bool     `json:"inStock"`
	// nil — действует политика по умолчанию (7 дней), 0 — возврат запрещён.
	ReturnPeriod *int `json:"returnPeriod,omitempty"`
}

// Discount returns the display discount percent, 0 when old_price is
// absent or not greater than the current price.
func (p Product) Discount() int {
	if p.OldPrice <= p.Price {
		return 0
	}
	return int(math.Round(float64(p.OldPrice-p.Price) / float64(p.OldPrice) * 100))
}

// PrimaryImage is the first image URL, empty when the list is empty.
func (p Product) PrimaryImage() string {
	if len(p.Img) == 0 {
		return ""
	}
	return p.Img[0]
}

type CartItem struct {
	Product
	Qty int `json:"qty"`
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "ONLINE"
)

// Статус заказа — строковый тип, значения совпадают с отображаемыми.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "Order Placed"
	OrderStatusConfirmed       OrderStatus = "Confirmed"
	OrderStatusShipped         OrderStatus = "Shipped"
	OrderStatusDelivered       OrderStatus = "Delivered"
	OrderStatusCancelled       OrderStatus = "Cancelled"
	OrderStatusReturnRequested OrderStatus = "Return Requested"
	OrderStatusReturned        OrderStatus = "Returned"
	OrderStatusRefunded        OrderStatus = "Refunded"
)

// Order is a point-in-time snapshot: items, totalAmount, deliveryCharge and
// address_details never change after creation, so history stays truthful to
// what the customer agreed to pay. Only status, refundUpi,
// expectedDeliveryDate and deliveredAt are mutated, and only through the
// order store's transition operation.
//
// Timestamp, ExpectedDeliveryDate and DeliveredAt are unix milliseconds.
type Order struct {
	ID                   string        `json:"id"`
	UserID               string        `json:"userId"`
	UserName             string        `json:"userName"`
	Items                []CartItem    `json:"items"`
	TotalAmount          int64         `json:"totalAmount"`
	DeliveryCharge       int64         `json:"deliveryCharge"`
	Status               OrderStatus   `json:"status"`
	PaymentMethod        PaymentMethod `json:"paymentMethod"`
	UTR                  string        `json:"utr,omitempty"`
	RefundUPI            string        `json:"refundUpi,omitempty"`
	Timestamp            int64         `json:"timestamp"`
	AddressDetails       string        `json:"address_details"`
	Phone                string        `json:"phone"`
	ExpectedDeliveryDate int64         `json:"expectedDeliveryDate,omitempty"`
	DeliveredAt          int64         `json:"deliveredAt,omitempty"`
}

type PaymentSettings struct {
	CODEnabled     bool   `json:"codEnabled"`
	DeliveryCharge int64  `json:"deliveryCharge"`
	QRURL          string `json:"qr_url"`
}

type SocialLinks struct {
	YouTube   string `json:"youtube"`
	Instagram string `json:"instagram"`
}

// AppSettings — singleton-документ настроек магазина.
type AppSettings struct {
	Payment       PaymentSettings `json:"payment"`
	Banners       []string        `json:"banners"`
	Categories    []string        `json:"categories"`
	SocialLinks   *SocialLinks    `json:"social_links,omitempty"`
	PrivacyPolicy string          `json:"privacyPolicy,omitempty"`
	RefundPolicy  string          `json:"refundPolicy,omitempty"`
}
