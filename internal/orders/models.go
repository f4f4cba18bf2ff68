package orders

import "time"

type Product struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Price     float64   `json:"price"`
	Stock     int       `json:"stock"`
	CreatedAt time.Time `json:"created_at"`
}

type Order struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Total         float64   `json:"total"`
	ItemCount     int       `json:"item_count"`
	RecipientName string    `json:"recipient_name"`
	Address       string    `json:"address"`
	Phone         string    `json:"phone"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`

	// Display fields filled by joins; empty outside admin views.
	CustomerName  string      `json:"customer_name,omitempty"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	Items         []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	OrderID   int64   `json:"order_id"`
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`

	ProductName  string `json:"product_name,omitempty"`
	ProductImage string `json:"product_image,omitempty"`
}

// ItemInput is one line of an incoming order request. Price is the unit price
// the client saw in its cart; CreateOrderTx persists it as unit_price.
type ItemInput struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type ShippingInfo struct {
	RecipientName string `json:"recipientName"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
}
