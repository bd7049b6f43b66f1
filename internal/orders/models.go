package orders

import "time"

// LineItem is an order line with the price snapshot taken at creation.
// LineTotal = Quantity * PricePerUnit, computed once; later catalog changes
// never touch a stored order.
type LineItem struct {
	InventoryID  string  `json:"inventory_id"`
	ProductName  string  `json:"product_name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"price_per_unit"`
	LineTotal    float64 `json:"line_total"`
}

type Order struct {
	ID          string
	BuyerID     string
	BuyerName   string
	FarmerID    string
	FarmerName  string
	Items       []LineItem
	TotalAmount float64
	Status      Status

	BuyerMessage         string
	FarmerResponse       string
	ExpectedDeliveryDate string

	CreatedAt time.Time
	UpdatedAt time.Time
}
