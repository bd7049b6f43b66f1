// Package catalog exposes a read-only view of farmer inventory. The
// catalog itself is owned elsewhere; the order pipeline only snapshots
// price and availability from it. No decrement or reserve call exists.
package catalog

import "context"

type Item struct {
	ID                 string
	FarmerID           string
	ProductName        string
	Quantity           float64
	Unit               string
	PricePerUnit       float64
	IsAvailableForSale bool
}

// Catalog looks inventory items up by id. Implementations return a
// fault.NotFound error for unknown ids.
type Catalog interface {
	GetItem(ctx context.Context, inventoryID string) (Item, error)
}
