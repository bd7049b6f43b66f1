package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrolink/tradepost/internal/fault"
)

type PGCatalog struct{ DB *pgxpool.Pool }

func (c *PGCatalog) GetItem(ctx context.Context, inventoryID string) (Item, error) {
	var it Item
	err := c.DB.QueryRow(ctx, `
		SELECT id, farmer_id, product_name, quantity, unit, price_per_unit, is_available_for_sale
		FROM inventory_items WHERE id=$1`, inventoryID).
		Scan(&it.ID, &it.FarmerID, &it.ProductName, &it.Quantity, &it.Unit, &it.PricePerUnit, &it.IsAvailableForSale)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fault.NotFound("inventory item %s not found", inventoryID)
	}
	if err != nil {
		return Item{}, err
	}
	return it, nil
}
