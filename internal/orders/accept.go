package orders

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/agrolink/tradepost/internal/contracts"
	"github.com/agrolink/tradepost/internal/signing"
)

// contractFromOrder derives the contract payload for an order mid-flight
// from PENDING to ACCEPTED. It runs inside the store's acceptance unit of
// work, so exactly one contract exists per accepted order.
func (s *Service) contractFromOrder(o Order) (contracts.Contract, error) {
	items := make([]contracts.Item, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, contracts.Item{
			ProductName:  li.ProductName,
			Quantity:     li.Quantity,
			Unit:         li.Unit,
			PricePerUnit: li.PricePerUnit,
			LineTotal:    li.LineTotal,
		})
	}

	hash, err := signing.Hash(contracts.HashPayload{
		BuyerID:      o.BuyerID,
		FarmerID:     o.FarmerID,
		Items:        items,
		TotalAmount:  o.TotalAmount,
		DeliveryDate: o.ExpectedDeliveryDate,
	})
	if err != nil {
		return contracts.Contract{}, fmt.Errorf("hash contract payload: %w", err)
	}

	now := s.nowFunc().UTC()
	return contracts.Contract{
		ID:           uuid.NewString(),
		BuyerID:      o.BuyerID,
		BuyerName:    o.BuyerName,
		FarmerID:     o.FarmerID,
		FarmerName:   o.FarmerName,
		Items:        items,
		TotalAmount:  o.TotalAmount,
		DeliveryDate: o.ExpectedDeliveryDate,
		Terms:        fmt.Sprintf("Contract auto-generated from Order #%s", shortID(o.ID)),
		Notes: fmt.Sprintf("Buyer message: %s. Farmer response: %s",
			orNone(o.BuyerMessage), orNone(o.FarmerResponse)),
		Status:       contracts.StatusPending,
		ContractHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
