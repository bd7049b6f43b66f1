package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agrolink/tradepost/internal/catalog"
	"github.com/agrolink/tradepost/internal/contracts"
	"github.com/agrolink/tradepost/internal/fault"
	"github.com/agrolink/tradepost/internal/identity"
)

// Service runs the order ledger: validated creation against a catalog
// snapshot, authorized reads, and the farmer accept/reject decision.
type Service struct {
	store     Store
	catalog   catalog.Catalog
	directory identity.Directory
	nowFunc   func() time.Time
}

func NewService(store Store, cat catalog.Catalog, directory identity.Directory) *Service {
	return &Service{store: store, catalog: cat, directory: directory, nowFunc: time.Now}
}

type LineRequest struct {
	InventoryID string
	Quantity    float64
}

type CreateInput struct {
	FarmerID             string
	Items                []LineRequest
	BuyerMessage         string
	ExpectedDeliveryDate string
}

// Create validates each line against the inventory catalog, snapshots
// prices, and persists a PENDING order. Stock is checked but never
// decremented or reserved here.
func (s *Service) Create(ctx context.Context, caller identity.Caller, in CreateInput) (Order, error) {
	if caller.Role != identity.RoleBuyer {
		return Order{}, fault.Forbidden("only buyers can create orders")
	}
	buyer, err := s.directory.BuyerFor(ctx, caller.PrincipalID)
	if err != nil {
		return Order{}, err
	}
	farmer, err := s.directory.FarmerByID(ctx, in.FarmerID)
	if err != nil {
		return Order{}, err
	}
	if len(in.Items) == 0 {
		return Order{}, fault.Validation("order requires at least one item")
	}

	var (
		lines []LineItem
		total float64
	)
	for _, lr := range in.Items {
		if lr.Quantity <= 0 {
			return Order{}, fault.Validation("invalid quantity for inventory item %s", lr.InventoryID)
		}
		item, err := s.catalog.GetItem(ctx, lr.InventoryID)
		if err != nil {
			return Order{}, err
		}
		if item.FarmerID != farmer.ID {
			return Order{}, fault.Forbidden("item %s does not belong to selected farmer", item.ProductName)
		}
		if !item.IsAvailableForSale {
			return Order{}, fault.NotAvailable("item %s is not available for sale", item.ProductName)
		}
		if lr.Quantity > item.Quantity {
			return Order{}, fault.InsufficientStock("requested quantity for %s exceeds available stock", item.ProductName)
		}

		lineTotal := lr.Quantity * item.PricePerUnit
		total += lineTotal
		lines = append(lines, LineItem{
			InventoryID:  item.ID,
			ProductName:  item.ProductName,
			Quantity:     lr.Quantity,
			Unit:         item.Unit,
			PricePerUnit: item.PricePerUnit,
			LineTotal:    lineTotal,
		})
	}

	now := s.nowFunc().UTC()
	o := Order{
		ID:                   uuid.NewString(),
		BuyerID:              buyer.ID,
		BuyerName:            buyer.Name,
		FarmerID:             farmer.ID,
		FarmerName:           farmer.Name,
		Items:                lines,
		TotalAmount:          total,
		Status:               StatusPending,
		BuyerMessage:         in.BuyerMessage,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.Create(ctx, &o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if err := s.authorize(ctx, caller, o); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, caller identity.Caller, f ListFilter) ([]Order, error) {
	switch caller.Role {
	case identity.RoleBuyer:
		buyer, err := s.directory.BuyerFor(ctx, caller.PrincipalID)
		if err != nil {
			return nil, err
		}
		return s.store.ListByBuyer(ctx, buyer.ID, f)
	case identity.RoleFarmer:
		farmer, err := s.directory.FarmerFor(ctx, caller.PrincipalID)
		if err != nil {
			return nil, err
		}
		return s.store.ListByFarmer(ctx, farmer.ID, f)
	default:
		return nil, fault.Forbidden("invalid role %q", caller.Role)
	}
}

// Accept flips the order to ACCEPTED and derives its contract in one
// atomic unit. The contract trusts the order's already-validated snapshot;
// stock is not re-checked here.
func (s *Service) Accept(ctx context.Context, caller identity.Caller, id, response string) (Order, contracts.Contract, error) {
	o, err := s.ownedByFarmer(ctx, caller, id, "accept")
	if err != nil {
		return Order{}, contracts.Contract{}, err
	}
	if !CanTransition(o.Status, StatusAccepted) {
		return Order{}, contracts.Contract{}, fault.InvalidState("cannot accept order with status %s", o.Status)
	}
	return s.store.Accept(ctx, id, response, s.nowFunc().UTC(), s.contractFromOrder)
}

func (s *Service) Reject(ctx context.Context, caller identity.Caller, id, reason string) (Order, error) {
	if reason == "" {
		return Order{}, fault.Validation("rejection reason is required")
	}
	o, err := s.ownedByFarmer(ctx, caller, id, "reject")
	if err != nil {
		return Order{}, err
	}
	if !CanTransition(o.Status, StatusRejected) {
		return Order{}, fault.InvalidState("cannot reject order with status %s", o.Status)
	}
	return s.store.Reject(ctx, id, reason, s.nowFunc().UTC())
}

func (s *Service) ownedByFarmer(ctx context.Context, caller identity.Caller, id, verb string) (Order, error) {
	if caller.Role != identity.RoleFarmer {
		return Order{}, fault.Forbidden("only farmers can %s orders", verb)
	}
	farmer, err := s.directory.FarmerFor(ctx, caller.PrincipalID)
	if err != nil {
		return Order{}, err
	}
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.FarmerID != farmer.ID {
		return Order{}, fault.Forbidden("not authorized to %s this order", verb)
	}
	return o, nil
}

func (s *Service) authorize(ctx context.Context, caller identity.Caller, o Order) error {
	switch caller.Role {
	case identity.RoleBuyer:
		buyer, err := s.directory.BuyerFor(ctx, caller.PrincipalID)
		if err != nil {
			return err
		}
		if o.BuyerID != buyer.ID {
			return fault.Forbidden("not authorized to view this order")
		}
	case identity.RoleFarmer:
		farmer, err := s.directory.FarmerFor(ctx, caller.PrincipalID)
		if err != nil {
			return err
		}
		if o.FarmerID != farmer.ID {
			return fault.Forbidden("not authorized to view this order")
		}
	default:
		return fault.Forbidden("invalid role %q", caller.Role)
	}
	return nil
}
