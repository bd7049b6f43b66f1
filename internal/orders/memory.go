package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agrolink/tradepost/internal/contracts"
	"github.com/agrolink/tradepost/internal/fault"
)

// MemStore is an in-memory Store. One mutex serializes the accept/reject
// transitions, standing in for the Postgres row lock; either the status
// flip and the contract write both happen or neither does.
type MemStore struct {
	mu        sync.Mutex
	orders    map[string]Order
	contracts contracts.Store
}

// NewMemStore wires the contract sink that acceptance spawns into.
func NewMemStore(contractSink contracts.Store) *MemStore {
	return &MemStore{orders: make(map[string]Order), contracts: contractSink}
}

func (s *MemStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(*o)
	return nil
}

func (s *MemStore) put(o Order) {
	o.Items = append([]LineItem(nil), o.Items...)
	s.orders[o.ID] = o
}

func (s *MemStore) Get(_ context.Context, id string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, fault.NotFound("order not found")
	}
	return o, nil
}

func (s *MemStore) ListByBuyer(_ context.Context, buyerID string, f ListFilter) ([]Order, error) {
	return s.list(func(o Order) bool { return o.BuyerID == buyerID }, f), nil
}

func (s *MemStore) ListByFarmer(_ context.Context, farmerID string, f ListFilter) ([]Order, error) {
	return s.list(func(o Order) bool { return o.FarmerID == farmerID }, f), nil
}

func (s *MemStore) list(owns func(Order) bool, f ListFilter) []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Order
	for _, o := range s.orders {
		if !owns(o) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *MemStore) Accept(ctx context.Context, id, response string, now time.Time, build ContractBuilder) (Order, contracts.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, contracts.Contract{}, fault.NotFound("order not found")
	}
	if o.Status != StatusPending {
		return Order{}, contracts.Contract{}, fault.InvalidState("cannot accept order with status %s", o.Status)
	}

	o.Status = StatusAccepted
	if response != "" {
		o.FarmerResponse = response
	}
	o.UpdatedAt = now

	c, err := build(o)
	if err != nil {
		return Order{}, contracts.Contract{}, err
	}
	if err := s.contracts.Create(ctx, &c); err != nil {
		return Order{}, contracts.Contract{}, err
	}
	s.put(o)
	return o, c, nil
}

func (s *MemStore) Reject(_ context.Context, id, reason string, now time.Time) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, fault.NotFound("order not found")
	}
	if o.Status != StatusPending {
		return Order{}, fault.InvalidState("cannot reject order with status %s", o.Status)
	}
	o.Status = StatusRejected
	o.FarmerResponse = reason
	o.UpdatedAt = now
	s.put(o)
	return o, nil
}
