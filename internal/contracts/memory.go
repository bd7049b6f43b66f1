package contracts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agrolink/tradepost/internal/fault"
	"github.com/agrolink/tradepost/internal/identity"
)

// MemStore is an in-memory Store. A single mutex serializes every
// transition, standing in for the conditional updates of the Postgres
// store; guards are re-checked under the lock.
type MemStore struct {
	mu        sync.Mutex
	contracts map[string]Contract
}

func NewMemStore() *MemStore {
	return &MemStore{contracts: make(map[string]Contract)}
}

func (s *MemStore) Create(_ context.Context, c *Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(*c)
	return nil
}

// put stores a deep-enough copy that callers cannot mutate stored state.
func (s *MemStore) put(c Contract) {
	c.Items = append([]Item(nil), c.Items...)
	s.contracts[c.ID] = c
}

func (s *MemStore) Get(_ context.Context, id string) (Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return Contract{}, fault.NotFound("contract not found")
	}
	return c, nil
}

func (s *MemStore) ListForParty(_ context.Context, role identity.Role, profileID string, f ListFilter) ([]Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Contract
	for _, c := range s.contracts {
		owner := c.BuyerID
		if role == identity.RoleFarmer {
			owner = c.FarmerID
		}
		if owner != profileID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) Sign(_ context.Context, id string, p Party, sig Signature, now time.Time) (Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return Contract{}, fault.NotFound("contract not found")
	}
	if !Signable(c.Status) {
		return Contract{}, fault.InvalidState("contract cannot be signed in status %s", c.Status)
	}
	if p.OwnSignature(c) != nil {
		return Contract{}, fault.InvalidState("contract cannot be signed: %s signature already present", p.Role())
	}
	counterpart := p.CounterpartSigned(c)
	p.attach(&c, sig)
	c.Status = p.StatusAfterSign(counterpart)
	if c.Status == StatusActive {
		t := now
		c.SignedAt = &t
	}
	c.UpdatedAt = now
	s.put(c)
	return c, nil
}

func (s *MemStore) Reject(_ context.Context, id string, now time.Time) (Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return Contract{}, fault.NotFound("contract not found")
	}
	if !Signable(c.Status) {
		return Contract{}, fault.InvalidState("contract cannot be rejected in status %s", c.Status)
	}
	c.Status = StatusRejected
	c.UpdatedAt = now
	s.put(c)
	return c, nil
}

func (s *MemStore) Complete(_ context.Context, id string, now time.Time) (Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return Contract{}, fault.NotFound("contract not found")
	}
	if c.Status != StatusActive {
		return Contract{}, fault.InvalidState("contract cannot be completed in status %s", c.Status)
	}
	t := now
	c.Status = StatusCompleted
	c.CompletedAt = &t
	c.UpdatedAt = now
	s.put(c)
	return c, nil
}
