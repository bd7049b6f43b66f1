package orders

import (
	"context"
	"time"

	"github.com/agrolink/tradepost/internal/contracts"
)

type ListFilter struct {
	Status Status     // empty = all
	From   *time.Time // created_at >= From
	To     *time.Time // created_at <= To
}

// ContractBuilder derives the contract from an order the moment it is
// accepted. It runs inside the acceptance unit of work.
type ContractBuilder func(o Order) (contracts.Contract, error)

// Store persists orders. Accept and Reject are conditional on the order
// still being PENDING when the write lands; a guard miss surfaces as
// fault.InvalidState with nothing mutated. Orders are never deleted.
type Store interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (Order, error)
	ListByBuyer(ctx context.Context, buyerID string, f ListFilter) ([]Order, error)
	ListByFarmer(ctx context.Context, farmerID string, f ListFilter) ([]Order, error)

	// Accept flips PENDING->ACCEPTED and persists the derived contract as
	// one atomic unit: either both writes commit or neither does.
	Accept(ctx context.Context, id, response string, now time.Time, build ContractBuilder) (Order, contracts.Contract, error)

	// Reject flips PENDING->REJECTED and records the reason.
	Reject(ctx context.Context, id, reason string, now time.Time) (Order, error)
}
