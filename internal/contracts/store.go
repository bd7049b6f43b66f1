package contracts

import (
	"context"
	"time"

	"github.com/agrolink/tradepost/internal/identity"
)

type ListFilter struct {
	Status Status // empty = all
}

// Store persists contracts. Every state-advancing write is conditional on
// the guard it was decided under (status set, signature slot still empty);
// a guard miss surfaces as fault.InvalidState with no mutation.
type Store interface {
	Create(ctx context.Context, c *Contract) error
	Get(ctx context.Context, id string) (Contract, error)
	ListForParty(ctx context.Context, role identity.Role, profileID string, f ListFilter) ([]Contract, error)

	// Sign attaches the party's signature and advances the status per the
	// party's guard table, atomically.
	Sign(ctx context.Context, id string, p Party, sig Signature, now time.Time) (Contract, error)

	// Reject moves a signable contract to REJECTED.
	Reject(ctx context.Context, id string, now time.Time) (Contract, error)

	// Complete moves an ACTIVE contract to COMPLETED and stamps
	// completed_at. Driven only by the external fulfillment event.
	Complete(ctx context.Context, id string, now time.Time) (Contract, error)
}
