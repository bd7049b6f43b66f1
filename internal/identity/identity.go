// Package identity resolves callers to marketplace profiles. Authentication
// itself happens upstream; this core only ever sees a principal id and a
// role, never credentials.
package identity

import "context"

type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

func (r Role) Valid() bool { return r == RoleFarmer || r == RoleBuyer }

// Caller is the authenticated identity injected by the gateway.
type Caller struct {
	PrincipalID string
	Role        Role
}

// Profile is a farmer or buyer marketplace profile. Name carries the farm
// name for farmers and the company name for buyers.
type Profile struct {
	ID          string
	PrincipalID string
	Name        string
}

// Directory looks profiles up. Implementations return a fault.NotFound
// error when no profile exists.
type Directory interface {
	FarmerFor(ctx context.Context, principalID string) (Profile, error)
	BuyerFor(ctx context.Context, principalID string) (Profile, error)
	FarmerByID(ctx context.Context, id string) (Profile, error)
}
