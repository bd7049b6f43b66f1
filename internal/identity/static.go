package identity

import (
	"context"

	"github.com/agrolink/tradepost/internal/fault"
)

// StaticDirectory serves a fixed profile set. Used in tests and local runs
// without a profile database.
type StaticDirectory struct {
	Farmers []Profile
	Buyers  []Profile
}

func (d *StaticDirectory) FarmerFor(_ context.Context, principalID string) (Profile, error) {
	for _, p := range d.Farmers {
		if p.PrincipalID == principalID {
			return p, nil
		}
	}
	return Profile{}, fault.NotFound("farmer profile not found")
}

func (d *StaticDirectory) BuyerFor(_ context.Context, principalID string) (Profile, error) {
	for _, p := range d.Buyers {
		if p.PrincipalID == principalID {
			return p, nil
		}
	}
	return Profile{}, fault.NotFound("buyer profile not found")
}

func (d *StaticDirectory) FarmerByID(_ context.Context, id string) (Profile, error) {
	for _, p := range d.Farmers {
		if p.ID == id {
			return p, nil
		}
	}
	return Profile{}, fault.NotFound("farmer not found")
}
