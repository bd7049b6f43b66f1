package contracts

import (
	"github.com/agrolink/tradepost/internal/fault"
	"github.com/agrolink/tradepost/internal/identity"
)

// Party is the capability a farmer or buyer holds over a contract. The two
// variants carry the role-specific behavior (which signature slot is theirs,
// whether the counterpart has signed, the status their signature advances
// to, whether they may reject) so operations never branch on role strings.
type Party interface {
	Role() identity.Role
	ProfileID() string

	// Owns reports whether the party is the referenced side of c.
	Owns(c Contract) bool
	// SignerName is the display name recorded in the signature.
	SignerName(c Contract) string
	// OwnSignature returns the party's signature slot on c, if set.
	OwnSignature(c Contract) *Signature
	// CounterpartSigned reports whether the other side has signed c.
	CounterpartSigned(c Contract) bool
	// StatusAfterSign is the contract status once this party's signature
	// lands, given whether the counterpart had already signed.
	StatusAfterSign(counterpartSigned bool) Status
	// CanReject reports whether this party may reject a contract.
	CanReject() bool

	attach(c *Contract, sig Signature)
}

// PartyFor builds the capability for a resolved profile.
func PartyFor(role identity.Role, profile identity.Profile) (Party, error) {
	switch role {
	case identity.RoleFarmer:
		return farmerParty{profile: profile}, nil
	case identity.RoleBuyer:
		return buyerParty{profile: profile}, nil
	default:
		return nil, fault.Forbidden("invalid role %q", role)
	}
}

type farmerParty struct{ profile identity.Profile }

func (p farmerParty) Role() identity.Role          { return identity.RoleFarmer }
func (p farmerParty) ProfileID() string            { return p.profile.ID }
func (p farmerParty) Owns(c Contract) bool         { return c.FarmerID == p.profile.ID }
func (p farmerParty) SignerName(c Contract) string { return c.FarmerName }
func (p farmerParty) OwnSignature(c Contract) *Signature {
	return c.FarmerSignature
}
func (p farmerParty) CounterpartSigned(c Contract) bool { return c.BuyerSignature != nil }
func (p farmerParty) CanReject() bool                   { return true }

func (p farmerParty) StatusAfterSign(counterpartSigned bool) Status {
	if counterpartSigned {
		return StatusActive
	}
	return StatusSignedFarmer
}

func (p farmerParty) attach(c *Contract, sig Signature) { c.FarmerSignature = &sig }

type buyerParty struct{ profile identity.Profile }

func (p buyerParty) Role() identity.Role          { return identity.RoleBuyer }
func (p buyerParty) ProfileID() string            { return p.profile.ID }
func (p buyerParty) Owns(c Contract) bool         { return c.BuyerID == p.profile.ID }
func (p buyerParty) SignerName(c Contract) string { return c.BuyerName }
func (p buyerParty) OwnSignature(c Contract) *Signature {
	return c.BuyerSignature
}
func (p buyerParty) CounterpartSigned(c Contract) bool { return c.FarmerSignature != nil }
func (p buyerParty) CanReject() bool                   { return false }

// A buyer-first signature is recorded but does not advance the visible
// status; only the farmer's decision moves the state machine forward.
func (p buyerParty) StatusAfterSign(counterpartSigned bool) Status {
	if counterpartSigned {
		return StatusActive
	}
	return StatusPending
}

func (p buyerParty) attach(c *Contract, sig Signature) { c.BuyerSignature = &sig }
