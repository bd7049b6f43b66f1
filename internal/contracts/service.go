package contracts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agrolink/tradepost/internal/fault"
	"github.com/agrolink/tradepost/internal/identity"
	"github.com/agrolink/tradepost/internal/signing"
)

// Service runs the contract ledger: creation, the dual-signature state
// machine, farmer rejection, and the fulfillment pass-through. Every
// mutating call resolves the caller to a Party and checks ownership before
// touching the store.
type Service struct {
	store     Store
	directory identity.Directory
	nowFunc   func() time.Time
}

func NewService(store Store, directory identity.Directory) *Service {
	return &Service{store: store, directory: directory, nowFunc: time.Now}
}

// CreateInput is a buyer's direct contract draft against a farmer's catalog.
type CreateInput struct {
	BuyerID         string
	FarmerID        string
	Items           []Item
	TotalAmount     float64
	DeliveryDate    string
	DeliveryAddress string
	Terms           string
	Notes           string
}

func (s *Service) Create(ctx context.Context, caller identity.Caller, in CreateInput) (Contract, error) {
	if caller.Role != identity.RoleBuyer {
		return Contract{}, fault.Forbidden("only buyers can create contracts")
	}
	buyer, err := s.directory.BuyerFor(ctx, caller.PrincipalID)
	if err != nil {
		return Contract{}, err
	}
	if buyer.ID != in.BuyerID {
		return Contract{}, fault.Forbidden("cannot create contract for another buyer")
	}
	farmer, err := s.directory.FarmerByID(ctx, in.FarmerID)
	if err != nil {
		return Contract{}, err
	}
	if len(in.Items) == 0 {
		return Contract{}, fault.Validation("contract requires at least one item")
	}

	hash, err := signing.Hash(HashPayload{
		BuyerID:         buyer.ID,
		FarmerID:        farmer.ID,
		Items:           in.Items,
		TotalAmount:     in.TotalAmount,
		DeliveryDate:    in.DeliveryDate,
		DeliveryAddress: in.DeliveryAddress,
		Terms:           in.Terms,
	})
	if err != nil {
		return Contract{}, err
	}

	now := s.nowFunc().UTC()
	c := Contract{
		ID:              uuid.NewString(),
		BuyerID:         buyer.ID,
		BuyerName:       buyer.Name,
		FarmerID:        farmer.ID,
		FarmerName:      farmer.Name,
		Items:           in.Items,
		TotalAmount:     in.TotalAmount,
		DeliveryDate:    in.DeliveryDate,
		DeliveryAddress: in.DeliveryAddress,
		Terms:           in.Terms,
		Notes:           in.Notes,
		Status:          StatusPending,
		ContractHash:    hash,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.Create(ctx, &c); err != nil {
		return Contract{}, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, caller identity.Caller, id string) (Contract, error) {
	p, err := s.partyFor(ctx, caller)
	if err != nil {
		return Contract{}, err
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	if !p.Owns(c) {
		return Contract{}, fault.Forbidden("not authorized to view this contract")
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, caller identity.Caller, f ListFilter) ([]Contract, error) {
	p, err := s.partyFor(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.store.ListForParty(ctx, p.Role(), p.ProfileID(), f)
}

// SignInput is a signature submission. The private key never reaches the
// server; both fields come from a client-side signing step.
type SignInput struct {
	Signature string
	PublicKey string
}

func (s *Service) Sign(ctx context.Context, caller identity.Caller, id string, in SignInput) (Contract, error) {
	if in.Signature == "" || in.PublicKey == "" {
		return Contract{}, fault.Validation("signature and public_key are required")
	}
	p, err := s.partyFor(ctx, caller)
	if err != nil {
		return Contract{}, err
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	if !p.Owns(c) {
		return Contract{}, fault.Forbidden("not authorized to sign this contract")
	}
	if !Signable(c.Status) {
		return Contract{}, fault.InvalidState("contract cannot be signed in status %s", c.Status)
	}
	if p.OwnSignature(c) != nil {
		return Contract{}, fault.InvalidState("%s has already signed this contract", p.Role())
	}

	now := s.nowFunc().UTC()
	sig := Signature{
		SignerID:   p.ProfileID(),
		SignerName: p.SignerName(c),
		SignerRole: p.Role(),
		Signature:  in.Signature,
		PublicKey:  in.PublicKey,
		SignedAt:   now,
	}
	return s.store.Sign(ctx, id, p, sig, now)
}

func (s *Service) Reject(ctx context.Context, caller identity.Caller, id string) (Contract, error) {
	p, err := s.partyFor(ctx, caller)
	if err != nil {
		return Contract{}, err
	}
	if !p.CanReject() {
		return Contract{}, fault.Forbidden("only farmers can reject contracts")
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	if !p.Owns(c) {
		return Contract{}, fault.Forbidden("not authorized to reject this contract")
	}
	return s.store.Reject(ctx, id, s.nowFunc().UTC())
}

// KeyDisclosureNote accompanies every generated key pair.
const KeyDisclosureNote = "Store the private key securely. It will not be shown again."

// GenerateKeys returns a fresh key pair for a contract party. Nothing is
// retained server-side; a lost private key cannot be reissued.
func (s *Service) GenerateKeys(ctx context.Context, caller identity.Caller, id string) (signing.KeyPair, error) {
	p, err := s.partyFor(ctx, caller)
	if err != nil {
		return signing.KeyPair{}, err
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return signing.KeyPair{}, err
	}
	if !p.Owns(c) {
		return signing.KeyPair{}, fault.Forbidden("not authorized")
	}
	return signing.GenerateKeyPair()
}

type SignatureCheck struct {
	Role       identity.Role `json:"role"`
	SignerName string        `json:"signer_name"`
	Valid      bool          `json:"valid"`
}

type VerifyResult struct {
	ContractHash string           `json:"contract_hash"`
	Checks       []SignatureCheck `json:"checks"`
}

// VerifySignatures checks each stored signature against the stored contract
// hash. The hash itself is never recomputed from the live record.
func (s *Service) VerifySignatures(ctx context.Context, caller identity.Caller, id string) (VerifyResult, error) {
	c, err := s.Get(ctx, caller, id)
	if err != nil {
		return VerifyResult{}, err
	}
	res := VerifyResult{ContractHash: c.ContractHash}
	for _, sig := range []*Signature{c.FarmerSignature, c.BuyerSignature} {
		if sig == nil {
			continue
		}
		res.Checks = append(res.Checks, SignatureCheck{
			Role:       sig.SignerRole,
			SignerName: sig.SignerName,
			Valid:      signing.Verify(c.ContractHash, sig.Signature, sig.PublicKey),
		})
	}
	return res, nil
}

// Complete is driven by the external fulfillment event, not by a caller.
func (s *Service) Complete(ctx context.Context, id string) (Contract, error) {
	return s.store.Complete(ctx, id, s.nowFunc().UTC())
}

func (s *Service) partyFor(ctx context.Context, caller identity.Caller) (Party, error) {
	var (
		profile identity.Profile
		err     error
	)
	switch caller.Role {
	case identity.RoleFarmer:
		profile, err = s.directory.FarmerFor(ctx, caller.PrincipalID)
	case identity.RoleBuyer:
		profile, err = s.directory.BuyerFor(ctx, caller.PrincipalID)
	default:
		return nil, fault.Forbidden("invalid role %q", caller.Role)
	}
	if err != nil {
		return nil, err
	}
	return PartyFor(caller.Role, profile)
}
