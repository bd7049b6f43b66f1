package contracts

import (
	"time"

	"github.com/agrolink/tradepost/internal/identity"
)

// Item is a contract line. Quantities and prices were frozen when the
// underlying order (or direct contract draft) was created.
type Item struct {
	ProductName  string  `json:"product_name"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"price_per_unit"`
	LineTotal    float64 `json:"line_total"`
}

// Signature is one party's signature over the contract hash. At most one
// per role; immutable once set.
type Signature struct {
	SignerID   string        `json:"signer_id"`
	SignerName string        `json:"signer_name"`
	SignerRole identity.Role `json:"signer_role"`
	Signature  string        `json:"signature"`
	PublicKey  string        `json:"public_key"`
	SignedAt   time.Time     `json:"signed_at"`
}

type Contract struct {
	ID              string
	BuyerID         string
	BuyerName       string
	FarmerID        string
	FarmerName      string
	Items           []Item
	TotalAmount     float64
	DeliveryDate    string
	DeliveryAddress string
	Terms           string
	Notes           string
	Status          Status

	// ContractHash is computed once over the creation payload and never
	// recomputed. It is an audit fingerprint, not a live checksum.
	ContractHash string

	FarmerSignature *Signature
	BuyerSignature  *Signature

	CreatedAt   time.Time
	UpdatedAt   time.Time
	SignedAt    *time.Time
	CompletedAt *time.Time
}

// HashPayload is the canonical content the contract hash covers.
type HashPayload struct {
	BuyerID         string  `json:"buyer_id"`
	FarmerID        string  `json:"farmer_id"`
	Items           []Item  `json:"items"`
	TotalAmount     float64 `json:"total_amount"`
	DeliveryDate    string  `json:"delivery_date,omitempty"`
	DeliveryAddress string  `json:"delivery_address,omitempty"`
	Terms           string  `json:"terms,omitempty"`
}
