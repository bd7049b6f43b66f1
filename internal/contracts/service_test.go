package contracts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/tradepost/internal/fault"
	"github.com/agrolink/tradepost/internal/identity"
	"github.com/agrolink/tradepost/internal/signing"
)

var (
	farmerCaller = identity.Caller{PrincipalID: "pf", Role: identity.RoleFarmer}
	buyerCaller  = identity.Caller{PrincipalID: "pb", Role: identity.RoleBuyer}

	otherFarmer = identity.Caller{PrincipalID: "pf2", Role: identity.RoleFarmer}
	otherBuyer  = identity.Caller{PrincipalID: "pb2", Role: identity.RoleBuyer}
)

func testDirectory() *identity.StaticDirectory {
	return &identity.StaticDirectory{
		Farmers: []identity.Profile{
			{ID: "f1", PrincipalID: "pf", Name: "Green Valley Farm"},
			{ID: "f2", PrincipalID: "pf2", Name: "Hillside Farm"},
		},
		Buyers: []identity.Profile{
			{ID: "b1", PrincipalID: "pb", Name: "Acme Foods"},
			{ID: "b2", PrincipalID: "pb2", Name: "Fresh Mart"},
		},
	}
}

func newTestService(t *testing.T) (*Service, *MemStore) {
	t.Helper()
	store := NewMemStore()
	return NewService(store, testDirectory()), store
}

func draftInput() CreateInput {
	return CreateInput{
		BuyerID:  "b1",
		FarmerID: "f1",
		Items: []Item{
			{ProductName: "Tomatoes", Quantity: 40, Unit: "kg", PricePerUnit: 2.5, LineTotal: 100},
		},
		TotalAmount:     100,
		DeliveryDate:    "2026-09-15",
		DeliveryAddress: "12 Market St",
		Terms:           "Net 30",
		Notes:           "call on arrival",
	}
}

func mustCreate(t *testing.T, svc *Service) Contract {
	t.Helper()
	c, err := svc.Create(context.Background(), buyerCaller, draftInput())
	require.NoError(t, err)
	return c
}

func TestCreateDirectContract(t *testing.T) {
	svc, _ := newTestService(t)
	c := mustCreate(t, svc)

	assert.Equal(t, StatusPending, c.Status)
	assert.Equal(t, "Acme Foods", c.BuyerName)
	assert.Equal(t, "Green Valley Farm", c.FarmerName)
	assert.Nil(t, c.FarmerSignature)
	assert.Nil(t, c.BuyerSignature)

	in := draftInput()
	want, err := signing.Hash(HashPayload{
		BuyerID:         in.BuyerID,
		FarmerID:        in.FarmerID,
		Items:           in.Items,
		TotalAmount:     in.TotalAmount,
		DeliveryDate:    in.DeliveryDate,
		DeliveryAddress: in.DeliveryAddress,
		Terms:           in.Terms,
	})
	require.NoError(t, err)
	assert.Equal(t, want, c.ContractHash)
}

func TestCreateAuthorization(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, farmerCaller, draftInput())
	assert.True(t, fault.IsKind(err, fault.KindForbidden))

	in := draftInput()
	in.BuyerID = "b2"
	_, err = svc.Create(ctx, buyerCaller, in)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))

	in = draftInput()
	in.Items = nil
	_, err = svc.Create(ctx, buyerCaller, in)
	assert.True(t, fault.IsKind(err, fault.KindValidation))

	in = draftInput()
	in.FarmerID = "nope"
	_, err = svc.Create(ctx, buyerCaller, in)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func signInput(t *testing.T, digest string) SignInput {
	t.Helper()
	kp, err := signing.GenerateKeyPair()
	require.NoError(t, err)
	sig, err := signing.Sign(digest, kp.PrivateKey)
	require.NoError(t, err)
	return SignInput{Signature: sig, PublicKey: kp.PublicKey}
}

func TestFarmerThenBuyerSigning(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	c1, err := svc.Sign(ctx, farmerCaller, c.ID, signInput(t, c.ContractHash))
	require.NoError(t, err)
	assert.Equal(t, StatusSignedFarmer, c1.Status)
	require.NotNil(t, c1.FarmerSignature)
	assert.Equal(t, "Green Valley Farm", c1.FarmerSignature.SignerName)
	assert.Equal(t, identity.RoleFarmer, c1.FarmerSignature.SignerRole)
	assert.Nil(t, c1.SignedAt)

	c2, err := svc.Sign(ctx, buyerCaller, c.ID, signInput(t, c.ContractHash))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, c2.Status)
	require.NotNil(t, c2.BuyerSignature)
	require.NotNil(t, c2.SignedAt)

	// the hash is the one computed at creation, untouched by signing
	assert.Equal(t, c.ContractHash, c2.ContractHash)
}

func TestBuyerFirstSignatureDoesNotAdvanceStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	c1, err := svc.Sign(ctx, buyerCaller, c.ID, signInput(t, c.ContractHash))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, c1.Status)
	require.NotNil(t, c1.BuyerSignature)
	assert.Nil(t, c1.SignedAt)

	c2, err := svc.Sign(ctx, farmerCaller, c.ID, signInput(t, c.ContractHash))
	require.NoError(t, err)
	assert.Equal(t, StatusActive, c2.Status)
	require.NotNil(t, c2.SignedAt)
}

func TestDoubleSignRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Sign(ctx, farmerCaller, c.ID, signInput(t, c.ContractHash))
	require.NoError(t, err)
	_, err = svc.Sign(ctx, farmerCaller, c.ID, signInput(t, c.ContractHash))
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))
}

func TestSignRequiresMembership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Sign(ctx, otherFarmer, c.ID, signInput(t, c.ContractHash))
	assert.True(t, fault.IsKind(err, fault.KindForbidden))

	_, err = svc.Sign(ctx, buyerCaller, c.ID, SignInput{})
	assert.True(t, fault.IsKind(err, fault.KindValidation))

	_, err = svc.Sign(ctx, buyerCaller, "missing", signInput(t, "deadbeef"))
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestSignTerminalStates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Reject(ctx, farmerCaller, c.ID)
	require.NoError(t, err)

	_, err = svc.Sign(ctx, farmerCaller, c.ID, signInput(t, c.ContractHash))
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))
}

func TestRejectRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Reject(ctx, buyerCaller, c.ID)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))
	assert.True(t, strings.Contains(err.Error(), "only farmers"))

	_, err = svc.Reject(ctx, otherFarmer, c.ID)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))

	rejected, err := svc.Reject(ctx, farmerCaller, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	_, err = svc.Reject(ctx, farmerCaller, c.ID)
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))
}

func TestRejectAfterFarmerSigned(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Sign(ctx, farmerCaller, c.ID, signInput(t, c.ContractHash))
	require.NoError(t, err)

	// SIGNED_FARMER is still rejectable; ACTIVE is not
	rejected, err := svc.Reject(ctx, farmerCaller, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
}

func TestGetAndListAuthorization(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Get(ctx, otherBuyer, c.ID)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))

	got, err := svc.Get(ctx, farmerCaller, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)

	mine, err := svc.List(ctx, buyerCaller, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := svc.List(ctx, otherFarmer, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)

	pending, err := svc.List(ctx, buyerCaller, ListFilter{Status: StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	active, err := svc.List(ctx, buyerCaller, ListFilter{Status: StatusActive})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestVerifySignatures(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Sign(ctx, farmerCaller, c.ID, signInput(t, c.ContractHash))
	require.NoError(t, err)

	// buyer signs over the wrong digest; submission is accepted (storage
	// does not verify) but the check reports it invalid
	_, err = svc.Sign(ctx, buyerCaller, c.ID, signInput(t, "0000"))
	require.NoError(t, err)

	res, err := svc.VerifySignatures(ctx, buyerCaller, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ContractHash, res.ContractHash)
	require.Len(t, res.Checks, 2)
	assert.True(t, res.Checks[0].Valid)
	assert.Equal(t, identity.RoleFarmer, res.Checks[0].Role)
	assert.False(t, res.Checks[1].Valid)
}

func TestGenerateKeys(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	kp, err := svc.GenerateKeys(ctx, farmerCaller, c.ID)
	require.NoError(t, err)
	assert.Contains(t, kp.PrivateKey, "PRIVATE KEY")
	assert.Contains(t, kp.PublicKey, "PUBLIC KEY")

	_, err = svc.GenerateKeys(ctx, otherBuyer, c.ID)
	assert.True(t, fault.IsKind(err, fault.KindForbidden))
}

func TestComplete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCreate(t, svc)

	_, err := svc.Complete(ctx, c.ID)
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))

	_, err = svc.Sign(ctx, farmerCaller, c.ID, signInput(t, c.ContractHash))
	require.NoError(t, err)
	_, err = svc.Sign(ctx, buyerCaller, c.ID, signInput(t, c.ContractHash))
	require.NoError(t, err)

	done, err := svc.Complete(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	_, err = svc.Complete(ctx, c.ID)
	assert.True(t, fault.IsKind(err, fault.KindInvalidState))
}
