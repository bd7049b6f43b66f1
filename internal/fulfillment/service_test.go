package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/tradepost/internal/contracts"
	"github.com/agrolink/tradepost/internal/events"
	"github.com/agrolink/tradepost/internal/identity"
	kafkax "github.com/agrolink/tradepost/internal/kafka"
	"github.com/agrolink/tradepost/internal/redisx"
)

func newFixture(t *testing.T) (*Service, *contracts.MemStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := contracts.NewMemStore()
	dir := &identity.StaticDirectory{
		Farmers: []identity.Profile{{ID: "f1", PrincipalID: "pf", Name: "Green Valley Farm"}},
		Buyers:  []identity.Profile{{ID: "b1", PrincipalID: "pb", Name: "Acme Foods"}},
	}
	svc := &Service{
		Contracts:   contracts.NewService(store, dir),
		Redis:       rdb,
		ServiceName: "tradepost-test-fulfillment",
	}
	return svc, store, mr
}

func activeContract(t *testing.T, store *contracts.MemStore, id string) {
	t.Helper()
	now := time.Now().UTC()
	c := contracts.Contract{
		ID:           id,
		BuyerID:      "b1",
		FarmerID:     "f1",
		Items:        []contracts.Item{{ProductName: "Tomatoes", Quantity: 10, Unit: "kg", PricePerUnit: 2, LineTotal: 20}},
		TotalAmount:  20,
		Status:       contracts.StatusActive,
		ContractHash: "feed",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, store.Create(context.Background(), &c))
}

func fulfilledMessage(t *testing.T, eventID, contractID string) kafkago.Message {
	t.Helper()
	env := events.Envelope{
		EventID:       eventID,
		EventType:     events.EventContractFulfilled,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "delivery-svc",
		CorrelationID: contractID,
		Payload:       kafkax.MustMarshal(events.ContractFulfilledPayload{ContractID: contractID}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleContractFulfilled(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()
	activeContract(t, store, "c1")

	err := svc.HandleContractFulfilled(ctx, fulfilledMessage(t, "e1", "c1"))
	require.NoError(t, err)

	c, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusCompleted, c.Status)
	require.NotNil(t, c.CompletedAt)

	// status cache written for the completed contract
	s, err := svc.Redis.Get(ctx, fmt.Sprintf(redisx.KeyContractStatus, "c1")).Result()
	require.NoError(t, err)
	var cached map[string]string
	require.NoError(t, json.Unmarshal([]byte(s), &cached))
	assert.Equal(t, "COMPLETED", cached["status"])
}

func TestReplayedEventIsDeduped(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()
	activeContract(t, store, "c1")

	m := fulfilledMessage(t, "e1", "c1")
	require.NoError(t, svc.HandleContractFulfilled(ctx, m))
	// replay with the same event id commits without touching the contract
	require.NoError(t, svc.HandleContractFulfilled(ctx, m))

	c, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusCompleted, c.Status)
}

func TestNonActiveContractIsSkipped(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()
	activeContract(t, store, "c1")
	require.NoError(t, svc.HandleContractFulfilled(ctx, fulfilledMessage(t, "e1", "c1")))

	// a second distinct event finds the contract already COMPLETED and is
	// dropped so the offset still commits
	require.NoError(t, svc.HandleContractFulfilled(ctx, fulfilledMessage(t, "e2", "c1")))

	// unknown contract ids behave the same way
	require.NoError(t, svc.HandleContractFulfilled(ctx, fulfilledMessage(t, "e3", "ghost")))
}

func TestForeignEventTypesAreIgnored(t *testing.T) {
	svc, store, _ := newFixture(t)
	ctx := context.Background()
	activeContract(t, store, "c1")

	env := events.Envelope{
		EventID:   "e9",
		EventType: events.EventContractSigned,
		Payload:   kafkax.MustMarshal(events.ContractSignedPayload{ContractID: "c1"}),
	}
	require.NoError(t, svc.HandleContractFulfilled(ctx, kafkago.Message{Value: kafkax.MustMarshal(env)}))

	c, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, contracts.StatusActive, c.Status)
}
