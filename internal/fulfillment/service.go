// Package fulfillment closes out active contracts when the delivery
// pipeline reports them fulfilled.
package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/agrolink/tradepost/internal/contracts"
	"github.com/agrolink/tradepost/internal/events"
	"github.com/agrolink/tradepost/internal/fault"
	kafkax "github.com/agrolink/tradepost/internal/kafka"
	"github.com/agrolink/tradepost/internal/redisx"
)

type Service struct {
	Contracts   *contracts.Service
	Redis       *redis.Client
	Producer    *kafkax.Producer // publishes contract.completed
	ServiceName string
}

// HandleContractFulfilled is wired as the consumer handler for the
// contract.fulfilled topic. Only ACTIVE contracts complete; anything else
// is logged and dropped so the offset still commits.
func (s *Service) HandleContractFulfilled(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != events.EventContractFulfilled {
		return nil
	}

	// dedup via Redis (by event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, "fulfillment", env.EventID)
	first, err := redisx.MarkOnce(ctx, s.Redis, dkey, redisx.TTLDedup)
	if err == nil && !first {
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.ContractFulfilledPayload](env.Payload)
	if err != nil {
		return err
	}

	c, err := s.Contracts.Complete(ctx, p.ContractID)
	if err != nil {
		switch fault.KindOf(err) {
		case fault.KindNotFound, fault.KindInvalidState:
			// stale or replayed event; nothing to retry
			log.Printf("skip fulfillment for contract %s: %v", p.ContractID, err)
			return nil
		}
		return err
	}

	if s.Redis != nil {
		b, _ := json.Marshal(map[string]any{"status": c.Status})
		_ = s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyContractStatus, c.ID), b, redisx.TTLStatusCache).Err()
	}
	s.publishCompleted(c, env.TraceID)
	return nil
}

func (s *Service) publishCompleted(c contracts.Contract, trace string) {
	if s.Producer == nil {
		return
	}
	completedAt := time.Now().UTC()
	if c.CompletedAt != nil {
		completedAt = *c.CompletedAt
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventContractCompleted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: c.ID,
		Payload:       kafkax.MustMarshal(events.ContractCompletedPayload{ContractID: c.ID, CompletedAt: completedAt}),
	}
	s.Producer.Publish(events.PartitionKey(c.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventContractCompleted)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
