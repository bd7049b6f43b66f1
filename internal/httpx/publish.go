package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/agrolink/tradepost/internal/events"
	kafkax "github.com/agrolink/tradepost/internal/kafka"
	"github.com/agrolink/tradepost/internal/redisx"
)

// Publisher is the slice of kafkax.Producer the handlers need. Kept as an
// interface so handler tests can capture events without a broker.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Publishers bundles one topic-bound producer per event the API emits.
// Nil entries are skipped, so partial wiring (or none, in tests) is fine.
type Publishers struct {
	OrderCreated     Publisher
	OrderAccepted    Publisher
	OrderRejected    Publisher
	ContractCreated  Publisher
	ContractSigned   Publisher
	ContractRejected Publisher
}

func emit(p Publisher, service, eventType, traceID, aggregateID string, payload any) {
	if p == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      service,
		TraceID:       traceID,
		CorrelationID: aggregateID,
	}
	ev.Payload = kafkax.MustMarshal(payload)
	p.Publish(events.PartitionKey(aggregateID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// cacheStatus writes the status-by-id shortcut used by dashboards and the
// fulfillment worker. Best effort; the store stays the source of truth.
func cacheStatus(ctx context.Context, rdb *redis.Client, keyFmt, id string, status any) {
	if rdb == nil {
		return
	}
	b, _ := json.Marshal(map[string]any{"status": status})
	_ = rdb.Set(ctx, fmt.Sprintf(keyFmt, id), b, redisx.TTLStatusCache).Err()
}
