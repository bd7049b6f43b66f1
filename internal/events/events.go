package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated      = "OrderCreated"
	EventOrderAccepted     = "OrderAccepted"
	EventOrderRejected     = "OrderRejected"
	EventContractCreated   = "ContractCreated"
	EventContractSigned    = "ContractSigned"
	EventContractActivated = "ContractActivated"
	EventContractRejected  = "ContractRejected"
	EventContractFulfilled = "ContractFulfilled"
	EventContractCompleted = "ContractCompleted"
)

const (
	TopicOrderCreated      = "order.created"
	TopicOrderAccepted     = "order.accepted"
	TopicOrderRejected     = "order.rejected"
	TopicContractCreated   = "contract.created"
	TopicContractSigned    = "contract.signed"
	TopicContractRejected  = "contract.rejected"
	TopicContractFulfilled = "contract.fulfilled"
	TopicContractCompleted = "contract.completed"
)

// Partition key = aggregate id, so all events of one aggregate stay ordered.
func PartitionKey(id string) []byte { return []byte(id) }

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// ---- payload types per event ----

type OrderCreatedPayload struct {
	OrderID     string  `json:"order_id"`
	BuyerID     string  `json:"buyer_id"`
	FarmerID    string  `json:"farmer_id"`
	TotalAmount float64 `json:"total_amount"`
}

type OrderAcceptedPayload struct {
	OrderID    string `json:"order_id"`
	ContractID string `json:"contract_id"`
	Response   string `json:"response,omitempty"`
}

type OrderRejectedPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type ContractCreatedPayload struct {
	ContractID  string  `json:"contract_id"`
	BuyerID     string  `json:"buyer_id"`
	FarmerID    string  `json:"farmer_id"`
	TotalAmount float64 `json:"total_amount"`
	Hash        string  `json:"contract_hash"`
	OrderID     string  `json:"order_id,omitempty"`
}

type ContractSignedPayload struct {
	ContractID string `json:"contract_id"`
	SignerRole string `json:"signer_role"`
	Status     string `json:"status"` // status after the signature landed
}

type ContractRejectedPayload struct {
	ContractID string `json:"contract_id"`
}

type ContractFulfilledPayload struct {
	ContractID   string `json:"contract_id"`
	FulfilledBy  string `json:"fulfilled_by,omitempty"`
	DeliveryNote string `json:"delivery_note,omitempty"`
}

type ContractCompletedPayload struct {
	ContractID  string    `json:"contract_id"`
	CompletedAt time.Time `json:"completed_at"`
}
