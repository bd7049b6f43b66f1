package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/agrolink/tradepost/internal/events"
	"github.com/agrolink/tradepost/internal/fault"
	"github.com/agrolink/tradepost/internal/orders"
	"github.com/agrolink/tradepost/internal/redisx"
)

type OrdersHandler struct {
	Svc      *orders.Service
	Validate *validatorv10.Validate
	Pub      Publishers
	Redis    *redis.Client
	Service  string
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Put("/orders/{id}/accept", h.accept)
	r.Put("/orders/{id}/reject", h.reject)
}

type orderLineReq struct {
	InventoryID string  `json:"inventory_id" validate:"required"`
	Quantity    float64 `json:"quantity" validate:"gt=0"`
}

type createOrderReq struct {
	FarmerID             string         `json:"farmer_id" validate:"required"`
	Items                []orderLineReq `json:"items" validate:"min=1,dive"`
	BuyerMessage         string         `json:"buyer_message"`
	ExpectedDeliveryDate string         `json:"expected_delivery_date"`
}

type acceptOrderReq struct {
	FarmerResponse string `json:"farmer_response"`
}

type rejectOrderReq struct {
	RejectionReason string `json:"rejection_reason"`
}

type orderResp struct {
	ID                   string            `json:"id"`
	BuyerID              string            `json:"buyer_id"`
	BuyerName            string            `json:"buyer_name"`
	FarmerID             string            `json:"farmer_id"`
	FarmerName           string            `json:"farmer_name"`
	Items                []orders.LineItem `json:"items"`
	TotalAmount          float64           `json:"total_amount"`
	Status               string            `json:"status"`
	BuyerMessage         string            `json:"buyer_message,omitempty"`
	FarmerResponse       string            `json:"farmer_response,omitempty"`
	ExpectedDeliveryDate string            `json:"expected_delivery_date,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func toOrderResp(o orders.Order) orderResp {
	return orderResp{
		ID:                   o.ID,
		BuyerID:              o.BuyerID,
		BuyerName:            o.BuyerName,
		FarmerID:             o.FarmerID,
		FarmerName:           o.FarmerName,
		Items:                o.Items,
		TotalAmount:          o.TotalAmount,
		Status:               string(o.Status),
		BuyerMessage:         o.BuyerMessage,
		FarmerResponse:       o.FarmerResponse,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := decodeValid(r, h.Validate, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	in := orders.CreateInput{
		FarmerID:             req.FarmerID,
		BuyerMessage:         req.BuyerMessage,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, orders.LineRequest{InventoryID: it.InventoryID, Quantity: it.Quantity})
	}

	o, err := h.Svc.Create(ctx, callerFrom(r), in)
	if err != nil {
		writeError(w, err)
		return
	}

	cacheStatus(ctx, h.Redis, redisx.KeyOrderStatus, o.ID, o.Status)
	emit(h.Pub.OrderCreated, h.Service, events.EventOrderCreated, r.Header.Get("X-Request-Id"), o.ID,
		events.OrderCreatedPayload{
			OrderID:     o.ID,
			BuyerID:     o.BuyerID,
			FarmerID:    o.FarmerID,
			TotalAmount: o.TotalAmount,
		})

	writeJSON(w, http.StatusCreated, toOrderResp(o))
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f := orders.ListFilter{}
	if s := r.URL.Query().Get("status"); s != "" {
		st := orders.Status(s)
		if !st.Valid() {
			writeError(w, fault.Validation("unknown order status %q", s))
			return
		}
		f.Status = st
	}
	for qp, dst := range map[string]**time.Time{"from": &f.From, "to": &f.To} {
		if v := r.URL.Query().Get(qp); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeError(w, fault.Validation("%s must be RFC 3339", qp))
				return
			}
			*dst = &t
		}
	}

	os, err := h.Svc.List(ctx, callerFrom(r), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]orderResp, 0, len(os))
	for _, o := range os {
		out = append(out, toOrderResp(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Svc.Get(ctx, callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *OrdersHandler) accept(w http.ResponseWriter, r *http.Request) {
	var req acceptOrderReq
	if err := decodeValid(r, h.Validate, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	id := chi.URLParam(r, "id")
	o, c, err := h.Svc.Accept(ctx, callerFrom(r), id, req.FarmerResponse)
	if err != nil {
		writeError(w, err)
		return
	}

	trace := r.Header.Get("X-Request-Id")
	cacheStatus(ctx, h.Redis, redisx.KeyOrderStatus, o.ID, o.Status)
	cacheStatus(ctx, h.Redis, redisx.KeyContractStatus, c.ID, c.Status)
	emit(h.Pub.OrderAccepted, h.Service, events.EventOrderAccepted, trace, o.ID,
		events.OrderAcceptedPayload{OrderID: o.ID, ContractID: c.ID, Response: o.FarmerResponse})
	emit(h.Pub.ContractCreated, h.Service, events.EventContractCreated, trace, c.ID,
		events.ContractCreatedPayload{
			ContractID:  c.ID,
			BuyerID:     c.BuyerID,
			FarmerID:    c.FarmerID,
			TotalAmount: c.TotalAmount,
			Hash:        c.ContractHash,
			OrderID:     o.ID,
		})

	writeJSON(w, http.StatusOK, map[string]any{
		"order":    toOrderResp(o),
		"contract": toContractResp(c),
	})
}

func (h *OrdersHandler) reject(w http.ResponseWriter, r *http.Request) {
	var req rejectOrderReq
	if err := decodeValid(r, h.Validate, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Svc.Reject(ctx, callerFrom(r), chi.URLParam(r, "id"), req.RejectionReason)
	if err != nil {
		writeError(w, err)
		return
	}

	cacheStatus(ctx, h.Redis, redisx.KeyOrderStatus, o.ID, o.Status)
	emit(h.Pub.OrderRejected, h.Service, events.EventOrderRejected, r.Header.Get("X-Request-Id"), o.ID,
		events.OrderRejectedPayload{OrderID: o.ID, Reason: o.FarmerResponse})

	writeJSON(w, http.StatusOK, toOrderResp(o))
}
