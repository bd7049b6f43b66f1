package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"

	"github.com/agrolink/tradepost/internal/contracts"
	"github.com/agrolink/tradepost/internal/events"
	"github.com/agrolink/tradepost/internal/fault"
	"github.com/agrolink/tradepost/internal/redisx"
)

type ContractsHandler struct {
	Svc      *contracts.Service
	Validate *validatorv10.Validate
	Pub      Publishers
	Redis    *redis.Client
	Service  string
}

func (h *ContractsHandler) Register(r chi.Router) {
	r.Post("/contracts", h.create)
	r.Get("/contracts", h.list)
	r.Get("/contracts/{id}", h.get)
	r.Post("/contracts/{id}/sign", h.sign)
	r.Post("/contracts/{id}/reject", h.reject)
	r.Get("/contracts/{id}/generate-keys", h.generateKeys)
	r.Get("/contracts/{id}/signatures/verify", h.verify)
}

type contractItemReq struct {
	ProductName  string  `json:"product_name" validate:"required"`
	Quantity     float64 `json:"quantity" validate:"gt=0"`
	Unit         string  `json:"unit" validate:"required"`
	PricePerUnit float64 `json:"price_per_unit" validate:"gt=0"`
	LineTotal    float64 `json:"line_total"`
}

type createContractReq struct {
	BuyerID         string            `json:"buyer_id" validate:"required"`
	FarmerID        string            `json:"farmer_id" validate:"required"`
	Items           []contractItemReq `json:"items" validate:"min=1,dive"`
	TotalAmount     float64           `json:"total_amount" validate:"gt=0"`
	DeliveryDate    string            `json:"delivery_date"`
	DeliveryAddress string            `json:"delivery_address"`
	Terms           string            `json:"terms"`
	Notes           string            `json:"notes"`
}

type signContractReq struct {
	Signature string `json:"signature" validate:"required"`
	PublicKey string `json:"public_key" validate:"required"`
}

type contractResp struct {
	ID              string               `json:"id"`
	BuyerID         string               `json:"buyer_id"`
	BuyerName       string               `json:"buyer_name"`
	FarmerID        string               `json:"farmer_id"`
	FarmerName      string               `json:"farmer_name"`
	Items           []contracts.Item     `json:"items"`
	TotalAmount     float64              `json:"total_amount"`
	DeliveryDate    string               `json:"delivery_date,omitempty"`
	DeliveryAddress string               `json:"delivery_address,omitempty"`
	Terms           string               `json:"terms,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	Status          string               `json:"status"`
	ContractHash    string               `json:"contract_hash"`
	FarmerSignature *contracts.Signature `json:"farmer_signature,omitempty"`
	BuyerSignature  *contracts.Signature `json:"buyer_signature,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	SignedAt        *time.Time           `json:"signed_at,omitempty"`
	CompletedAt     *time.Time           `json:"completed_at,omitempty"`
}

func toContractResp(c contracts.Contract) contractResp {
	return contractResp{
		ID:              c.ID,
		BuyerID:         c.BuyerID,
		BuyerName:       c.BuyerName,
		FarmerID:        c.FarmerID,
		FarmerName:      c.FarmerName,
		Items:           c.Items,
		TotalAmount:     c.TotalAmount,
		DeliveryDate:    c.DeliveryDate,
		DeliveryAddress: c.DeliveryAddress,
		Terms:           c.Terms,
		Notes:           c.Notes,
		Status:          string(c.Status),
		ContractHash:    c.ContractHash,
		FarmerSignature: c.FarmerSignature,
		BuyerSignature:  c.BuyerSignature,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
		SignedAt:        c.SignedAt,
		CompletedAt:     c.CompletedAt,
	}
}

func (h *ContractsHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createContractReq
	if err := decodeValid(r, h.Validate, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	in := contracts.CreateInput{
		BuyerID:         req.BuyerID,
		FarmerID:        req.FarmerID,
		TotalAmount:     req.TotalAmount,
		DeliveryDate:    req.DeliveryDate,
		DeliveryAddress: req.DeliveryAddress,
		Terms:           req.Terms,
		Notes:           req.Notes,
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, contracts.Item{
			ProductName:  it.ProductName,
			Quantity:     it.Quantity,
			Unit:         it.Unit,
			PricePerUnit: it.PricePerUnit,
			LineTotal:    it.LineTotal,
		})
	}

	c, err := h.Svc.Create(ctx, callerFrom(r), in)
	if err != nil {
		writeError(w, err)
		return
	}

	cacheStatus(ctx, h.Redis, redisx.KeyContractStatus, c.ID, c.Status)
	emit(h.Pub.ContractCreated, h.Service, events.EventContractCreated, r.Header.Get("X-Request-Id"), c.ID,
		events.ContractCreatedPayload{
			ContractID:  c.ID,
			BuyerID:     c.BuyerID,
			FarmerID:    c.FarmerID,
			TotalAmount: c.TotalAmount,
			Hash:        c.ContractHash,
		})

	writeJSON(w, http.StatusCreated, toContractResp(c))
}

func (h *ContractsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f := contracts.ListFilter{}
	if s := r.URL.Query().Get("status"); s != "" {
		st := contracts.Status(s)
		if !st.Valid() {
			writeError(w, fault.Validation("unknown contract status %q", s))
			return
		}
		f.Status = st
	}

	cs, err := h.Svc.List(ctx, callerFrom(r), f)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]contractResp, 0, len(cs))
	for _, c := range cs {
		out = append(out, toContractResp(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ContractsHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Svc.Get(ctx, callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractResp(c))
}

func (h *ContractsHandler) sign(w http.ResponseWriter, r *http.Request) {
	var req signContractReq
	if err := decodeValid(r, h.Validate, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller := callerFrom(r)
	c, err := h.Svc.Sign(ctx, caller, chi.URLParam(r, "id"), contracts.SignInput{
		Signature: req.Signature,
		PublicKey: req.PublicKey,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	cacheStatus(ctx, h.Redis, redisx.KeyContractStatus, c.ID, c.Status)
	emit(h.Pub.ContractSigned, h.Service, events.EventContractSigned, r.Header.Get("X-Request-Id"), c.ID,
		events.ContractSignedPayload{
			ContractID: c.ID,
			SignerRole: string(caller.Role),
			Status:     string(c.Status),
		})

	writeJSON(w, http.StatusOK, toContractResp(c))
}

func (h *ContractsHandler) reject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Svc.Reject(ctx, callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	cacheStatus(ctx, h.Redis, redisx.KeyContractStatus, c.ID, c.Status)
	emit(h.Pub.ContractRejected, h.Service, events.EventContractRejected, r.Header.Get("X-Request-Id"), c.ID,
		events.ContractRejectedPayload{ContractID: c.ID})

	writeJSON(w, http.StatusOK, toContractResp(c))
}

func (h *ContractsHandler) generateKeys(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	kp, err := h.Svc.GenerateKeys(ctx, callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"private_key": kp.PrivateKey,
		"public_key":  kp.PublicKey,
		"note":        contracts.KeyDisclosureNote,
	})
}

func (h *ContractsHandler) verify(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	res, err := h.Svc.VerifySignatures(ctx, callerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
