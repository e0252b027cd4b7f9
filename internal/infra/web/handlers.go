package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"handyai-billing/internal/domain"
	"handyai-billing/internal/domain/model"
	"handyai-billing/internal/usecase"
)

// entitlementsHandler serves the current per-SKU state table plus the local
// consumption override.
func entitlementsHandler(table *usecase.EntitlementTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := struct {
			Skus  map[string]model.SkuState `json:"skus"`
			Local model.SkuState            `json:"local"`
		}{
			Skus:  table.Snapshot(),
			Local: table.LocalState(),
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type productView struct {
	ID     string               `json:"id"`
	Type   model.ProductType    `json:"type"`
	Offers []model.OfferVariant `json:"offers"`
}

// productsHandler serves the cached catalog. SKUs whose details have not been
// queried yet are omitted rather than reported empty.
func productsHandler(table *usecase.EntitlementTable, catalog usecase.CatalogUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := make([]productView, 0, len(table.Tracked()))
		for _, id := range table.Tracked() {
			p, ok := table.Product(id)
			if !ok {
				continue
			}
			out = append(out, productView{ID: p.ID, Type: p.Type, Offers: p.Offers})
		}
		resp := struct {
			Products []productView `json:"products"`
			Fresh    bool          `json:"fresh"`
		}{Products: out, Fresh: catalog.Fresh()}
		writeJSON(w, http.StatusOK, resp)
	}
}

type purchaseRequest struct {
	ProductID string `json:"product_id"`
	Plan      string `json:"plan"`
}

func purchaseHandler(svc BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req purchaseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ProductID == "" || req.Plan == "" {
			http.Error(w, "product_id and plan are required", http.StatusBadRequest)
			return
		}

		err := svc.MakePurchase(r.Context(), req.ProductID, model.Plan(req.Plan))
		switch {
		case err == nil:
			w.WriteHeader(http.StatusAccepted)
		case errors.Is(err, domain.ErrUnknownProduct), errors.Is(err, domain.ErrNoMatchingOffer):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, "Failed to launch purchase flow", http.StatusBadGateway)
		}
	}
}

func refreshHandler(svc BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Resume()
		w.WriteHeader(http.StatusAccepted)
	}
}

type consumeRequest struct {
	ProductID string `json:"product_id"`
}

func consumeHandler(svc BillingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req consumeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		err := svc.ConsumePurchase(r.Context(), req.ProductID)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "no active purchase covers this SKU", http.StatusNotFound)
		case errors.Is(err, domain.ErrConsumptionInFlight):
			http.Error(w, "consumption already in progress", http.StatusConflict)
		default:
			http.Error(w, "Failed to consume purchase", http.StatusBadGateway)
		}
	}
}

// connectionHandler reports the supervisor's current backoff position, for
// debugging flapping billing sessions.
func connectionHandler(svc BillingService, catalog usecase.CatalogUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := struct {
			ReconnectDelayMs int64 `json:"reconnect_delay_ms"`
			CatalogFresh     bool  `json:"catalog_fresh"`
		}{
			ReconnectDelayMs: svc.ReconnectDelay().Milliseconds(),
			CatalogFresh:     catalog.Fresh(),
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
