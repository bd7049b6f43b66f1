package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agrolink/tradepost/internal/fault"
	"github.com/agrolink/tradepost/internal/identity"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

type callerKey struct{}

// WithCaller extracts the gateway-injected identity headers. Authentication
// happens upstream; this core never sees credentials.
func WithCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := identity.Caller{
			PrincipalID: r.Header.Get("X-Principal-Id"),
			Role:        identity.Role(r.Header.Get("X-Role")),
		}
		if caller.PrincipalID == "" || !caller.Role.Valid() {
			writeError(w, fault.Forbidden("caller identity missing or invalid"))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

func callerFrom(r *http.Request) identity.Caller {
	c, _ := r.Context().Value(callerKey{}).(identity.Caller)
	return c
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.KindValidation, fault.KindInsufficientStock, fault.KindNotAvailable:
		code = http.StatusBadRequest
	case fault.KindForbidden:
		code = http.StatusForbidden
	case fault.KindNotFound:
		code = http.StatusNotFound
	case fault.KindInvalidState:
		code = http.StatusConflict
	}
	body := map[string]string{"error": fault.KindOf(err).String()}
	if code != http.StatusInternalServerError {
		body["detail"] = err.Error()
	}
	writeJSON(w, code, body)
}
