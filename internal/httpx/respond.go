package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ariefcatur/go-bookswap/internal/orders"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var errorStatus = []struct {
	err  error
	code int
	name string
}{
	{orders.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart"},
	{orders.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{orders.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{orders.ErrNotCancellable, http.StatusConflict, "not_cancellable"},
	{orders.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
	{orders.ErrBookNotFound, http.StatusNotFound, "book_not_found"},
	{orders.ErrListingLocked, http.StatusConflict, "listing_locked"},
	{orders.ErrInvalidListing, http.StatusBadRequest, "invalid_listing"},
	{orders.ErrInvalidOrderType, http.StatusBadRequest, "invalid_order_type"},
}

// writeError maps engine outcomes to HTTP. Store failures are retryable.
func writeError(w http.ResponseWriter, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeJSON(w, e.code, errorBody{Error: e.name, Message: err.Error()})
			return
		}
	}
	if orders.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "store_unavailable", Message: "temporary failure, retry"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: msg})
}
