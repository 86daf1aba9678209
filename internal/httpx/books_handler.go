package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ariefcatur/go-bookswap/internal/orders"
	"go.uber.org/zap"
)

type AddItemReq struct {
	BookID int64 `json:"book_id"`
}

type cartView struct {
	BookIDs []int64       `json:"book_ids"`
	Books   []orders.Book `json:"books"`
}

func (h *Handler) viewBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b, err := h.Engine.ViewBook(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ids, err := h.Carts.List(ctx, actor.ID)
	if err != nil {
		h.logger().Error("list cart", zap.Int64("buyer_id", actor.ID), zap.Error(err))
		writeError(w, &orders.StoreError{Op: "list cart", Err: err})
		return
	}
	books, err := h.Engine.Books(ctx, ids)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	if books == nil {
		books = []orders.Book{}
	}
	writeJSON(w, http.StatusOK, cartView{BookIDs: ids, Books: books})
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var req AddItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BookID <= 0 {
		badRequest(w, "book_id is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// buku harus ada; status dicek lagi saat checkout
	found, err := h.Engine.Books(ctx, []int64{req.BookID})
	if err != nil {
		writeError(w, err)
		return
	}
	if len(found) == 0 {
		writeError(w, orders.ErrBookNotFound)
		return
	}
	if err := h.Carts.Add(ctx, actor.ID, req.BookID); err != nil {
		h.logger().Error("add to cart", zap.Int64("buyer_id", actor.ID), zap.Error(err))
		writeError(w, &orders.StoreError{Op: "add to cart", Err: err})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	bookID, err := pathID(r, "bookID")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Carts.Remove(ctx, actor.ID, bookID); err != nil {
		writeError(w, &orders.StoreError{Op: "remove from cart", Err: err})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var req orders.NewListing
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b, err := h.Engine.CreateListing(ctx, actor.ID, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req orders.ListingUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	b, err := h.Engine.UpdateListing(ctx, actor.ID, id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
