package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-bookswap/internal/cart"
	"github.com/ariefcatur/go-bookswap/internal/notify"
	"github.com/ariefcatur/go-bookswap/internal/orders"
	"github.com/ariefcatur/go-bookswap/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handler exposes the engine over HTTP. Redis and Inbox are optional: without
// Redis, checkout idempotency and the order cache are skipped.
type Handler struct {
	Engine *orders.Engine
	Carts  cart.Store
	Redis  *redis.Client
	Inbox  *notify.Inbox
	Log    *zap.Logger
}

const idemPending = "pending"

type CheckoutReq struct {
	Type orders.OrderType `json:"type"`
}

type StatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *Handler) Register(r chi.Router, auth *Auth) {
	r.Get("/books/{id}", h.viewBook)

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/orders/{id}", h.getOrder)
		r.Get("/me/notifications", h.notifications)

		r.Route("/buyer", func(r chi.Router) {
			r.Use(RequireRole(RoleBuyer))
			r.Get("/cart", h.getCart)
			r.Post("/cart/items", h.addToCart)
			r.Delete("/cart/items/{bookID}", h.removeFromCart)
			r.Post("/checkout", h.checkout)
			r.Get("/orders", h.buyerOrders)
			r.Post("/orders/{id}/cancel", h.cancelOrder)
		})

		r.Route("/seller", func(r chi.Router) {
			r.Use(RequireRole(RoleSeller))
			r.Post("/books", h.createBook)
			r.Patch("/books/{id}", h.updateBook)
			r.Get("/orders", h.sellerOrders)
			r.Post("/orders/{id}/status", h.updateOrderStatus)
		})
	})
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(w, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis (opsional, DB tetap jadi kebenaran)
	var idemKey string
	if k := r.Header.Get("Idempotency-Key"); k != "" && h.Redis != nil {
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, actor.ID, k)
		if prev, err := h.Redis.Get(ctx, idemKey).Result(); err == nil {
			if prev == idemPending {
				writeJSON(w, http.StatusConflict, errorBody{Error: "in_progress", Message: "checkout with this key is still running"})
				return
			}
			w.Header().Set("Idempotent-Replay", "true")
			writeJSON(w, http.StatusOK, json.RawMessage(prev))
			return
		}
		claimed, err := redisx.Claim(ctx, h.Redis, idemKey, idemPending, redisx.TTLIdempotency)
		if err != nil {
			h.logger().Warn("idempotency claim", zap.Error(err))
			idemKey = ""
		} else if !claimed {
			writeJSON(w, http.StatusConflict, errorBody{Error: "in_progress", Message: "checkout with this key is still running"})
			return
		}
	}

	res, err := h.Engine.CheckoutCart(ctx, actor.ID, req.Type)
	if err != nil {
		if idemKey != "" {
			_ = h.Redis.Del(ctx, idemKey).Err()
		}
		writeError(w, err)
		return
	}

	body, _ := json.Marshal(res)
	if idemKey != "" {
		_ = h.Redis.Set(ctx, idemKey, body, redisx.TTLIdempotency).Err()
	}
	code := http.StatusCreated
	if len(res.OrderIDs) == 0 {
		code = http.StatusOK
	}
	writeJSON(w, code, json.RawMessage(body))
}

func (h *Handler) buyerOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Engine.ListOrdersForBuyer(ctx, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilViews(list))
}

func (h *Handler) sellerOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Engine.ListOrdersForSeller(ctx, actor.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNilViews(list))
}

func nonNilViews(v []orders.OrderView) []orders.OrderView {
	if v == nil {
		return []orders.OrderView{}
	}
	return v
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	orderID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Engine.Cancel(ctx, actor.ID, orderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "status": orders.StatusCancelled})
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	orderID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req StatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		badRequest(w, "status is required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Engine.Fulfill(ctx, actor.ID, orderID, req.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "status": req.Status})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	orderID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			var v orders.OrderView
			if json.Unmarshal([]byte(s), &v) == nil {
				if v.BuyerID != actor.ID && v.SellerID != actor.ID {
					writeError(w, orders.ErrOrderNotFound)
					return
				}
				writeJSON(w, http.StatusOK, json.RawMessage(s))
				return
			}
		}
	}

	// 2) fallback DB
	v, err := h.Engine.GetOrder(ctx, actor.ID, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	b, _ := json.Marshal(v)
	// hanya status final yang di-cache; pending bisa berubah kapan saja
	if h.Redis != nil && v.Status.Terminal() {
		_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	}
	writeJSON(w, http.StatusOK, json.RawMessage(b))
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	if h.Inbox == nil {
		writeJSON(w, http.StatusOK, []notify.Notification{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Inbox.List(ctx, actor.ID, limit)
	if err != nil {
		h.logger().Error("list notifications", zap.Int64("user_id", actor.ID), zap.Error(err))
		writeError(w, &orders.StoreError{Op: "list notifications", Err: err})
		return
	}
	writeJSON(w, http.StatusOK, list)
}
