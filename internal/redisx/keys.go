package redisx

import "time"

const (
	// Cart per buyer: cart:{buyer_id} -> zset(book_id, seq). Hash tag supaya seq di slot yang sama.
	KeyCart    = "cart:{%d}"
	KeyCartSeq = "cart:{%d}:seq"

	// Idempotency checkout: idem:checkout:{buyer_id}:{key} -> JSON CheckoutResult
	KeyIdemCheckout = "idem:checkout:%d:%s"

	// Cache order view, hanya status final: order_status:{order_id} -> JSON OrderView
	KeyOrderStatus = "order_status:%d"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"

	// Inbox notifikasi per user: notif:{user_id} -> list JSON, terbaru di depan
	KeyInbox = "notif:%d"
)

var (
	TTLCart        = 24 * time.Hour
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLInbox       = 30 * 24 * time.Hour
)

// InboxLimit is the number of notifications kept per user.
const InboxLimit = 50
