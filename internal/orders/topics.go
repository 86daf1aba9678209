package orders

// Satu topic untuk semua event lifecycle; consumer membedakan lewat x-event-type.
// Key = order_id (CorrelationID), supaya semua event 1 order maintain urutan.
const TopicOrderLifecycle = "bookswap.order.lifecycle"
