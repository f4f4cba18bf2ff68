package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/ariefcatur/go-shop-api.git/internal/auth"
	kafkax "github.com/ariefcatur/go-shop-api.git/internal/kafka"
	"github.com/ariefcatur/go-shop-api.git/internal/orders"
	"github.com/ariefcatur/go-shop-api.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
)

type orderStore interface {
	CreateOrderTx(ctx context.Context, userID int64, ship orders.ShippingInfo, items []orders.ItemInput, total float64) (int64, error)
	ListAll(ctx context.Context) ([]orders.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]orders.Order, error)
	GetByID(ctx context.Context, id int64) (orders.Order, error)
	UpdateStatus(ctx context.Context, id int64, status orders.Status) error
	Delete(ctx context.Context, id int64) error
	ListProducts(ctx context.Context) ([]orders.Product, error)
}

type publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Orders   orderStore
	Producer publisher
	Redis    *redis.Client
	Tokens   *auth.Maker
	Service  string
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Route("/orders", func(r chi.Router) {
		r.Use(BearerAuth(h.Tokens))
		r.Get("/my-orders", h.myOrders)
		r.Post("/", h.createOrder)
		r.Get("/{id}/status", h.getOrderStatus)
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/", h.listAll)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}/status", h.updateStatus)
			r.Delete("/{id}", h.deleteOrder)
		})
	})
}

type createOrderReq struct {
	ShippingInfo orders.ShippingInfo `json:"shippingInfo"`
	OrderItems   []orders.ItemInput  `json:"orderItems"`
	Total        float64             `json:"total"`
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Data pesanan tidak lengkap")
		return
	}
	if req.ShippingInfo.RecipientName == "" || req.ShippingInfo.Address == "" ||
		req.ShippingInfo.Phone == "" || len(req.OrderItems) == 0 {
		writeMessage(w, http.StatusBadRequest, "Data pesanan tidak lengkap")
		return
	}

	// The client sends the total it displayed; cross-check it against the line
	// extensions instead of trusting it.
	var sum float64
	for _, it := range req.OrderItems {
		if it.Quantity <= 0 {
			writeMessage(w, http.StatusBadRequest, "Data pesanan tidak lengkap")
			return
		}
		sum += float64(it.Quantity) * it.Price
	}
	if math.Abs(sum-req.Total) > 0.01 {
		writeMessage(w, http.StatusBadRequest, "Total pembayaran tidak sesuai")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID, err := h.Orders.CreateOrderTx(ctx, claims.UserID, req.ShippingInfo, req.OrderItems, req.Total)
	if err != nil {
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("create order")
		writeMessage(w, http.StatusInternalServerError, "Gagal membuat pesanan")
		return
	}

	h.cacheStatus(ctx, orderID, orders.StatusPending)
	h.publish(r, orders.EventOrderCreated, orderID, orders.OrderCreatedPayload{
		OrderID:   orderID,
		UserID:    claims.UserID,
		ItemCount: len(req.OrderItems),
		Total:     req.Total,
	})

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Pesanan berhasil dibuat",
		"orderId": orderID,
	})
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Orders.ListByUser(ctx, claims.UserID)
	if err != nil {
		log.Error().Err(err).Msg("list my orders")
		writeServerError(w)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Orders.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list all orders")
		writeServerError(w)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Int64("order_id", id).Msg("get order")
		writeServerError(w)
		return
	}

	h.cacheStatus(ctx, o.ID, o.Status)
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus serves status polls from Redis first; the DB is only hit on a
// cache miss.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, id)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Int64("order_id", id).Msg("get order status")
		writeServerError(w)
		return
	}

	h.cacheStatus(ctx, o.ID, o.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": o.Status})
}

type updateStatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req updateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !orders.ValidStatus(req.Status) {
		writeMessage(w, http.StatusBadRequest, "Status tidak valid")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Orders.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Int64("order_id", id).Msg("update order status")
		writeServerError(w)
		return
	}

	h.cacheStatus(ctx, id, req.Status)
	h.publish(r, orders.EventOrderStatusChanged, id, orders.OrderStatusChangedPayload{
		OrderID: id,
		Status:  req.Status,
	})

	writeMessage(w, http.StatusOK, "Status order berhasil diupdate")
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Orders.Delete(ctx, id); err != nil {
		if errors.Is(err, orders.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Int64("order_id", id).Msg("delete order")
		writeServerError(w)
		return
	}

	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, id)).Err()
	}
	h.publish(r, orders.EventOrderDeleted, id, orders.OrderDeletedPayload{OrderID: id})

	writeMessage(w, http.StatusOK, "Order berhasil dihapus")
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Orders.ListProducts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list products")
		writeServerError(w)
		return
	}
	if ps == nil {
		ps = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "ID tidak valid")
		return 0, false
	}
	return id, true
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID int64, status orders.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	val := fmt.Sprintf(`{"status":%q}`, status)
	_ = h.Redis.Set(ctx, key, val, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publish(r *http.Request, eventType string, orderID int64, payload any) {
	if h.Producer == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: strconv.FormatInt(orderID, 10),
	}
	ev.Payload = kafkax.MustMarshal(payload)
	h.Producer.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
