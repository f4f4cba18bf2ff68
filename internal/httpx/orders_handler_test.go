package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-api.git/internal/auth"
	"github.com/ariefcatur/go-shop-api.git/internal/orders"
	"github.com/ariefcatur/go-shop-api.git/internal/users"
	"github.com/go-chi/chi/v5"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type stubOrders struct {
	byID         map[int64]orders.Order
	nextID       int64
	createdUser  int64
	createdItems []orders.ItemInput
	createErr    error
}

func newStubOrders() *stubOrders {
	return &stubOrders{byID: map[int64]orders.Order{}, nextID: 1}
}

func (s *stubOrders) CreateOrderTx(_ context.Context, userID int64, ship orders.ShippingInfo, items []orders.ItemInput, total float64) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	id := s.nextID
	s.nextID++
	s.createdUser = userID
	s.createdItems = items
	s.byID[id] = orders.Order{
		ID: id, UserID: userID, Total: total, ItemCount: len(items),
		RecipientName: ship.RecipientName, Address: ship.Address, Phone: ship.Phone,
		Status: orders.StatusPending, CreatedAt: time.Now(),
	}
	return id, nil
}

func (s *stubOrders) ListAll(context.Context) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range s.byID {
		out = append(out, o)
	}
	return out, nil
}

func (s *stubOrders) ListByUser(_ context.Context, userID int64) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range s.byID {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubOrders) GetByID(_ context.Context, id int64) (orders.Order, error) {
	o, ok := s.byID[id]
	if !ok {
		return orders.Order{}, orders.ErrNotFound
	}
	return o, nil
}

func (s *stubOrders) UpdateStatus(_ context.Context, id int64, status orders.Status) error {
	o, ok := s.byID[id]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = status
	s.byID[id] = o
	return nil
}

func (s *stubOrders) Delete(_ context.Context, id int64) error {
	if _, ok := s.byID[id]; !ok {
		return orders.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *stubOrders) ListProducts(context.Context) ([]orders.Product, error) {
	return []orders.Product{{ID: 1, Name: "Kopi", Price: 25000, Stock: 10}}, nil
}

type stubPublisher struct{ published []kafkago.Message }

func (p *stubPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.published = append(p.published, kafkago.Message{Key: key, Value: value, Headers: headers})
}

func newOrdersServer(t *testing.T) (*chi.Mux, *stubOrders, *stubPublisher, *auth.Maker) {
	t.Helper()
	maker, err := auth.NewMaker(testSecret)
	require.NoError(t, err)
	store := newStubOrders()
	pub := &stubPublisher{}
	h := &OrdersHandler{Orders: store, Producer: pub, Tokens: maker, Service: "shop-api-test"}
	r := chi.NewRouter()
	h.Register(r)
	return r, store, pub, maker
}

func buyerToken(t *testing.T, maker *auth.Maker, id int64) string {
	t.Helper()
	token, err := maker.CreateToken(id, users.RoleBuyer, "buyer@b.com")
	require.NoError(t, err)
	return token
}

func adminToken(t *testing.T, maker *auth.Maker) string {
	t.Helper()
	token, err := maker.CreateToken(99, users.RoleAdmin, "admin@b.com")
	require.NoError(t, err)
	return token
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func validOrderBody() map[string]any {
	return map[string]any{
		"shippingInfo": map[string]string{
			"recipientName": "Budi", "address": "Jl. Kenangan 1", "phone": "0812345678",
		},
		"orderItems": []map[string]any{
			{"product_id": 1, "quantity": 2, "price": 25000},
			{"product_id": 2, "quantity": 1, "price": 10000},
		},
		"total": 60000,
	}
}

func TestCreateOrderRequiresAuth(t *testing.T) {
	r, _, _, _ := newOrdersServer(t)
	rec := doJSON(t, r, http.MethodPost, "/orders", validOrderBody(), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateOrderValidation(t *testing.T) {
	r, store, _, maker := newOrdersServer(t)
	tok := buyerToken(t, maker, 7)

	t.Run("missing shipping fields", func(t *testing.T) {
		body := validOrderBody()
		body["shippingInfo"] = map[string]string{"recipientName": "Budi"}
		rec := doJSON(t, r, http.MethodPost, "/orders", body, bearer(tok))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Data pesanan tidak lengkap", decodeBody(t, rec)["message"])
	})

	t.Run("empty item list", func(t *testing.T) {
		body := validOrderBody()
		body["orderItems"] = []map[string]any{}
		rec := doJSON(t, r, http.MethodPost, "/orders", body, bearer(tok))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("total mismatch", func(t *testing.T) {
		body := validOrderBody()
		body["total"] = 1
		rec := doJSON(t, r, http.MethodPost, "/orders", body, bearer(tok))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Total pembayaran tidak sesuai", decodeBody(t, rec)["message"])
	})

	require.Empty(t, store.byID, "no order may persist after rejected requests")
}

func TestCreateOrderSuccess(t *testing.T) {
	r, store, pub, maker := newOrdersServer(t)
	tok := buyerToken(t, maker, 7)

	rec := doJSON(t, r, http.MethodPost, "/orders", validOrderBody(), bearer(tok))
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decodeBody(t, rec)
	require.Equal(t, "Pesanan berhasil dibuat", got["message"])
	require.EqualValues(t, 1, got["orderId"])

	// owner comes from the token, not the body
	require.Equal(t, int64(7), store.createdUser)
	require.Len(t, store.createdItems, 2)
	require.Equal(t, 2, store.byID[1].ItemCount)

	require.Len(t, pub.published, 1)
	require.Contains(t, string(pub.published[0].Value), orders.EventOrderCreated)
}

func TestMyOrdersFiltersByCaller(t *testing.T) {
	r, store, _, maker := newOrdersServer(t)
	store.byID[1] = orders.Order{ID: 1, UserID: 7, Status: orders.StatusPending}
	store.byID[2] = orders.Order{ID: 2, UserID: 8, Status: orders.StatusPending}

	rec := doJSON(t, r, http.MethodGet, "/orders/my-orders", nil, bearer(buyerToken(t, maker, 7)))
	require.Equal(t, http.StatusOK, rec.Code)

	var out []orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	require.Equal(t, int64(1), out[0].ID)
}

func TestAdminRoutesRejectBuyers(t *testing.T) {
	r, _, _, maker := newOrdersServer(t)
	tok := buyerToken(t, maker, 7)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/orders"},
		{http.MethodGet, "/orders/1"},
		{http.MethodPut, "/orders/1/status"},
		{http.MethodDelete, "/orders/1"},
	} {
		rec := doJSON(t, r, tc.method, tc.path, nil, bearer(tok))
		require.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestGetOrder(t *testing.T) {
	r, store, _, maker := newOrdersServer(t)
	tok := adminToken(t, maker)

	rec := doJSON(t, r, http.MethodGet, "/orders/42", nil, bearer(tok))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "Order not found", decodeBody(t, rec)["message"])

	store.byID[42] = orders.Order{
		ID: 42, UserID: 7, Status: orders.StatusDikirim,
		Items: []orders.OrderItem{{OrderID: 42, ProductID: 1, Quantity: 2, UnitPrice: 25000, ProductName: "Kopi"}},
	}
	rec = doJSON(t, r, http.MethodGet, "/orders/42", nil, bearer(tok))
	require.Equal(t, http.StatusOK, rec.Code)

	var o orders.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &o))
	require.Equal(t, orders.StatusDikirim, o.Status)
	require.Len(t, o.Items, 1)
}

func TestUpdateStatus(t *testing.T) {
	r, store, pub, maker := newOrdersServer(t)
	tok := adminToken(t, maker)
	store.byID[1] = orders.Order{ID: 1, UserID: 7, Status: orders.StatusPending}

	t.Run("invalid value rejected, row untouched", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPut, "/orders/1/status",
			map[string]string{"status": "shipped"}, bearer(tok))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Status tidak valid", decodeBody(t, rec)["message"])
		require.Equal(t, orders.StatusPending, store.byID[1].Status)
		require.Empty(t, pub.published)
	})

	t.Run("unknown order", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPut, "/orders/999/status",
			map[string]string{"status": "dikirim"}, bearer(tok))
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPut, "/orders/1/status",
			map[string]string{"status": "dikirim"}, bearer(tok))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, orders.StatusDikirim, store.byID[1].Status)
		require.Len(t, pub.published, 1)
		require.Contains(t, string(pub.published[0].Value), orders.EventOrderStatusChanged)
	})
}

func TestDeleteOrder(t *testing.T) {
	r, store, pub, maker := newOrdersServer(t)
	tok := adminToken(t, maker)
	store.byID[5] = orders.Order{ID: 5, UserID: 7, Status: orders.StatusPending}

	rec := doJSON(t, r, http.MethodDelete, "/orders/99", nil, bearer(tok))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/orders/5", nil, bearer(tok))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, store.byID, int64(5))
	require.Len(t, pub.published, 1)
	require.Contains(t, string(pub.published[0].Value), orders.EventOrderDeleted)
}

func TestGetOrderStatusFallsBackToStore(t *testing.T) {
	r, store, _, maker := newOrdersServer(t)
	store.byID[3] = orders.Order{ID: 3, UserID: 7, Status: orders.StatusSelesai}

	rec := doJSON(t, r, http.MethodGet, "/orders/3/status", nil, bearer(buyerToken(t, maker, 7)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "selesai", decodeBody(t, rec)["status"])
}

func TestListProductsIsPublic(t *testing.T) {
	r, _, _, _ := newOrdersServer(t)
	rec := doJSON(t, r, http.MethodGet, "/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var ps []orders.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ps))
	require.Len(t, ps, 1)
}

func TestBadOrderID(t *testing.T) {
	r, _, _, maker := newOrdersServer(t)
	rec := doJSON(t, r, http.MethodGet, "/orders/abc", nil, bearer(adminToken(t, maker)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
