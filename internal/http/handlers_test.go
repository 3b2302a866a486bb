package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopd/shopd/internal/cart"
	"github.com/shopd/shopd/internal/catalog"
	"github.com/shopd/shopd/internal/clock"
	"github.com/shopd/shopd/internal/domain"
	"github.com/shopd/shopd/internal/notification"
	"github.com/shopd/shopd/internal/order"
	"github.com/shopd/shopd/internal/password"
	"github.com/shopd/shopd/internal/payment"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memCartRepo struct {
	m     sync.Mutex
	carts map[string]*domain.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[string]*domain.Cart{}}
}

func (r *memCartRepo) GetCart(_ context.Context, userID string) (*domain.Cart, error) {
	r.m.Lock()
	defer r.m.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return c, nil
}

func (r *memCartRepo) AddItem(_ context.Context, userID string, item domain.CartItem) error {
	r.m.Lock()
	defer r.m.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		c = &domain.Cart{UserID: userID}
		r.carts[userID] = c
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

func (r *memCartRepo) UpdateItemQuantity(_ context.Context, userID string, productID int64, quantity int) error {
	r.m.Lock()
	defer r.m.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return domain.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (r *memCartRepo) RemoveItem(_ context.Context, userID string, productID int64) error {
	r.m.Lock()
	defer r.m.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return domain.ErrCartNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memCartRepo) ClearCart(_ context.Context, userID string) error {
	r.m.Lock()
	defer r.m.Unlock()
	if c, ok := r.carts[userID]; ok {
		c.Items = nil
	}
	return nil
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*domain.Cart, error) { return nil, cart.ErrCacheMiss }
func (noCache) Set(context.Context, string, *domain.Cart) error   { return nil }
func (noCache) Delete(context.Context, string) error              { return nil }

type memCatalog struct {
	products map[int64]*domain.Product
}

func (m *memCatalog) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *memCatalog) ListProducts(context.Context) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

var _ catalog.Repository = (*memCatalog)(nil)

type memOrderRepo struct {
	m      sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: map[uuid.UUID]*domain.Order{}}
}

func (r *memOrderRepo) Create(_ context.Context, o *domain.Order) error {
	r.m.Lock()
	defer r.m.Unlock()
	cp := *o
	r.orders[o.ID] = &cp
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) ListByUser(_ context.Context, userID string) ([]*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListAll(context.Context) ([]*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var out []*domain.Order
	for _, o := range r.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memOrderRepo) SetPaymentStatus(_ context.Context, id uuid.UUID, pay domain.PaymentStatus, status domain.OrderStatus, transactionID string) (*domain.Order, error) {
	r.m.Lock()
	defer r.m.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if o.OrderStatus == domain.OrderStatusCancelled {
		return nil, domain.ErrOrderCancelled
	}
	o.PaymentStatus = pay
	o.OrderStatus = status
	if transactionID != "" {
		o.TransactionID = transactionID
	}
	cp := *o
	return &cp, nil
}

func (r *memOrderRepo) cancel(id uuid.UUID) {
	r.m.Lock()
	defer r.m.Unlock()
	r.orders[id].OrderStatus = domain.OrderStatusCancelled
}

type memUserStore struct {
	user *password.User
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*password.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *memUserStore) FindByResetDigest(context.Context, string, time.Time) (*password.User, error) {
	return nil, domain.ErrInvalidResetToken
}

func (s *memUserStore) SetResetToken(context.Context, string, string, time.Time) error { return nil }
func (s *memUserStore) UpdatePassword(context.Context, string, string) error           { return nil }

type nopSink struct{}

func (nopSink) SendPasswordReset(context.Context, string, string) error { return nil }
func (nopSink) SendOrderPaid(context.Context, string, string) error     { return nil }

var _ notification.Sink = nopSink{}

type testServer struct {
	handler   http.Handler
	cartRepo  *memCartRepo
	orderRepo *memOrderRepo
	catalog   *memCatalog
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()

	cat := &memCatalog{products: map[int64]*domain.Product{
		1: {ID: 1, Name: "Widget", Price: decimal.NewFromFloat(5.00), Stock: 10},
		2: {ID: 2, Name: "Gadget", Price: decimal.NewFromFloat(10.00), Stock: 2},
	}}
	cartRepo := newMemCartRepo()
	cartSvc := cart.NewService(cartRepo, noCache{}, cat, logger)

	orderRepo := newMemOrderRepo()
	orderSvc := order.NewService(orderRepo, cartSvc, cat,
		payment.NewSimulatedGateway(nil), clock.System(), logger, "usd")

	passwordSvc := password.NewService(
		&memUserStore{user: &password.User{ID: "u1", Email: "ada@example.com"}},
		nopSink{}, clock.System(), logger, "https://shop.example")

	h := NewRouter(
		RouterConfig{RequestTimeout: 5 * time.Second, MaxRequestBodySize: 1 << 20},
		NewCartHandler(cartSvc, logger),
		NewOrderHandler(orderSvc, logger),
		NewProductHandler(cat, logger),
		NewPasswordHandler(passwordSvc, logger),
	)

	return &testServer{handler: h, cartRepo: cartRepo, orderRepo: orderRepo, catalog: cat}
}

func (ts *testServer) do(t *testing.T, method, path, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCartRoutes_RequireIdentity(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/cart/", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetCart_EmptyForNewUser(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/cart/", "user1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	c := decode[domain.Cart](t, rec)
	assert.Equal(t, "user1", c.UserID)
	assert.Empty(t, c.Items)
}

func TestAddItem_ThenGet(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)

	c := decode[domain.Cart](t, rec)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Widget", c.Items[0].ProductName)
	assert.True(t, c.TotalPrice.Equal(decimal.NewFromFloat(10.00)))
}

func TestAddItem_UnknownProduct_404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 99, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "product_not_found", resp.Code)
}

func TestAddItem_InsufficientStock_400_NamesProduct(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 2, Quantity: 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "insufficient_stock", resp.Code)
	assert.Contains(t, resp.Error, "Gadget")
}

func TestAddItem_ZeroQuantity_400(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 1, Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_quantity", resp.Code)
}

func TestUpdateAndRemoveItem(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 1, Quantity: 1})

	rec := ts.do(t, http.MethodPut, "/api/v1/cart/items/1", "user1", "", updateQuantityRequest{Quantity: 4})
	require.Equal(t, http.StatusOK, rec.Code)
	c := decode[domain.Cart](t, rec)
	assert.Equal(t, 4, c.Items[0].Quantity)

	rec = ts.do(t, http.MethodDelete, "/api/v1/cart/items/1", "user1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c = decode[domain.Cart](t, rec)
	assert.Empty(t, c.Items)
}

func TestCreateOrder_COD_Flow(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 1, Quantity: 2})
	ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 2, Quantity: 1})

	rec := ts.do(t, http.MethodPost, "/api/v1/orders/", "user1", "", createOrderRequest{
		ShippingAddress: domain.ShippingAddress{Street: "1 Main St", City: "Springfield"},
		PaymentMethod:   "cod",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	o := decode[domain.Order](t, rec)
	assert.Equal(t, domain.OrderStatusProcessing, o.OrderStatus)
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromFloat(20.00)))

	// Cart emptied by the checkout.
	rec = ts.do(t, http.MethodGet, "/api/v1/cart/", "user1", "", nil)
	c := decode[domain.Cart](t, rec)
	assert.Empty(t, c.Items)
}

func TestCreateOrder_EmptyCart_400(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/orders/", "user1", "", createOrderRequest{
		ShippingAddress: domain.ShippingAddress{Street: "1 Main St", City: "Springfield"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "empty_cart", resp.Code)
}

func TestCreateOrder_MissingAddress_400(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 1, Quantity: 1})

	rec := ts.do(t, http.MethodPost, "/api/v1/orders/", "user1", "", createOrderRequest{PaymentMethod: "cod"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_address", resp.Code)
}

func TestGetOrder_OtherUser_403(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 1, Quantity: 1})
	rec := ts.do(t, http.MethodPost, "/api/v1/orders/", "user1", "", createOrderRequest{
		ShippingAddress: domain.ShippingAddress{Street: "1 Main St", City: "Springfield"},
		PaymentMethod:   "card",
	})
	o := decode[domain.Order](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/v1/orders/"+o.ID.String(), "user2", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPaymentIntent_ReturnsMinorUnits(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 1, Quantity: 2})
	rec := ts.do(t, http.MethodPost, "/api/v1/orders/", "user1", "", createOrderRequest{
		ShippingAddress: domain.ShippingAddress{Street: "1 Main St", City: "Springfield"},
		PaymentMethod:   "card",
	})
	o := decode[domain.Order](t, rec)

	rec = ts.do(t, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/payment-intent", "user1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[paymentIntentResponse](t, rec)
	assert.Equal(t, int64(1000), resp.Amount)
	assert.Equal(t, "usd", resp.Currency)
	assert.NotEmpty(t, resp.ClientSecret)
}

func TestAdminRoutes_RequireAdminRole(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/orders/all", "user1", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/orders/all", "admin1", "admin", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdatePaymentStatus_AdminOnly(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 1, Quantity: 1})
	rec := ts.do(t, http.MethodPost, "/api/v1/orders/", "user1", "", createOrderRequest{
		ShippingAddress: domain.ShippingAddress{Street: "1 Main St", City: "Springfield"},
		PaymentMethod:   "card",
	})
	o := decode[domain.Order](t, rec)

	rec = ts.do(t, http.MethodPut, "/api/v1/orders/"+o.ID.String()+"/payment-status", "user1", "",
		updatePaymentStatusRequest{PaymentStatus: "completed", TransactionID: "txn_1"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/v1/orders/"+o.ID.String()+"/payment-status", "admin1", "admin",
		updatePaymentStatusRequest{PaymentStatus: "completed", TransactionID: "txn_1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decode[domain.Order](t, rec)
	assert.Equal(t, domain.PaymentStatusCompleted, updated.PaymentStatus)
	assert.Equal(t, domain.OrderStatusProcessing, updated.OrderStatus)
}

func TestUpdatePaymentStatus_CancelledOrder_409(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/v1/cart/items", "user1", "", addItemRequest{ProductID: 1, Quantity: 1})
	rec := ts.do(t, http.MethodPost, "/api/v1/orders/", "user1", "", createOrderRequest{
		ShippingAddress: domain.ShippingAddress{Street: "1 Main St", City: "Springfield"},
		PaymentMethod:   "card",
	})
	o := decode[domain.Order](t, rec)
	ts.orderRepo.cancel(o.ID)

	rec = ts.do(t, http.MethodPut, "/api/v1/orders/"+o.ID.String()+"/payment-status", "admin1", "admin",
		updatePaymentStatusRequest{PaymentStatus: "completed", TransactionID: "txn_late"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "order_cancelled", resp.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/orders/"+o.ID.String()+"/payment-intent", "user1", "", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdatePaymentStatus_InvalidValue_400(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPut, "/api/v1/orders/"+uuid.NewString()+"/payment-status", "admin1", "admin",
		updatePaymentStatusRequest{PaymentStatus: "refunded"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "invalid_payment_status", resp.Code)
}

func TestListProducts_Public(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/products/", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	products := decode[[]*domain.Product](t, rec)
	assert.Len(t, products, 2)
}

func TestGetProduct_Unknown_404(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/products/999", "", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForgotPassword_Public(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", "", forgotPasswordRequest{Email: "ada@example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/v1/auth/forgot-password", "", "", forgotPasswordRequest{Email: "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
