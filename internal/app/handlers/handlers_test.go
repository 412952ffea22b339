package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/chainbazzar/chainbazzar/internal/app/handlers"
	"github.com/chainbazzar/chainbazzar/internal/cart"
	"github.com/chainbazzar/chainbazzar/internal/domain/models"
	"github.com/chainbazzar/chainbazzar/internal/security/jwtmiddleware"
	"github.com/chainbazzar/chainbazzar/internal/service"
	"github.com/chainbazzar/chainbazzar/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// fakeAuthService substitutes the auth service behind the handlers.
type fakeAuthService struct {
	token string
	user  *models.User
	err   error
}

var _ service.AuthServiceInterface = (*fakeAuthService)(nil)

func (f *fakeAuthService) Register(ctx context.Context, email, password, walletAddress string) (string, error) {
	return f.token, f.err
}

func (f *fakeAuthService) Login(ctx context.Context, email, password string) (string, error) {
	return f.token, f.err
}

func (f *fakeAuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

// fakeOrderService records the input it was called with.
type fakeOrderService struct {
	order     *models.Order
	orders    []*models.Order
	stats     *models.SellerStats
	err       error
	lastInput service.CreateOrderInput
}

var _ service.OrderService = (*fakeOrderService)(nil)

func (f *fakeOrderService) CreateOrder(ctx context.Context, buyerID int64, in service.CreateOrderInput) (*models.Order, error) {
	f.lastInput = in
	return f.order, f.err
}

func (f *fakeOrderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	return f.order, f.err
}

func (f *fakeOrderService) ListOrders(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	return f.orders, f.err
}

func (f *fakeOrderService) UpdateStatus(ctx context.Context, orderID int64, newStatus string) error {
	return f.err
}

func (f *fakeOrderService) SellerStats(ctx context.Context, sellerID int64) (*models.SellerStats, error) {
	return f.stats, f.err
}

// memPersister keeps carts in memory for handler tests.
type memPersister struct {
	carts map[int64][]models.CartLine
}

func newMemPersister() *memPersister {
	return &memPersister{carts: make(map[int64][]models.CartLine)}
}

func (m *memPersister) Load(ctx context.Context, userID int64) ([]models.CartLine, error) {
	return m.carts[userID], nil
}

func (m *memPersister) Save(ctx context.Context, userID int64, lines []models.CartLine) error {
	m.carts[userID] = lines
	return nil
}

func (m *memPersister) Delete(ctx context.Context, userID int64) error {
	delete(m.carts, userID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func authed(req *http.Request, userID int64) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), jwtmiddleware.UserIDKey, userID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestRegisterHandler_Success(t *testing.T) {
	fakeSvc := &fakeAuthService{token: "test-token"}
	handler := handlers.RegisterHandler(testLogger(), fakeSvc)

	reqBody := `{"email": "new@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp handlers.AuthResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "test-token", resp.Token)
}

func TestRegisterHandler_EmailTaken(t *testing.T) {
	fakeSvc := &fakeAuthService{err: fmt.Errorf("auth.Register: %w", service.ErrEmailTaken)}
	handler := handlers.RegisterHandler(testLogger(), fakeSvc)

	reqBody := `{"email": "dup@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRegisterHandler_ValidationError(t *testing.T) {
	handler := handlers.RegisterHandler(testLogger(), &fakeAuthService{})

	// Password below the eight character minimum.
	reqBody := `{"email": "new@example.com", "password": "short"}`
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLoginHandler_Success(t *testing.T) {
	fakeSvc := &fakeAuthService{token: "test-token"}
	handler := handlers.LoginHandler(testLogger(), fakeSvc)

	reqBody := `{"email": "user@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	fakeSvc := &fakeAuthService{err: service.ErrInvalidCredentials}
	handler := handlers.LoginHandler(testLogger(), fakeSvc)

	reqBody := `{"email": "user@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMeHandler_Success(t *testing.T) {
	fakeSvc := &fakeAuthService{user: &models.User{
		ID:            7,
		Email:         "me@example.com",
		WalletAddress: "0x8ba1f109551bD432803012645Ac136ddd64DBA72",
	}}
	handler := handlers.MeHandler(testLogger(), fakeSvc)

	req := authed(httptest.NewRequest("GET", "/api/auth/me", nil), 7)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp handlers.MeResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "me@example.com", resp.Email)
	assert.NotEmpty(t, resp.WalletAddress)
}

func TestMeHandler_Unauthorized(t *testing.T) {
	handler := handlers.MeHandler(testLogger(), &fakeAuthService{})

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateOrderHandler_Success(t *testing.T) {
	fakeSvc := &fakeOrderService{order: &models.Order{ID: 42, Status: models.OrderStatusPending}}
	handler := handlers.CreateOrderHandler(testLogger(), fakeSvc)

	reqBody := `{
		"seller_id": 10,
		"items": [{"product_id": 1, "quantity": 2, "price": "10.00"}],
		"total_amount": "22.00",
		"shipping_address": "1 Main St",
		"payment_method": "card"
	}`
	req := authed(httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp handlers.OrderResponse
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, int64(42), resp.Order.ID)
}

func TestCreateOrderHandler_HeaderIdempotencyKeyWins(t *testing.T) {
	fakeSvc := &fakeOrderService{order: &models.Order{ID: 42}}
	handler := handlers.CreateOrderHandler(testLogger(), fakeSvc)

	reqBody := `{
		"seller_id": 10,
		"items": [{"product_id": 1, "quantity": 1, "price": "10.00"}],
		"total_amount": "10.00",
		"shipping_address": "1 Main St",
		"payment_method": "card",
		"idempotency_key": "from-body"
	}`
	req := authed(httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(reqBody)), 1)
	req.Header.Set("Idempotency-Key", "from-header")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "from-header", fakeSvc.lastInput.IdempotencyKey)
}

func TestCreateOrderHandler_InsufficientStock(t *testing.T) {
	fakeSvc := &fakeOrderService{err: fmt.Errorf("service: %w", service.ErrInsufficientStock)}
	handler := handlers.CreateOrderHandler(testLogger(), fakeSvc)

	reqBody := `{
		"seller_id": 10,
		"items": [{"product_id": 1, "quantity": 99, "price": "10.00"}],
		"total_amount": "990.00",
		"shipping_address": "1 Main St",
		"payment_method": "card"
	}`
	req := authed(httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCreateOrderHandler_NoItems(t *testing.T) {
	handler := handlers.CreateOrderHandler(testLogger(), &fakeOrderService{})

	reqBody := `{"seller_id": 10, "items": [], "shipping_address": "1 Main St", "payment_method": "card"}`
	req := authed(httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateOrderHandler_Unauthorized(t *testing.T) {
	handler := handlers.CreateOrderHandler(testLogger(), &fakeOrderService{})

	req := httptest.NewRequest("POST", "/api/orders", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetOrderHandler_NotFound(t *testing.T) {
	fakeSvc := &fakeOrderService{err: fmt.Errorf("service: %w", storage.ErrOrderNotFound)}
	handler := handlers.GetOrderHandler(testLogger(), fakeSvc)

	req := authed(httptest.NewRequest("GET", "/api/orders/404", nil), 1)
	req = withURLParam(req, "id", "404")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestGetOrderHandler_Forbidden(t *testing.T) {
	fakeSvc := &fakeOrderService{err: fmt.Errorf("service: %w", service.ErrForeignOrderAccess)}
	handler := handlers.GetOrderHandler(testLogger(), fakeSvc)

	req := authed(httptest.NewRequest("GET", "/api/orders/1", nil), 99)
	req = withURLParam(req, "id", "1")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUpdateOrderStatusHandler_InvalidTransition(t *testing.T) {
	fakeSvc := &fakeOrderService{err: fmt.Errorf("service: %w", service.ErrInvalidTransition)}
	handler := handlers.UpdateOrderStatusHandler(testLogger(), fakeSvc)

	req := httptest.NewRequest("PATCH", "/api/orders/1/status", bytes.NewBufferString(`{"status": "delivered"}`))
	req = withURLParam(req, "id", "1")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUpdateOrderStatusHandler_UnknownStatus(t *testing.T) {
	handler := handlers.UpdateOrderStatusHandler(testLogger(), &fakeOrderService{})

	req := httptest.NewRequest("PATCH", "/api/orders/1/status", bytes.NewBufferString(`{"status": "teleported"}`))
	req = withURLParam(req, "id", "1")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddCartLineHandler_Success(t *testing.T) {
	store := cart.NewStore(testLogger(), newMemPersister())
	handler := handlers.AddCartLineHandler(testLogger(), store)

	reqBody := `{"product_id": 5, "name": "Hardware wallet", "unit_price": "59.90", "quantity": 2, "seller_id": 10}`
	req := authed(httptest.NewRequest("POST", "/api/cart/items", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Lines []models.CartLine `json:"lines"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp.Lines, 1)
	assert.Equal(t, 2, resp.Lines[0].Quantity)
	assert.True(t, resp.Lines[0].UnitPrice.Equal(decimal.RequireFromString("59.90")))
}

func TestAddCartLineHandler_Unauthorized(t *testing.T) {
	store := cart.NewStore(testLogger(), newMemPersister())
	handler := handlers.AddCartLineHandler(testLogger(), store)

	req := httptest.NewRequest("POST", "/api/cart/items", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestSetCartQuantityHandler_ZeroRemovesLine(t *testing.T) {
	persister := newMemPersister()
	store := cart.NewStore(testLogger(), persister)
	ctx := context.Background()

	_, err := store.AddLine(ctx, 1, models.CartLine{
		ProductID: 5, Name: "Hardware wallet", UnitPrice: decimal.RequireFromString("59.90"), Quantity: 2, SellerID: 10,
	})
	assert.NoError(t, err)

	handler := handlers.SetCartQuantityHandler(testLogger(), store)

	req := authed(httptest.NewRequest("PATCH", "/api/cart/items/5", bytes.NewBufferString(`{"quantity": 0}`)), 1)
	req = withURLParam(req, "productID", "5")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, persister.carts[1])
}

func TestGetCartHandler_EmptyCartIsNotAnError(t *testing.T) {
	store := cart.NewStore(testLogger(), newMemPersister())
	handler := handlers.GetCartHandler(testLogger(), store)

	req := authed(httptest.NewRequest("GET", "/api/cart", nil), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Lines []models.CartLine `json:"lines"`
	}
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotNil(t, resp.Lines)
	assert.Empty(t, resp.Lines)
}
