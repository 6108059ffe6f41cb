package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coffeeshop-be/internal/category"
	"coffeeshop-be/internal/middleware"
	"coffeeshop-be/internal/order"
	"coffeeshop-be/internal/product"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// --- Mocks ---

type MockCategoryService struct {
	mock.Mock
}

func (m *MockCategoryService) GetCategories(ctx context.Context) ([]*category.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*category.Category), args.Error(1)
}

func (m *MockCategoryService) GetCategory(ctx context.Context, id int64) (*category.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*category.Category), args.Error(1)
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) GetList(ctx context.Context, filter product.ListFilter) (*product.ListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.ListResult), args.Error(1)
}

func (m *MockProductService) GetFeatured(ctx context.Context) ([]*product.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*product.Product), args.Error(1)
}

func (m *MockProductService) GetByCategory(ctx context.Context, categoryID int64) ([]*product.Product, error) {
	args := m.Called(ctx, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*product.Product), args.Error(1)
}

func (m *MockProductService) GetProductByID(ctx context.Context, id int64) (*product.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*product.Product), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, input order.PlaceOrderInput) (*order.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, filter order.ListFilter) (*order.ListResult, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.ListResult), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id int64, status order.Status) (*order.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

// --- Helpers ---

const testSecret = "handler-secret"

type fixture struct {
	categories *MockCategoryService
	products   *MockProductService
	orders     *MockOrderService
	router     http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		categories: new(MockCategoryService),
		products:   new(MockProductService),
		orders:     new(MockOrderService),
	}
	f.router = NewRouter(Deps{
		Categories: f.categories,
		Products:   f.products,
		Orders:     f.orders,
		Auth:       middleware.NewAuth(testSecret),
	})
	return f
}

func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func staffToken(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "barista",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func samplePlacedOrder() *order.Order {
	now := time.Now()
	return &order.Order{
		ID:          1,
		OrderNumber: "ORD-20260101-000000-000-ABCDE",
		TotalPrice:  decimal.RequireFromString("300"),
		Status:      order.StatusPlaced,
		ItemsCount:  1,
		CreatedAt:   now,
		UpdatedAt:   now,
		Items: []*order.OrderItem{{
			ID: 10, OrderID: 1, ProductID: 1, Quantity: 2,
			Price: decimal.RequireFromString("150"), ProductName: "Espresso",
		}},
	}
}

// --- Category & product routes ---

func TestCategoryRoutes(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		f := newFixture()
		f.categories.On("GetCategories", mock.Anything).Return([]*category.Category{{ID: 1, Name: "Coffee", Icon: "☕"}}, nil)

		w, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, body["success"])
		assert.Len(t, body["data"], 1)
	})

	t.Run("Not found", func(t *testing.T) {
		f := newFixture()
		f.categories.On("GetCategory", mock.Anything, int64(8)).Return(nil, category.ErrCategoryNotFound)

		w, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/categories/8", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, false, body["success"])
	})

	t.Run("Bad id", func(t *testing.T) {
		f := newFixture()
		w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/categories/abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProductRoutes(t *testing.T) {
	t.Run("List passes filters and pagination", func(t *testing.T) {
		f := newFixture()
		catID := int64(2)
		f.products.On("GetList", mock.Anything, product.ListFilter{
			CategoryID: &catID, Search: "latte", Featured: true, Limit: 5, Offset: 10,
		}).Return(&product.ListResult{
			Items: []*product.Product{{ID: 3, Name: "Latte", Price: decimal.RequireFromString("3.5"), Available: true}},
			Total: 11, Limit: 5, Offset: 10,
		}, nil)

		w, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/products?categoryId=2&search=latte&featured=true&limit=5&offset=10", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"price":3.50`)
		pagination := body["pagination"].(map[string]any)
		assert.Equal(t, float64(11), pagination["total"])
		assert.Equal(t, float64(5), pagination["limit"])
	})

	t.Run("Invalid limit", func(t *testing.T) {
		f := newFixture()
		w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/products?limit=ten", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.products.AssertNotCalled(t, "GetList", mock.Anything, mock.Anything)
	})

	t.Run("Featured route is not a product id", func(t *testing.T) {
		f := newFixture()
		f.products.On("GetFeatured", mock.Anything).Return([]*product.Product{}, nil)

		w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/products/featured", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		f.products.AssertExpectations(t)
	})

	t.Run("By category", func(t *testing.T) {
		f := newFixture()
		f.products.On("GetByCategory", mock.Anything, int64(4)).Return([]*product.Product{{ID: 1}}, nil)

		w, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/products/category/4", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, body["data"], 1)
	})

	t.Run("Product not found", func(t *testing.T) {
		f := newFixture()
		f.products.On("GetProductByID", mock.Anything, int64(77)).Return(nil, product.ErrProductNotFound)

		w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/products/77", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// --- Order routes ---

func TestPlaceOrder(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		f := newFixture()
		f.orders.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(in order.PlaceOrderInput) bool {
			return len(in.Items) == 1 &&
				in.Items[0] == order.LineItemInput{ProductID: 1, Quantity: 2} &&
				in.Customer.Name != nil && *in.Customer.Name == "Anna" &&
				in.IdempotencyKey == ""
		})).Return(samplePlacedOrder(), nil)

		// price is ignored; only catalog prices count.
		body := `{"items":[{"productId":1,"quantity":2,"price":0.01}],"customerName":"Anna"}`
		w, resp := f.do(t, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body)))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, true, resp["success"])
		assert.Contains(t, w.Body.String(), `"totalPrice":300.00`)
		assert.Contains(t, w.Body.String(), `"total":300.00`)
		data := resp["data"].(map[string]any)
		assert.Equal(t, "placed", data["status"])
		assert.Equal(t, float64(1), data["itemsCount"])
	})

	t.Run("Idempotent replay", func(t *testing.T) {
		f := newFixture()
		replayed := samplePlacedOrder()
		replayed.Replayed = true
		f.orders.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(in order.PlaceOrderInput) bool {
			return in.IdempotencyKey == "client-key-1"
		})).Return(replayed, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[{"productId":1,"quantity":2}]}`))
		req.Header.Set(IdempotencyKeyHeader, "client-key-1")
		w, _ := f.do(t, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "true", w.Header().Get(ReplayedHeader))
	})

	t.Run("Malformed body", func(t *testing.T) {
		f := newFixture()
		w, resp := f.do(t, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_body", resp["error"])
		f.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
	})

	t.Run("Rejected lists offending products", func(t *testing.T) {
		f := newFixture()
		f.orders.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, &order.RejectedError{
			Rejections: []order.Rejection{{ProductID: 2, Name: "Mocha", Reason: order.ReasonUnavailable}},
		})

		w, resp := f.do(t, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[{"productId":2,"quantity":1}]}`)))

		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		details := resp["error"].([]any)
		require.Len(t, details, 1)
		first := details[0].(map[string]any)
		assert.Equal(t, float64(2), first["productId"])
		assert.Equal(t, "Mocha", first["name"])
		assert.Equal(t, "unavailable", first["reason"])
	})

	errorCases := []struct {
		err  error
		code int
	}{
		{order.ErrEmptyCart, http.StatusBadRequest},
		{fmt.Errorf("%w: line 0: productId is required", order.ErrInvalidLineItem), http.StatusBadRequest},
		{order.ErrInvalidIdempotencyKey, http.StatusBadRequest},
		{fmt.Errorf("%w: line 0: quantity must be at most 1000", order.ErrInvalidLineItem), http.StatusBadRequest},
		{fmt.Errorf("%w: total 10099999998.99 exceeds 9999999999.99", order.ErrOrderTooLarge), http.StatusBadRequest},
		{fmt.Errorf("%w: timeout", order.ErrCatalogUnavailable), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: deadlock", order.ErrPersistenceFailure), http.StatusInternalServerError},
	}
	for _, tc := range errorCases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			f := newFixture()
			f.orders.On("PlaceOrder", mock.Anything, mock.Anything).Return(nil, tc.err)

			w, resp := f.do(t, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[]}`)))

			assert.Equal(t, tc.code, w.Code)
			assert.Equal(t, false, resp["success"])
			assert.Nil(t, resp["data"])
		})
	}
}

func TestListOrders(t *testing.T) {
	t.Run("Status filter", func(t *testing.T) {
		f := newFixture()
		placed := order.StatusPlaced
		f.orders.On("ListOrders", mock.Anything, order.ListFilter{Status: &placed, Limit: 10}).
			Return(&order.ListResult{Items: []*order.Order{samplePlacedOrder()}, Total: 1, Limit: 10}, nil)

		w, resp := f.do(t, httptest.NewRequest(http.MethodGet, "/api/orders?status=placed&limit=10", nil))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, resp["data"], 1)
		assert.Equal(t, float64(1), resp["pagination"].(map[string]any)["total"])
	})

	t.Run("Unknown status", func(t *testing.T) {
		f := newFixture()
		w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/orders?status=lost", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.orders.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
	})
}

func TestGetOrder(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		f := newFixture()
		f.orders.On("GetOrder", mock.Anything, int64(1)).Return(samplePlacedOrder(), nil)

		w, resp := f.do(t, httptest.NewRequest(http.MethodGet, "/api/orders/1", nil))

		require.Equal(t, http.StatusOK, w.Code)
		data := resp["data"].(map[string]any)
		assert.Len(t, data["items"], int(data["itemsCount"].(float64)))
	})

	t.Run("Not found", func(t *testing.T) {
		f := newFixture()
		f.orders.On("GetOrder", mock.Anything, int64(999)).Return(nil, order.ErrOrderNotFound)

		w, resp := f.do(t, httptest.NewRequest(http.MethodGet, "/api/orders/999", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "order_not_found", resp["error"])
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	patch := func(token string) *http.Request {
		req := httptest.NewRequest(http.MethodPatch, "/api/orders/1/status", strings.NewReader(`{"status":"preparing"}`))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req
	}

	t.Run("Anonymous", func(t *testing.T) {
		f := newFixture()
		w, _ := f.do(t, patch(""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Wrong role", func(t *testing.T) {
		f := newFixture()
		w, _ := f.do(t, patch(staffToken(t, "customer")))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Staff", func(t *testing.T) {
		f := newFixture()
		updated := samplePlacedOrder()
		updated.Status = order.StatusPreparing
		f.orders.On("UpdateStatus", mock.Anything, int64(1), order.StatusPreparing).Return(updated, nil)

		w, resp := f.do(t, patch(staffToken(t, middleware.RoleStaff)))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "preparing", resp["data"].(map[string]any)["status"])
	})

	t.Run("Oversized body", func(t *testing.T) {
		f := newFixture()
		body := `{"status":"preparing","pad":"` + strings.Repeat("x", 4<<10) + `"}`
		req := httptest.NewRequest(http.MethodPatch, "/api/orders/1/status", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+staffToken(t, middleware.RoleStaff))

		w, resp := f.do(t, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_body", resp["error"])
		f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Conflict", func(t *testing.T) {
		f := newFixture()
		f.orders.On("UpdateStatus", mock.Anything, int64(1), order.StatusPreparing).
			Return(nil, fmt.Errorf("%w: completed -> preparing", order.ErrInvalidTransition))

		w, _ := f.do(t, patch(staffToken(t, middleware.RoleStaff)))
		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestRouter_Misc(t *testing.T) {
	t.Run("Request id echoed", func(t *testing.T) {
		f := newFixture()
		f.categories.On("GetCategories", mock.Anything).Return([]*category.Category{}, nil)

		w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("Unknown route", func(t *testing.T) {
		f := newFixture()
		w, resp := f.do(t, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, false, resp["success"])
	})

	t.Run("Metrics exposed", func(t *testing.T) {
		f := newFixture()
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Order rate limit", func(t *testing.T) {
		orders := new(MockOrderService)
		orders.On("PlaceOrder", mock.Anything, mock.Anything).Return(samplePlacedOrder(), nil)
		router := NewRouter(Deps{
			Orders: orders,
			Limiter: middleware.NewRateLimiter(
				middleware.Tier{Limit: rate.Limit(100), Burst: 100},
				middleware.Tier{Limit: rate.Limit(0.001), Burst: 1},
			),
		})

		codes := make([]int, 0, 2)
		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"items":[{"productId":1,"quantity":1}]}`)))
			codes = append(codes, w.Code)
		}

		assert.Equal(t, []int{http.StatusCreated, http.StatusTooManyRequests}, codes)
	})

	t.Run("Service error is not leaked", func(t *testing.T) {
		f := newFixture()
		f.categories.On("GetCategories", mock.Anything).Return(nil, errors.New("pq: password authentication failed"))

		w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "password")
	})
}
