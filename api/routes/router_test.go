package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	authsvc "github.com/kofiasante/kasuwa-backend/internal/auth"
	cartsvc "github.com/kofiasante/kasuwa-backend/internal/cart"
	checkoutsvc "github.com/kofiasante/kasuwa-backend/internal/checkout"
	ordersvc "github.com/kofiasante/kasuwa-backend/internal/orders"
	paymentsvc "github.com/kofiasante/kasuwa-backend/internal/payments"
	productsvc "github.com/kofiasante/kasuwa-backend/internal/products"
	pkgauth "github.com/kofiasante/kasuwa-backend/pkg/auth"
	"github.com/kofiasante/kasuwa-backend/pkg/config"
	"github.com/kofiasante/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kofiasante/kasuwa-backend/pkg/errors"
	"github.com/kofiasante/kasuwa-backend/pkg/logger"
	"github.com/kofiasante/kasuwa-backend/pkg/pagination"
)

type stubAuthService struct{}

func (stubAuthService) Register(context.Context, authsvc.RegisterInput) (*authsvc.AuthResult, error) {
	return &authsvc.AuthResult{Token: "tok"}, nil
}

func (stubAuthService) Login(context.Context, authsvc.LoginInput) (*authsvc.AuthResult, error) {
	return &authsvc.AuthResult{Token: "tok"}, nil
}

func (stubAuthService) Profile(context.Context, uuid.UUID) (*authsvc.UserDTO, error) {
	return &authsvc.UserDTO{}, nil
}

type stubProductService struct{}

func (stubProductService) CreateProduct(context.Context, uuid.UUID, productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

func (stubProductService) UpdateProduct(context.Context, uuid.UUID, uuid.UUID, productsvc.UpdateProductInput) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

func (stubProductService) GetProduct(context.Context, uuid.UUID) (*productsvc.ProductDTO, error) {
	return &productsvc.ProductDTO{}, nil
}

func (stubProductService) ListProducts(context.Context, productsvc.ListProductsInput) (*productsvc.ProductListResult, error) {
	return &productsvc.ProductListResult{}, nil
}

type stubCartService struct{}

func (stubCartService) AddItem(context.Context, uuid.UUID, cartsvc.AddItemInput) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{}, nil
}

func (stubCartService) GetCart(context.Context, uuid.UUID) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{}, nil
}

func (stubCartService) RemoveItem(context.Context, uuid.UUID, uuid.UUID) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{}, nil
}

func (stubCartService) ClearCart(context.Context, uuid.UUID) error { return nil }

type stubCheckoutService struct{}

func (stubCheckoutService) Execute(context.Context, checkoutsvc.CheckoutInput) (*checkoutsvc.CheckoutResult, error) {
	return &checkoutsvc.CheckoutResult{}, nil
}

type stubOrderService struct{}

func (stubOrderService) MarkPaid(context.Context, uuid.UUID, string, time.Time) error { return nil }

func (stubOrderService) MarkShipped(context.Context, uuid.UUID, string, string) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrderService) MarkDelivered(context.Context, uuid.UUID, string) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrderService) ConfirmReceipt(context.Context, uuid.UUID, string, string) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrderService) Cancel(context.Context, uuid.UUID, string, string) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrderService) ReportDispute(context.Context, uuid.UUID, string, string) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrderService) ResolveDisputeWithRefund(context.Context, string, string) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrderService) GetOrder(context.Context, string, *ordersvc.Viewer) (*ordersvc.OrderDTO, error) {
	return &ordersvc.OrderDTO{}, nil
}

func (stubOrderService) ListBuyerOrders(context.Context, uuid.UUID, pagination.Params) (*ordersvc.OrderListResult, error) {
	return &ordersvc.OrderListResult{}, nil
}

func (stubOrderService) ListSellerOrders(context.Context, uuid.UUID, pagination.Params) (*ordersvc.OrderListResult, error) {
	return &ordersvc.OrderListResult{}, nil
}

func (stubOrderService) ExpirePending(context.Context, time.Time, int) (int, error) { return 0, nil }

func (stubOrderService) AutoCompleteDelivered(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

type stubPaymentService struct{}

func (stubPaymentService) Initialize(context.Context, paymentsvc.InitializeInput) (*paymentsvc.PaymentDTO, error) {
	return &paymentsvc.PaymentDTO{}, nil
}

func (stubPaymentService) Verify(context.Context, string) (*paymentsvc.PaymentDTO, error) {
	return &paymentsvc.PaymentDTO{}, nil
}

func (stubPaymentService) HandleWebhook(context.Context, []byte, string) error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature")
}

func routerConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-test-secret", Issuer: "kasuwa-test", ExpirationMinutes: 15},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(RouterParams{
		Config:   routerConfig(),
		Logger:   logger.New(logger.Options{ServiceName: "router-test"}),
		Auth:     stubAuthService{},
		Products: stubProductService{},
		Cart:     stubCartService{},
		Checkout: stubCheckoutService{},
		Orders:   stubOrderService{},
		Payments: stubPaymentService{},
	})
}

func bearerFor(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(routerConfig().JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "ama@example.com",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func doRequest(t *testing.T, handler http.Handler, method, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}

func TestRouterHealthLive(t *testing.T) {
	resp := doRequest(t, newTestRouter(t), http.MethodGet, "/health/live", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterPublicCatalog(t *testing.T) {
	router := newTestRouter(t)

	if resp := doRequest(t, router, http.MethodGet, "/api/v1/products/", ""); resp.Code != http.StatusOK {
		t.Fatalf("list products: expected 200 got %d", resp.Code)
	}
	if resp := doRequest(t, router, http.MethodGet, "/api/v1/products/"+uuid.NewString(), ""); resp.Code != http.StatusOK {
		t.Fatalf("get product: expected 200 got %d", resp.Code)
	}
}

func TestRouterCartRequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	if resp := doRequest(t, router, http.MethodGet, "/api/v1/cart/", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous cart: expected 401 got %d", resp.Code)
	}
	if resp := doRequest(t, router, http.MethodGet, "/api/v1/cart/", bearerFor(t, enums.UserRoleBuyer)); resp.Code != http.StatusOK {
		t.Fatalf("buyer cart: expected 200 got %d", resp.Code)
	}
}

func TestRouterSellerSurfaceEnforcesRole(t *testing.T) {
	router := newTestRouter(t)

	if resp := doRequest(t, router, http.MethodGet, "/api/v1/seller/products/", bearerFor(t, enums.UserRoleBuyer)); resp.Code != http.StatusForbidden {
		t.Fatalf("buyer on seller surface: expected 403 got %d", resp.Code)
	}
	if resp := doRequest(t, router, http.MethodGet, "/api/v1/seller/products/", bearerFor(t, enums.UserRoleSeller)); resp.Code != http.StatusOK {
		t.Fatalf("seller on seller surface: expected 200 got %d", resp.Code)
	}
	if resp := doRequest(t, router, http.MethodGet, "/api/v1/seller/orders/", bearerFor(t, enums.UserRoleAdmin)); resp.Code != http.StatusOK {
		t.Fatalf("admin on seller surface: expected 200 got %d", resp.Code)
	}
}

func TestRouterAdminSurfaceEnforcesRole(t *testing.T) {
	router := newTestRouter(t)
	path := "/api/v1/admin/orders/KM-ABCD1234/resolve-dispute"

	if resp := doRequest(t, router, http.MethodPost, path, bearerFor(t, enums.UserRoleSeller)); resp.Code != http.StatusForbidden {
		t.Fatalf("seller on admin surface: expected 403 got %d", resp.Code)
	}
}

func TestRouterOrderTrackingAllowsGuests(t *testing.T) {
	router := newTestRouter(t)

	if resp := doRequest(t, router, http.MethodGet, "/api/v1/orders/KM-ABCD1234", ""); resp.Code != http.StatusOK {
		t.Fatalf("guest tracking: expected 200 got %d", resp.Code)
	}
	// A presented-but-invalid token is rejected even on guest routes.
	if resp := doRequest(t, router, http.MethodGet, "/api/v1/orders/KM-ABCD1234", "Bearer junk"); resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad token tracking: expected 401 got %d", resp.Code)
	}
}

func TestRouterWebhookSurfacesUnauthorized(t *testing.T) {
	router := newTestRouter(t)

	if resp := doRequest(t, router, http.MethodPost, "/api/v1/webhooks/paystack", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned webhook: expected 401 got %d", resp.Code)
	}
}
