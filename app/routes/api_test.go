package routes_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lacocina/comanda/app/controllers"
	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/repositories"
	"github.com/lacocina/comanda/app/routes"
	"github.com/lacocina/comanda/app/services"
	"github.com/lacocina/comanda/pkg/auth"
	"github.com/lacocina/comanda/pkg/router"
)

type testAPI struct {
	handler http.Handler
	db      *gorm.DB
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}))
	t.Cleanup(func() { _ = sqlDB.Close() })

	productRepo := repositories.NewProductRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	userRepo := repositories.NewUserRepository(db)

	r := router.New()
	routes.RegisterAPI(r, routes.Controllers{
		Auth:     controllers.NewAuthController(services.NewAuthService(userRepo)),
		Orders:   controllers.NewOrderController(services.NewOrderService(orderRepo, productRepo, userRepo), services.NewStatsService(orderRepo)),
		Products: controllers.NewProductController(services.NewProductService(productRepo)),
		System:   controllers.NewSystemController(nil),
	})
	return &testAPI{handler: r.Handler(), db: db}
}

func (a *testAPI) seedUser(t *testing.T, role string) (models.User, string) {
	t.Helper()
	user := models.User{Name: "Tester", Email: fmt.Sprintf("%s@test.local", role), Password: "x", Role: role}
	require.NoError(t, a.db.Create(&user).Error)
	token, err := auth.GenerateToken(user.ID, role)
	require.NoError(t, err)
	return user, token
}

func (a *testAPI) seedProduct(t *testing.T, stock int) models.Product {
	t.Helper()
	p := models.Product{Name: "Pollo a la Brasa", Price: 9.00, Stock: stock, Category: "Pollo", Active: true}
	require.NoError(t, a.db.Create(&p).Error)
	return p
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func orderBody(productID uint, qty int) map[string]interface{} {
	return map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": productID, "quantity": qty}},
	}
}

func TestCatalogIsPublic(t *testing.T) {
	api := newTestAPI(t)
	api.seedProduct(t, 5)

	rec := api.do(t, http.MethodGet, "/api/products", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/products/categories", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hamburguesas")
}

func TestOrderRequiresToken(t *testing.T) {
	api := newTestAPI(t)
	p := api.seedProduct(t, 5)

	rec := api.do(t, http.MethodPost, "/api/orders", "", orderBody(p.ID, 1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPlaceOrderEndToEnd(t *testing.T) {
	api := newTestAPI(t)
	user, token := api.seedUser(t, "user")
	p := api.seedProduct(t, 5)

	rec := api.do(t, http.MethodPost, "/api/orders", token, orderBody(p.ID, 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got struct {
		Data models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, user.ID, got.Data.UserID)
	assert.Equal(t, 18.00, got.Data.Total)
	assert.Equal(t, models.StatusPending, got.Data.Status)

	var stock models.Product
	require.NoError(t, api.db.First(&stock, p.ID).Error)
	assert.Equal(t, 3, stock.Stock)
}

func TestPlaceOrderInsufficientStockIsConflict(t *testing.T) {
	api := newTestAPI(t)
	_, token := api.seedUser(t, "user")
	p := api.seedProduct(t, 1)

	rec := api.do(t, http.MethodPost, "/api/orders", token, orderBody(p.ID, 2))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
}

func TestStatusTransitionGatedToAdmin(t *testing.T) {
	api := newTestAPI(t)
	_, userToken := api.seedUser(t, "user")
	_, adminToken := api.seedUser(t, "admin")
	p := api.seedProduct(t, 5)

	rec := api.do(t, http.MethodPost, "/api/orders", userToken, orderBody(p.ID, 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	path := fmt.Sprintf("/api/orders/%d/status", created.Data.ID)

	rec = api.do(t, http.MethodPatch, path, userToken, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPatch, path, adminToken, map[string]string{"status": "confirmed"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Skipping ahead is a conflict.
	rec = api.do(t, http.MethodPatch, path, adminToken, map[string]string{"status": "delivered"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestShowOrderEnforcesOwnership(t *testing.T) {
	api := newTestAPI(t)
	_, ownerToken := api.seedUser(t, "user")
	p := api.seedProduct(t, 5)

	rec := api.do(t, http.MethodPost, "/api/orders", ownerToken, orderBody(p.ID, 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data models.Order `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	other := models.User{Name: "Otro", Email: "otro@test.local", Password: "x", Role: "user"}
	require.NoError(t, api.db.Create(&other).Error)
	otherToken, err := auth.GenerateToken(other.ID, "user")
	require.NoError(t, err)

	path := fmt.Sprintf("/api/orders/%d", created.Data.ID)
	rec = api.do(t, http.MethodGet, path, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodGet, path, ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterAndLogin(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": "Ana", "email": "ana@test.local", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Duplicate email conflicts.
	rec = api.do(t, http.MethodPost, "/api/register", "", map[string]string{
		"name": "Ana", "email": "ana@test.local", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ana@test.local", "password": "secret1",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "token")

	rec = api.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "ana@test.local", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCatalogWritesGatedToAdmin(t *testing.T) {
	api := newTestAPI(t)
	_, userToken := api.seedUser(t, "user")
	_, adminToken := api.seedUser(t, "admin")

	body := map[string]interface{}{
		"name": "Té Helado", "description": "Con limón", "price": 2.0, "stock": 30, "category": "Bebidas",
	}
	rec := api.do(t, http.MethodPost, "/api/products", userToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/products", adminToken, body)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}
