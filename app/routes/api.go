package routes

import (
	"net/http"

	"github.com/lacocina/comanda/app/controllers"
	"github.com/lacocina/comanda/pkg/metrics"
	"github.com/lacocina/comanda/pkg/middleware"
	"github.com/lacocina/comanda/pkg/response"
	"github.com/lacocina/comanda/pkg/router"
	"github.com/lacocina/comanda/pkg/ws"
)

// Controllers bundles everything RegisterAPI mounts.
type Controllers struct {
	Auth     *controllers.AuthController
	Orders   *controllers.OrderController
	Products *controllers.ProductController
	System   *controllers.SystemController
	Schema   http.HandlerFunc
	Feed     *ws.Hub
}

// RegisterAPI mounts the full HTTP surface. Catalog reads and auth are
// public; ordering requires a token; catalog writes, the status board
// and the live feed require the admin role.
func RegisterAPI(r *router.Router, c Controllers) {
	api := r.Group("/api")

	api.Post("/register", "auth.register", c.Auth.Register)
	api.Post("/login", "auth.login", c.Auth.Login)

	api.Get("/products", "products.list", c.Products.List)
	api.Get("/products/categories", "products.categories", c.Products.Categories)
	api.Get("/products/{id}", "products.show", c.Products.Show)

	if c.Schema != nil {
		api.Get("/graphql", "catalog.graphql", c.Schema)
		api.Post("/graphql", "catalog.graphql.post", c.Schema)
	}

	authed := api.Group("", middleware.Auth)
	authed.Post("/orders", "orders.create", c.Orders.Create)
	authed.Get("/orders/user/{userID}", "orders.by_user", c.Orders.ByUser)
	authed.Get("/orders/{id}", "orders.show", c.Orders.Show)

	admin := api.Group("", middleware.Auth, middleware.RequireRole("admin"))
	admin.Get("/orders", "orders.list", c.Orders.List)
	admin.Get("/orders/stats", "orders.stats", c.Orders.Stats)
	admin.Patch("/orders/{id}/status", "orders.status", c.Orders.UpdateStatus)

	admin.Post("/products", "products.create", c.Products.Create)
	admin.Put("/products/{id}", "products.update", c.Products.Update)
	admin.Delete("/products/{id}", "products.delete", c.Products.Delete)
	admin.Patch("/products/{id}/stock", "products.stock", c.Products.SetStock)
	admin.Patch("/products/{id}/active", "products.active", c.Products.SetActive)
	admin.Post("/products/{id}/image", "products.image", c.Products.UploadImage)

	admin.Get("/system", "system.info", c.System.Info)
	if c.Feed != nil {
		admin.Get("/orders/feed", "orders.feed", func(w http.ResponseWriter, r *http.Request) {
			ws.Upgrade(w, r, c.Feed)
		})
	}

	r.Get("/health", "health", func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, map[string]string{"status": "ok"})
	})
	r.HandleFunc("/metrics", metrics.Handler().ServeHTTP)
}
