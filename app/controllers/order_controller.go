package controllers

import (
	"net/http"
	"strconv"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/services"
	"github.com/lacocina/comanda/pkg/bind"
	"github.com/lacocina/comanda/pkg/middleware"
	"github.com/lacocina/comanda/pkg/response"
)

type OrderController struct {
	orders *services.OrderService
	stats  *services.StatsService
}

func NewOrderController(orders *services.OrderService, stats *services.StatsService) *OrderController {
	return &OrderController{orders: orders, stats: stats}
}

// Create places a new order for the authenticated user.
func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	var input services.CreateOrderInput
	if errs, err := bind.JSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	// The order always belongs to the caller; the token decides, not
	// the body.
	if claims := middleware.ClaimsFromCtx(r.Context()); claims != nil {
		input.UserID = claims.UserID
	}

	order, err := c.orders.PlaceOrder(input)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, order)
}

// List returns orders, filterable by status, user and creation date.
func (c *OrderController) List(w http.ResponseWriter, r *http.Request) {
	filter := services.OrderFilter{
		Status: models.OrderStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		filter.UserID = uint(id)
	}

	var err error
	if filter.DateFrom, err = dateParam(r, "date_from", false); err != nil {
		fail(w, r, err)
		return
	}
	if filter.DateTo, err = dateParam(r, "date_to", true); err != nil {
		fail(w, r, err)
		return
	}

	page, limit := pageParams(r)
	orders, total, err := c.orders.List(filter, page, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, orders, paginationOf(page, limit, total))
}

// Show fetches one order. Customers can only read their own orders;
// admins can read any.
func (c *OrderController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := c.orders.Get(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if claims := middleware.ClaimsFromCtx(r.Context()); claims != nil &&
		claims.Role != "admin" && claims.UserID != order.UserID {
		response.Forbidden(w)
		return
	}
	response.Success(w, order)
}

// ByUser lists one user's orders. Same ownership rule as Show.
func (c *OrderController) ByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(r, "userID")
	if !ok {
		response.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if claims := middleware.ClaimsFromCtx(r.Context()); claims != nil &&
		claims.Role != "admin" && claims.UserID != userID {
		response.Forbidden(w)
		return
	}

	page, limit := pageParams(r)
	orders, total, user, err := c.orders.ListByUser(userID, page, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"user":       user,
		"orders":     orders,
		"pagination": paginationOf(page, limit, total),
	})
}

// UpdateStatus transitions an order through the lifecycle.
func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var body struct {
		Status string `json:"status" validate:"required"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	order, err := c.orders.SetStatus(id, models.OrderStatus(body.Status))
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, order)
}

// Stats returns sales aggregation over an optional date range.
func (c *OrderController) Stats(w http.ResponseWriter, r *http.Request) {
	from, err := dateParam(r, "date_from", false)
	if err != nil {
		fail(w, r, err)
		return
	}
	to, err := dateParam(r, "date_to", true)
	if err != nil {
		fail(w, r, err)
		return
	}

	stats, err := c.stats.Sales(from, to)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, stats)
}
