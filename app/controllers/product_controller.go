package controllers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/app/services"
	"github.com/lacocina/comanda/pkg/bind"
	"github.com/lacocina/comanda/pkg/response"
	"github.com/lacocina/comanda/pkg/storage"
)

const maxImageBytes = 5 << 20 // 5 MB

type ProductController struct {
	products *services.ProductService
}

func NewProductController(products *services.ProductService) *ProductController {
	return &ProductController{products: products}
}

// List returns the catalog, filterable by category, active and search.
func (c *ProductController) List(w http.ResponseWriter, r *http.Request) {
	filter := services.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}
	switch r.URL.Query().Get("active") {
	case "true":
		v := true
		filter.Active = &v
	case "false":
		v := false
		filter.Active = &v
	}

	page, limit := pageParams(r)
	products, total, err := c.products.List(filter, page, limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Paginated(w, products, paginationOf(page, limit, total))
}

// Categories returns the closed category list.
func (c *ProductController) Categories(w http.ResponseWriter, r *http.Request) {
	response.Success(w, models.Categories)
}

// Show fetches one product.
func (c *ProductController) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := c.products.Get(id)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

// Create adds a catalog entry.
func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	var input services.ProductInput
	if errs, err := bind.JSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := c.products.Create(input)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Created(w, p)
}

// Update replaces the descriptive fields of a product.
func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var input services.ProductInput
	if errs, err := bind.JSON(r, &input); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := c.products.Update(id, input)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

// Delete removes a product.
func (c *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := c.products.Delete(id); err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, map[string]string{"message": "product deleted"})
}

// SetStock overwrites the stock level (admin correction).
func (c *ProductController) SetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var body struct {
		Stock int `json:"stock"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := c.products.SetStock(id, body.Stock)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

// SetActive toggles product availability.
func (c *ProductController) SetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var body struct {
		Active bool `json:"active"`
	}
	if errs, err := bind.JSON(r, &body); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())
		return
	} else if errs != nil {
		response.ValidationError(w, errs)
		return
	}

	p, err := c.products.SetActive(id, body.Active)
	if err != nil {
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}

// UploadImage stores a multipart image on the configured disk and
// records its path on the product.
func (c *ProductController) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		response.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		response.Error(w, http.StatusBadRequest, "unsupported image type")
		return
	}

	path := fmt.Sprintf("products/%d_%d%s", id, time.Now().UnixNano(), ext)
	if err := storage.PutStream(path, file); err != nil {
		fail(w, r, services.Internal(err, "could not store image"))
		return
	}

	p, err := c.products.SetImage(id, storage.URL(path))
	if err != nil {
		_ = storage.Delete(path)
		fail(w, r, err)
		return
	}
	response.Success(w, p)
}
