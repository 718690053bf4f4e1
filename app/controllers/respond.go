package controllers

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lacocina/comanda/app/services"
	"github.com/lacocina/comanda/pkg/logger"
	"github.com/lacocina/comanda/pkg/response"
)

// fail maps a service error kind onto an HTTP status. Internal causes
// are logged here; the client only ever sees the message.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch services.KindOf(err) {
	case services.KindInvalid:
		status = http.StatusBadRequest
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindConflict:
		status = http.StatusConflict
	default:
		logger.WithCtx(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	response.Error(w, status, err.Error())
}

// idParam parses the {id} path segment.
func idParam(r *http.Request, name string) (uint, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// pageParams reads page/limit query parameters with sane defaults.
func pageParams(r *http.Request) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}
	return page, limit
}

func paginationOf(page, limit int, total int64) response.Pagination {
	pages := int(math.Ceil(float64(total) / float64(limit)))
	if pages < 1 {
		pages = 1
	}
	return response.Pagination{CurrentPage: page, TotalPages: pages, TotalItems: total, PerPage: limit}
}

// dateParam parses an optional 2006-01-02 query parameter in server
// local time. endOfDay pushes the bound to 23:59:59 so ranges are
// inclusive on both sides.
func dateParam(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return nil, services.Invalid("%s must be a YYYY-MM-DD date", name)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}
