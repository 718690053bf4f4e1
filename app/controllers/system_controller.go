package controllers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/lacocina/comanda/pkg/response"
	"github.com/lacocina/comanda/pkg/ws"
)

type SystemController struct {
	started time.Time
	hub     *ws.Hub
}

func NewSystemController(hub *ws.Hub) *SystemController {
	return &SystemController{started: time.Now(), hub: hub}
}

// Info reports process-level counters for the admin dashboard.
func (c *SystemController) Info(w http.ResponseWriter, r *http.Request) {
	feedClients := 0
	if c.hub != nil {
		feedClients = c.hub.ClientCount()
	}
	response.Success(w, map[string]interface{}{
		"uptime":      time.Since(c.started).Round(time.Second).String(),
		"goVersion":   runtime.Version(),
		"goroutines":  runtime.NumGoroutine(),
		"feedClients": feedClients,
	})
}
