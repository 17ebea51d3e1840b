// sse.go: server-sent events stream for dashboard clients.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/victorakor/mall-surveillance-system/internal/observability"
)

// heartbeatInterval is how often an SSE comment is written to keep idle
// connections alive through proxies.
const heartbeatInterval = 30 * time.Second

// Event is a named payload pushed to stream clients. The dashboard switches
// on the event name, so names are part of the client contract.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// SSEHandler fans events out to connected dashboard clients. Clients whose
// channel is full are skipped rather than blocking the pipeline.
type SSEHandler struct {
	clients    map[chan Event]bool
	clientsMux sync.Mutex
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewSSEHandler(metrics *observability.Metrics, logger *slog.Logger) *SSEHandler {
	return &SSEHandler{
		clients: make(map[chan Event]bool),
		metrics: metrics,
		logger:  logger,
	}
}

// ServeSSE handles a Server-Sent Events connection.
// API: GET /api/stream
func (h *SSEHandler) ServeSSE(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	clientChan := make(chan Event, 100)
	h.addClient(clientChan)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer func() {
		cancel()
		h.removeClient(clientChan)
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-clientChan:
			data, err := json.Marshal(event.Payload)
			if err != nil {
				if h.logger != nil {
					h.logger.Error("Failed to marshal stream event", "event", event.Event, "error", err)
				}
				continue
			}
			if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event.Event, data); err != nil {
				return err
			}
			c.Response().Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(c.Response(), ":\n\n"); err != nil {
				return err
			}
			c.Response().Flush()
		}
	}
}

// Broadcast sends a named event to every connected client. It never blocks,
// a client that cannot keep up misses the event.
func (h *SSEHandler) Broadcast(event string, payload any) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for clientChan := range h.clients {
		select {
		case clientChan <- Event{Event: event, Payload: payload}:
		default:
			if h.logger != nil {
				h.logger.Warn("Stream client channel blocked, dropping event", "event", event)
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *SSEHandler) ClientCount() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

func (h *SSEHandler) addClient(clientChan chan Event) {
	h.clientsMux.Lock()
	h.clients[clientChan] = true
	total := len(h.clients)
	h.clientsMux.Unlock()

	h.metrics.AddStreamClient(1)
	if h.logger != nil {
		h.logger.Info("Stream client connected", "total", total)
	}
}

func (h *SSEHandler) removeClient(clientChan chan Event) {
	h.clientsMux.Lock()
	delete(h.clients, clientChan)
	close(clientChan)
	total := len(h.clients)
	h.clientsMux.Unlock()

	h.metrics.AddStreamClient(-1)
	if h.logger != nil {
		h.logger.Info("Stream client disconnected", "total", total)
	}
}
