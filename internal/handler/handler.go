// Package handler serves the read-only status API of the trading loop.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crypto-autotrade/internal/types"
)

// StatusSource reports the most recent cycle and the loop counters.
type StatusSource interface {
	LastResult() *types.CycleResult
	Stats() types.LoopStats
}

type Handler struct {
	source    StatusSource
	ticker    string
	mode      string
	startedAt time.Time
	now       func() time.Time
}

func New(source StatusSource, ticker, mode string) *Handler {
	return &Handler{
		source:    source,
		ticker:    ticker,
		mode:      mode,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.GET("/status", h.Status)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type statusResponse struct {
	Ticker        string             `json:"ticker"`
	Mode          string             `json:"mode"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	Loop          types.LoopStats    `json:"loop"`
	LastCycle     *types.CycleResult `json:"last_cycle"`
}

// Status returns 503 until the first cycle has finished.
func (h *Handler) Status(c *gin.Context) {
	resp := statusResponse{
		Ticker:        h.ticker,
		Mode:          h.mode,
		UptimeSeconds: int64(h.now().Sub(h.startedAt).Seconds()),
		Loop:          h.source.Stats(),
		LastCycle:     h.source.LastResult(),
	}
	code := http.StatusOK
	if resp.Loop.Cycles == 0 {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}
