package health

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
	"github.com/Nazarious-ucu/weather-collector/internal/scheduler"
)

const (
	defaultLimit = 24
	maxLimit     = 500
)

type statusProvider interface {
	Status() models.CollectorStatus
}

type brokerState interface {
	Connected() bool
}

type historyReader interface {
	Recent(ctx context.Context, limit int) ([]models.CycleReport, error)
}

type Handler struct {
	Status  statusProvider
	Broker  brokerState
	History historyReader
}

// NewHandler builds the ops handler. history may be nil when cycle
// history is disabled.
func NewHandler(status statusProvider, broker brokerState, history historyReader) *Handler {
	return &Handler{Status: status, Broker: broker, History: history}
}

type healthResponse struct {
	State           string              `json:"state"`
	BrokerConnected bool                `json:"broker_connected"`
	LastCycle       *models.CycleReport `json:"last_cycle,omitempty"`
}

// Health
// @Summary Collector health
// @Description Reports scheduler state, broker connectivity and the last cycle
// @Tags ops
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} healthResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	status := h.Status.Status()
	resp := healthResponse{
		State:           status.State,
		BrokerConnected: h.Broker.Connected(),
		LastCycle:       status.LastCycle,
	}

	code := http.StatusOK
	if !resp.BrokerConnected || status.State == scheduler.StateShuttingDown {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// Cycles
// @Summary Recent collection cycles
// @Tags ops
// @Produce json
// @Param limit query int false "Number of cycles, newest first"
// @Success 200 {array} models.CycleReport
// @Failure 400
// @Failure 404
// @Failure 500
// @Router /cycles [get]
func (h *Handler) Cycles(c *gin.Context) {
	if h.History == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "cycle history is disabled"})
		return
	}

	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	reports, err := h.History.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if reports == nil {
		reports = []models.CycleReport{}
	}
	c.JSON(http.StatusOK, reports)
}
