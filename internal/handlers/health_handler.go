package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger: зависимость, которую проверяет /health (postgres, redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
	log  *zap.Logger
}

func NewHealthHandler(deps map[string]Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, log: log}
}

// Health godoc
// @Summary Проверка живости
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	out := gin.H{"status": "ok"}
	code := http.StatusOK
	for name, p := range h.deps {
		if err := p.Ping(ctx); err != nil {
			h.log.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			out[name] = "down"
			out["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		out[name] = "up"
	}
	c.JSON(code, out)
}
