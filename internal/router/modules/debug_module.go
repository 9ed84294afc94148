package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-users-api/internal/container"
	"github.com/oksasatya/go-ddd-users-api/internal/interface/middleware"
)

type DebugModule struct {
	Metrics *middleware.Metrics
}

func NewDebugModule(m *middleware.Metrics) *DebugModule { return &DebugModule{Metrics: m} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Public metrics endpoints (expvar, prometheus), rate-limited per IP
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), nil)
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	rg.GET("/metrics", rl, gin.WrapH(m.Metrics.Handler()))
}
