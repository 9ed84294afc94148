package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-ddd-users-api/internal/container"
	handlers "github.com/oksasatya/go-ddd-users-api/internal/interface/http"
	"github.com/oksasatya/go-ddd-users-api/internal/interface/middleware"
)

// UserModule wires the user CRUD handlers into routes
// GET/POST /api/users, GET /api/users/search, GET/PUT/DELETE /api/users/:id
// All routes share a limiter keyed by client IP, method and route.
type UserModule struct {
	Handler       *handlers.UserHandler
	PerMinute     int
	BypassPrivate bool
}

func NewUserModule(h *handlers.UserHandler, perMinute int, bypassPrivate bool) *UserModule {
	return &UserModule{Handler: h, PerMinute: perMinute, BypassPrivate: bypassPrivate}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	var allow middleware.AllowFunc
	if m.BypassPrivate {
		allow = middleware.AllowPrivateIP()
	}
	users := rg.Group("/users")
	if m.PerMinute > 0 {
		users.Use(middleware.RateLimit(container.GetRedis(), m.PerMinute, time.Minute, middleware.KeyByIPAndMethod(), allow))
	}
	{
		users.GET("", m.Handler.List)
		users.POST("", m.Handler.Create)
		users.GET("/search", m.Handler.Search)
		users.GET("/:id", m.Handler.Show)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Remove)
	}
}
