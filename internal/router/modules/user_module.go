package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clearsolutions/users-api/internal/container"
	handlers "github.com/clearsolutions/users-api/internal/interface/http"
	"github.com/clearsolutions/users-api/internal/interface/middleware"
)

// Module wires the user HTTP handlers into routes under /api/v1/users:
// GET /, POST /, PUT /:id, DELETE /:id

type Module struct {
	Handler *handlers.UserHandler
}

func New(h *handlers.UserHandler) *Module {
	return &Module{Handler: h}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	readLimiter := middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	writeLimiter := middleware.RateLimit(container.GetRedis(), 60, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())

	users := rg.Group("/v1/users")
	{
		users.GET("", readLimiter, m.Handler.GetUsers)
		users.POST("", writeLimiter, m.Handler.CreateUser)
		users.PUT("/:id", writeLimiter, m.Handler.UpdateUser)
		users.DELETE("/:id", writeLimiter, m.Handler.DeleteUser)
	}
}
