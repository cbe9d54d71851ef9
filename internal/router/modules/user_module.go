package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"userhub/internal/container"
	handlers "userhub/internal/interface/http"
	"userhub/internal/interface/middleware"
)

// Module wires the user and avatar HTTP handlers into routes:
// POST   /api/users                  create user
// GET    /api/users/:userId          upstream directory lookup
// GET    /api/users/:userId/avatar   cached avatar (base64)
// DELETE /api/users/:userId/avatar   drop cached avatar
// GET    /api/search/users           search indexed users
type Module struct {
	Users   *handlers.UserHandler
	Avatars *handlers.AvatarHandler
}

func New(users *handlers.UserHandler, avatars *handlers.AvatarHandler) *Module {
	return &Module{Users: users, Avatars: avatars}
}

func (m *Module) Register(rg *gin.RouterGroup) {
	createLimiter := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	avatarLimiter := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIPAndPath(), middleware.AllowPrivateIP())

	users := rg.Group("/users")
	{
		users.POST("", createLimiter, m.Users.Create)
		users.GET("/:userId", m.Users.Get)
		users.GET("/:userId/avatar", avatarLimiter, m.Avatars.Get)
		users.DELETE("/:userId/avatar", m.Avatars.Delete)
	}
	rg.GET("/search/users", m.Users.Search)
}
