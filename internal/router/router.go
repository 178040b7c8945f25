package router

import (
	"github.com/upscwallahhacker-cell/Desikart/internal/auth"
	"github.com/upscwallahhacker-cell/Desikart/internal/handlers"
	"github.com/upscwallahhacker-cell/Desikart/internal/middleware"
	"github.com/upscwallahhacker-cell/Desikart/internal/session"

	"github.com/gin-contrib/cors"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Provider auth.Provider
	Sessions *session.Manager
	Auth     *handlers.AuthHandler
	Catalog  *handlers.CatalogHandler
	Cart     *handlers.CartHandler
	Orders   *handlers.OrderHandler
	Log      *zap.Logger
}

func Router(d Deps) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	r.POST("/auth/register", d.Auth.Register)
	r.POST("/auth/login", d.Auth.Login)
	r.POST("/auth/federated", d.Auth.Federated)

	r.GET("/products", d.Catalog.List)
	r.GET("/products/:id", d.Catalog.Get)
	r.GET("/settings", d.Catalog.Settings)

	authed := r.Group("/", middleware.AuthRequired(d.Provider, d.Sessions, d.Log))
	{
		authed.GET("/auth/me", d.Auth.Me)
		authed.PUT("/auth/profile", d.Auth.UpdateProfile)
		authed.POST("/auth/logout", d.Auth.Logout)

		authed.GET("/cart", d.Cart.Get)
		authed.POST("/cart", d.Cart.Add)
		authed.DELETE("/cart/:id", d.Cart.Remove)
		authed.DELETE("/cart", d.Cart.Clear)

		authed.POST("/checkout", d.Orders.Checkout)

		authed.GET("/orders", d.Orders.ListMine)
		authed.GET("/orders/:id", d.Orders.Get)
		authed.POST("/orders/:id/cancel", d.Orders.Cancel)
		authed.POST("/orders/:id/return", d.Orders.RequestReturn)
	}

	admin := r.Group("/admin", middleware.AuthRequired(d.Provider, d.Sessions, d.Log), middleware.AdminRequired())
	{
		admin.GET("/orders", d.Orders.ListAll)
		admin.PUT("/orders/:id/status", d.Orders.UpdateStatus)
		admin.PUT("/orders/:id/expected-delivery", d.Orders.SetExpectedDelivery)

		admin.POST("/products", d.Catalog.Create)
		admin.PATCH("/products/:id", d.Catalog.Update)
		admin.DELETE("/products/:id", d.Catalog.Delete)

		admin.PATCH("/settings", d.Catalog.UpdateSettings)
	}

	return r
}
