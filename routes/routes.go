package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threadkart/threadkart-backend-go/config"
	"github.com/threadkart/threadkart-backend-go/handlers"
	custommw "github.com/threadkart/threadkart-backend-go/middleware"
)

// SetupRoutes wires every endpoint onto the echo instance.
func SetupRoutes(e *echo.Echo, products *handlers.ProductHandler, users *handlers.UserHandler, cfg *config.Config) {
	api := e.Group("/api")

	// Catalog
	api.GET("/products", products.GetProducts)
	api.GET("/products/:id", products.GetProduct)
	api.POST("/products/add", products.AddProduct)
	api.PUT("/products/:id", products.UpdateProduct)
	api.DELETE("/products/:id", products.DeleteProduct)

	// Registration flow
	api.POST("/send-otp", users.SendOTP)
	api.POST("/resend-otp", users.ResendOTP)
	api.POST("/verify-otp", users.VerifyOTP)
	api.POST("/register", users.Register)
	api.POST("/login", users.Login)

	api.GET("/users/me", users.Me, custommw.Auth(cfg.JWTSecret))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
