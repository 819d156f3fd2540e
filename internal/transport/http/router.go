package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/easybuy/backend/internal/handlers"
	"github.com/easybuy/backend/internal/middleware/auth"
)

type Deps struct {
	AuthHandler     *handlers.AuthHandler
	ProductHandler  *handlers.ProductHandler
	CategoryHandler *handlers.CategoryHandler
	FeaturedHandler *handlers.FeaturedHandler
	PaymentHandler  *handlers.PaymentHandler
	Auth            *auth.Middleware
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	// The webhook authenticates through its signature, never a session.
	v1.POST("/webhook", d.PaymentHandler.Webhook)

	v1.POST("/users", d.AuthHandler.Register)
	v1.GET("/users", d.AuthHandler.GetUsers, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.POST("/login", d.AuthHandler.Login)
	v1.GET("/logout", d.AuthHandler.Logout, d.Auth.RequireLogin)
	v1.GET("/me", d.AuthHandler.GetMyProfile, d.Auth.RequireLogin)
	v1.PUT("/changepassword", d.AuthHandler.ChangePassword, d.Auth.RequireLogin)
	v1.PUT("/updateprofile", d.AuthHandler.UpdateProfile, d.Auth.RequireLogin)
	v1.PUT("/updateprofilepicture", d.AuthHandler.UpdateProfilePicture, d.Auth.RequireLogin)
	v1.POST("/forgotpassword", d.AuthHandler.ForgotPassword)
	v1.PUT("/resetpassword/:token", d.AuthHandler.ResetPassword)
	v1.PUT("/users/:id", d.AuthHandler.UpdateUserRole, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.DELETE("/users/:id", d.AuthHandler.DeleteUser, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.POST("/subscribe", d.AuthHandler.Subscribe)

	v1.GET("/products", d.ProductHandler.GetAllProducts)
	v1.GET("/products/:id", d.ProductHandler.GetSingleProduct)
	v1.POST("/products", d.ProductHandler.CreateProduct, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.PUT("/products/:id", d.ProductHandler.UpdateProduct, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.DELETE("/products/:id", d.ProductHandler.DeleteProduct, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.GET("/search-products", d.ProductHandler.SearchProducts)

	v1.GET("/categories", d.CategoryHandler.GetAllCategories)
	v1.POST("/categories", d.CategoryHandler.CreateCategory, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.PUT("/categories/:id", d.CategoryHandler.UpdateCategory, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.DELETE("/categories/:id", d.CategoryHandler.DeleteCategory, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.GET("/products-categories/:id", d.CategoryHandler.CategoryProducts)

	v1.GET("/featured-products", d.FeaturedHandler.GetAllFeaturedProducts)
	v1.POST("/featured-product/:productId", d.FeaturedHandler.CreateFeaturedProduct, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.DELETE("/featured-product/:productId", d.FeaturedHandler.DeleteFeaturedProduct, d.Auth.RequireLogin, d.Auth.AdminOnly)

	v1.POST("/create-checkout-session", d.PaymentHandler.CreateCheckoutSession)
	v1.GET("/orders", d.PaymentHandler.GetAllOrders, d.Auth.RequireLogin, d.Auth.AdminOnly)
	v1.PUT("/orders/:id", d.PaymentHandler.ChangeDeliveryStatus, d.Auth.RequireLogin, d.Auth.AdminOnly)
}
