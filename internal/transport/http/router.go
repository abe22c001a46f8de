package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/avolkov/online-store/internal/handlers"
	"github.com/avolkov/online-store/internal/jwtmiddleware"
)

type Deps struct {
	CartHandler     *handlers.CartHandler
	CheckoutHandler *handlers.CheckoutHandler
	OrdersHandler   *handlers.OrdersHandler
	WishlistHandler *handlers.WishlistHandler
	SearchHandler   *handlers.SearchHandler
	JWTSecret       []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	v1 := e.Group("/api/v1")

	// Trusted payment-provider boundary; authenticated by the surrounding
	// infrastructure, not by a user token.
	v1.POST("/checkout/webhook", d.CheckoutHandler.Webhook)

	if d.SearchHandler != nil {
		v1.GET("/products/search", d.SearchHandler.Search)
	}

	users := v1.Group("/users/:id", jwtmiddleware.RequireUser(d.JWTSecret))
	users.GET("/cart", d.CartHandler.GetCart)
	users.GET("/cart/count", d.CartHandler.GetCount)
	users.GET("/cart/:cartProductId", d.CartHandler.GetLine)
	users.POST("/cart", d.CartHandler.AddToCart)
	users.PUT("/cart/:cartProductId", d.CartHandler.ModifyQuantity)
	users.DELETE("/cart/:cartProductId", d.CartHandler.RemoveFromCart)
	users.GET("/orders", d.OrdersHandler.GetUserOrders)
	users.GET("/wishlist", d.WishlistHandler.GetWishlist)
	users.POST("/wishlist", d.WishlistHandler.AddToWishlist)
	users.DELETE("/wishlist/:productId", d.WishlistHandler.RemoveFromWishlist)

	admin := v1.Group("/admin", jwtmiddleware.RequireAdmin(d.JWTSecret))
	admin.GET("/orders", d.OrdersHandler.List)
	admin.GET("/orders/count", d.OrdersHandler.Count)
	admin.GET("/orders/:orderId", d.OrdersHandler.Get)
	admin.PATCH("/orders/:orderId", d.OrdersHandler.ChangeStatus)
	admin.DELETE("/orders/:orderId", d.OrdersHandler.Delete)
}
