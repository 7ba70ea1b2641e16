package api

import (
	"time"

	"github.com/example/bookstore/internal/api/middleware"
	"github.com/example/bookstore/internal/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the HTTP-level settings of the router
type RouterConfig struct {
	AllowedOrigins []string
}

func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authRequired := middleware.AuthMiddleware(h.jwtService)
	can := middleware.RequireCapability

	api := r.Group("/api")
	api.GET("/health", h.Health)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/me", authRequired, h.Me)
		authGroup.PUT("/password", authRequired, h.ChangePassword)
	}

	books := api.Group("/books")
	{
		books.GET("", h.ListBooks)
		books.GET("/search", h.SearchBooks)
		books.GET("/seller/:sellerId", h.SellerBooks)
		books.GET("/my", authRequired, can(auth.CapBookWrite), h.MyBooks)
		books.GET("/export", authRequired, can(auth.CapBookExport), h.ExportBooks)
		books.POST("", authRequired, can(auth.CapBookWrite), h.CreateBook)
		books.GET("/:id", h.GetBook)
		books.PUT("/:id", authRequired, can(auth.CapBookWrite), h.UpdateBook)
		books.DELETE("/:id", authRequired, can(auth.CapBookWrite), h.DeleteBook)
		books.GET("/:id/reviews", h.BookReviews)
		books.POST("/:id/reviews", authRequired, can(auth.CapReviewWrite), h.CreateReview)
	}

	cart := api.Group("/cart", authRequired, can(auth.CapCartManage))
	{
		cart.GET("", h.GetCart)
		cart.GET("/count", h.CartCount)
		cart.POST("/add", h.AddToCart)
		cart.PUT("/update/:itemId", h.UpdateCartItem)
		cart.DELETE("/remove/:itemId", h.RemoveFromCart)
		cart.DELETE("/clear", h.ClearCart)
		cart.POST("/move-to-wishlist/:itemId", h.MoveToWishlist)
	}

	orders := api.Group("/orders", authRequired)
	{
		orders.POST("/create", can(auth.CapOrderCreate), h.CreateOrder)
		orders.GET("/my-orders", can(auth.CapOrderReadOwn), h.MyOrders)
		orders.GET("/seller/orders", can(auth.CapOrderReadSeller), h.SellerOrders)
		orders.GET("/admin/all-orders", can(auth.CapOrderReadAny), h.AllOrders)
		orders.GET("/ws", can(auth.CapOrderReadSeller), h.OrderFeedSocket)
		orders.GET("/:id", h.GetOrder)
		orders.PUT("/:id/status", can(auth.CapOrderStatusSeller), h.UpdateOrderStatus)
		orders.PUT("/:id/cancel", h.CancelOrder)
	}

	reviews := api.Group("/reviews", authRequired)
	{
		reviews.PUT("/:id/moderate", can(auth.CapReviewModerate), h.ModerateReview)
		reviews.POST("/:id/helpful", h.MarkReviewHelpful)
	}

	dashboard := api.Group("/dashboard", authRequired)
	{
		dashboard.GET("/seller", can(auth.CapDashboardSeller), h.SellerDashboard)
		dashboard.GET("/admin", can(auth.CapDashboardAdmin), h.AdminDashboard)
		dashboard.GET("/users/:id", can(auth.CapDashboardAdmin), h.DirectoryUser)
	}

	return r
}
