package main

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	config "github.com/jmwangi/cdj-storefront/configs"
	"github.com/jmwangi/cdj-storefront/internal/auth"
	"github.com/jmwangi/cdj-storefront/internal/db"
	"github.com/jmwangi/cdj-storefront/internal/handlers"
	"github.com/jmwangi/cdj-storefront/internal/mpesa"
	"github.com/jmwangi/cdj-storefront/internal/orders"
	"github.com/jmwangi/cdj-storefront/internal/payments"
)

func main() {

	config.Load()
	db.Init()

	lifecycle := orders.NewManager(db.DB)
	gateway := mpesa.New(config.LoadMpesaConfig())
	reconciler := payments.NewReconciler(db.DB, lifecycle)

	r := gin.Default()

	// ── session store ──
	store := cookie.NewStore([]byte(config.SessionSecret()))
	r.Use(sessions.Sessions("gosess", store))

	// ── public endpoints ──
	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	r.POST("/register", auth.Register)
	r.POST("/login", auth.Login)
	r.DELETE("/logout", auth.Logout)
	r.PUT("/resetpassword", auth.ResetPassword)
	r.GET("/user", auth.CurrentUser)

	r.GET("/products", handlers.GetProducts)
	r.GET("/products/:id", handlers.GetProductByID)
	r.GET("/category", handlers.GetProductsByCategory)
	r.GET("/topcategory", handlers.GetTopCategories)
	r.GET("/featuredbrands", handlers.GetFeaturedBrands)

	// Gateway settlement callback, authenticated by reference not session.
	r.POST("/payments/callback", handlers.PaymentCallback(reconciler))

	// ── protected API ──
	api := r.Group("/")
	api.Use(auth.RequireAuth())
	{
		api.POST("/orders", handlers.CreateOrder(lifecycle))
		api.GET("/orders", handlers.ListOrders(lifecycle))
		api.GET("/orders/:id", handlers.GetOrder(lifecycle))
		api.PATCH("/orders/:id", handlers.UpdateOrder(lifecycle))

		api.POST("/payments", handlers.MakePayment(gateway, lifecycle, reconciler))
		// legacy path kept for the existing web client
		api.POST("/make_payment", handlers.MakePayment(gateway, lifecycle, reconciler))
	}

	// ── admin ──
	admin := api.Group("/")
	admin.Use(auth.RequireAdmin())
	{
		admin.POST("/products", handlers.CreateProduct)
		admin.DELETE("/orders/:id", handlers.DeleteOrder(lifecycle))
		admin.POST("/orders/:id/cancel", handlers.CancelOrder(lifecycle))
		admin.GET("/payments", handlers.ListPayments(reconciler))
		admin.GET("/payment", handlers.ListPayments(reconciler))
	}

	r.Run(":8080")
}
