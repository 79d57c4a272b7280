package routes

import (
	"net/http"
	"time"

	"mindwell/handlers"
	"mindwell/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterSessionRoutes registers the session lifecycle endpoints.
func RegisterSessionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/sessions")
	{
		api.POST("", hb.Session.CreateSession)
		api.GET("/:id", hb.Session.GetSession)
		api.POST("/:id/approve", hb.Session.ApproveSession)
		api.POST("/:id/ready", hb.Session.MarkSessionReady)
		api.POST("/:id/start", hb.Session.StartSession)
		api.POST("/:id/complete", hb.Session.CompleteSession)
		api.POST("/:id/cancel", hb.Session.CancelSession)
		api.POST("/:id/no-show", hb.Session.MarkNoShow)
		api.PUT("/:id/forms", hb.Session.UpdateFormsStatus)
		api.POST("/:id/pay", hb.Payment.InitiatePayment)
	}
}

// RegisterPaymentRoutes registers the provider callback intake.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/payments")
	{
		api.POST("/callback", hb.Payment.PaymentCallback)
	}
}

// RegisterAdminRoutes sets up endpoints for operator tooling.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.JWTAuthAdminMiddleware())
		adminGroup.POST("/reconcile/bulk", hb.Admin.ReconcileBulk)
		adminGroup.POST("/reconcile/:id", hb.Admin.ReconcileSession)
		adminGroup.GET("/reconcile/stats", hb.Admin.ReconciliationStats)
		adminGroup.POST("/reminders/run", hb.Admin.RunReminderCheck)
		adminGroup.GET("/errors/stats", hb.Admin.ErrorStats)
		adminGroup.GET("/errors/rate", hb.Admin.ErrorRate)
		adminGroup.GET("/health", hb.Admin.Health)
	}
}

// RegisterHealthRoute registers a liveness endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Mindwell"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterSessionRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	RegisterHealthRoute(r)
}
