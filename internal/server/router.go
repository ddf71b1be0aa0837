// Package server assembles the Gin router: sessions, CORS, public
// submission routes and the admin-gated record management routes.
package server

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"github.com/medibook-dev/medibook/internal/api"
	"github.com/medibook-dev/medibook/internal/auth"
	"github.com/medibook-dev/medibook/internal/store"
)

// New builds the full route tree.
func New(h *api.Handler, gate *auth.Handler, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	r.Use(sessions.Sessions("medibook_session", cookie.NewStore([]byte(sessionSecret))))

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	apiGroup := r.Group("/api")
	{
		// Public surface: submissions and the gateway callback.
		apiGroup.POST("/appointment", h.SubmitAppointment)
		apiGroup.POST("/feedback", h.SubmitFeedback)
		apiGroup.POST("/payment/verify", h.VerifyPayment)
		apiGroup.POST("/admin/login", gate.Login)
	}

	admin := r.Group("/api", auth.RequireAdmin())
	{
		admin.GET("/admin/logout", gate.Logout)

		admin.GET("/appointments", h.List(store.Appointments))
		admin.GET("/feedbacks", h.List(store.Feedbacks))
		admin.GET("/payments", h.List(store.Payments))

		admin.DELETE("/appointments", h.Clear(store.Appointments))
		admin.DELETE("/feedbacks", h.Clear(store.Feedbacks))

		admin.POST("/appointments/undo", h.Undo(store.Appointments))
		admin.POST("/feedbacks/undo", h.Undo(store.Feedbacks))

		admin.PATCH("/appointments/:id", h.UpdateAppointment)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	return r
}
