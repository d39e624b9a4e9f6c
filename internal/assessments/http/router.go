package http

import "github.com/gin-gonic/gin"

// Register mounts the assessment routes on an authenticated group.
func Register(g gin.IRouter, h *Handler) {
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.POST("/:id/responses", h.submitResponses)
	g.GET("/:id/progress", h.getProgress)
	g.GET("/:id/report", h.getReport)
	g.POST("/:id/checkout", h.createCheckout)
}
