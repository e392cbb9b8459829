package router

import "github.com/gin-gonic/gin"

func (r *Router) contactRoutes(api *gin.RouterGroup) {
	api.POST("/contact", r.contactHandler.Submit)
}
