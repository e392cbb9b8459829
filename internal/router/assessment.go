package router

import "github.com/gin-gonic/gin"

// assessmentRoutes relays the chat dialogue; the session id travels in the
// path or body and no state is kept server-side.
func (r *Router) assessmentRoutes(api *gin.RouterGroup) {
	assessment := api.Group("/assessment")
	{
		assessment.GET("/health", r.assessmentHandler.Health)
		assessment.POST("/start", r.assessmentHandler.Start)
		assessment.POST("/answer", r.assessmentHandler.Answer)
		assessment.POST("/:session/profile", r.assessmentHandler.SubmitProfile)
		assessment.GET("/:session/question", r.assessmentHandler.Question)
		assessment.GET("/:session/results", r.assessmentHandler.Results)
		assessment.GET("/:session/status", r.assessmentHandler.Status)
		assessment.DELETE("/:session", r.assessmentHandler.Delete)
	}
}
