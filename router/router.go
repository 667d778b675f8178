package router

import (
	"feedback360/config"
	"feedback360/controllers"
	"feedback360/db"
	"feedback360/middleware"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

// Initialize wires all routes and middlewares: public health, respondent
// routes behind the link token, operator routes behind the admin key.
func Initialize(r *gin.Engine, cfg config.Configuration, conn *gorm.DB, h *controllers.Handler) {
	r.Use(gin.Recovery())
	r.Use(RequestLogger(h.Log))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowOrigins))
	r.Use(middleware.SecureHeaders())
	r.Use(db.Bind(conn))

	r.GET("/health", controllers.Health)

	v1 := r.Group("/v1")

	// Respondent routes (link token)
	respondent := v1.Group("/surveys")
	respondent.Use(middleware.RateLimit(cfg.RateLimit.PerMinute))
	respondent.Use(h.SurveyTokenRequired())
	respondent.GET("/access", h.GetSurveyByToken)
	respondent.GET("/access/:linkToken", h.GetSurveyByToken)

	scoped := respondent.Group("/:surveyId")
	scoped.Use(Authorizer(h.Gate, h.Log))
	scoped.POST("/responses", h.CreateResponse)
	scoped.PATCH("/responses/:responseId", h.UpdateResponse)
	scoped.POST("/responses/:responseId/finalize", h.FinalizeResponse)

	// Operator routes
	admin := v1.Group("")
	admin.Use(Adminizer(cfg.Security.AdminKey))

	admin.GET("/surveys", h.ListSurveys)
	admin.POST("/surveys/initiate", h.InitiateSurvey)
	admin.POST("/surveys/:surveyId/revoke", h.RevokeSurvey)

	admin.POST("/questions", h.CreateQuestion)

	admin.GET("/batches", h.ListBatches)
	admin.GET("/batches/:batchId/progress", h.GetBatchProgress)

	admin.GET("/summaries", h.ListSummaries)
	admin.GET("/summaries/ready", h.ReadySummaries)
	admin.POST("/summaries", h.CreateSummary)
	admin.POST("/summaries/compute", h.ComputeSummary)
	admin.GET("/summaries/:summaryId", h.GetSummary)
	admin.PATCH("/summaries/:summaryId", h.PatchSummary)
	admin.DELETE("/summaries/:summaryId", h.DeleteSummary)

	h.Log.Info("routes initialized")
}
