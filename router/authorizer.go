package router

import (
	"net/http"

	"feedback360/access"
	"feedback360/controllers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authorizer blocks survey-scoped routes when the token belongs to another
// survey. It runs after SurveyTokenRequired.
func Authorizer(gate *access.Gate, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, ok := controllers.GetSurveyAccess(c)
		if !ok {
			controllers.RespondError(c, "Missing X-Survey-Token", http.StatusUnauthorized)
			c.Abort()
			return
		}
		surveyID, ok := controllers.ParamRef(c, "surveyId", "srv")
		if !ok {
			c.Abort()
			return
		}
		if err := gate.Authorize(a, surveyID); err != nil {
			controllers.RespondAppError(c, log, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
