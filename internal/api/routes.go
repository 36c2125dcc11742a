package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.POST("/underwrite", handler.Underwrite)
		api.GET("/property-types/:type/defaults", handler.GetPropertyTypeDefaults)

		api.GET("/deals", handler.ListDeals)
		api.POST("/deals", handler.CreateDeal)
		api.GET("/deals/:id", handler.GetDeal)
		api.GET("/deals/:id/calculation", handler.GetCalculation)
		api.GET("/deals/:id/report", handler.GetReport)
		api.GET("/deals/:id/variance", handler.GetVariance)

		api.POST("/deals/:id/actuals/batch", handler.PostBatch)
		api.GET("/deals/:id/actuals/:year", handler.GetYear)
		api.GET("/deals/:id/actuals/:year/summary", handler.GetYearSummary)
		api.GET("/deals/:id/actuals/:year/:month", handler.GetMonth)
		api.PUT("/deals/:id/actuals/:year/:month", handler.PutMonth)
		api.DELETE("/deals/:id/actuals/:year/:month", handler.DeleteMonth)

		api.POST("/deals/:id/disposition", handler.AnalyzeDisposition)
		api.GET("/deals/:id/disposition/hold", handler.GetHoldScenario)
		api.GET("/deals/:id/disposition/sell", handler.GetSellScenario)
		api.GET("/deals/:id/disposition/refinance", handler.GetRefinanceScenario)
	}
}
