package handler

import (
	"net/http"

	"github.com/SergeiKhy/shortlink/internal/service"
	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Records int    `json:"records"`
}

// HealthCheck GET /api/v1/health
func HealthCheck(links service.LinkService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: "shortlink",
			Records: links.Count(),
		})
	}
}
