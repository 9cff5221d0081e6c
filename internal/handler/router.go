package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"esagent/internal/middleware"
)

type RouterDeps struct {
	Ask   *AskHandler
	Cache *CacheHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/ask", middleware.RateLimit(time.Second), deps.Ask.Ask)
	if deps.Cache != nil {
		api.GET("/cache/recent", deps.Cache.ListRecent)
	}
}
