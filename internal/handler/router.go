package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StayMap-App/internal/infrastructure/logging"
)

// NewRouter APIルーティングを設定したginエンジンを作成
func NewRouter(h *DiscoveryHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/categories", h.GetCategories)

		api.GET("/properties/visible", h.GetVisibleProperties)
		api.POST("/properties/retry", h.RetrySnapshot)

		api.GET("/wishlist", h.GetWishlist)
		api.POST("/wishlist/:property_id/toggle", h.ToggleWishlist)

		api.GET("/places/autocomplete", h.Autocomplete)
		api.GET("/places/:id", h.GetPlace)

		api.GET("/preferences/view-mode", h.GetViewMode)
		api.PUT("/preferences/view-mode", h.PutViewMode)
	}
	return router
}

// RequestIDHeader リクエストIDのヘッダー
const RequestIDHeader = "X-Request-ID"

// requestLogger zerologでアクセスログを出力するミドルウェア。リクエストIDがなければ採番する
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)
		c.Next()

		logging.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
