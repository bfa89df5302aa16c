package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/himalthapa1/EduConnect/internal/auth"
	"github.com/himalthapa1/EduConnect/internal/metrics"
	"github.com/himalthapa1/EduConnect/internal/mw"
	"github.com/himalthapa1/EduConnect/internal/ws"
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
// 返回的限速器需要在停服时 Stop。
func SetupRouter(origins mw.OriginPolicy, verifier *auth.Verifier, h *Handler, wsSrv *ws.Server) (*gin.Engine, *mw.RL) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	// 控制单个 IP+路由的速率。
	rl, limit := mw.RateLimit(rate.Every(time.Second/20), 40)
	r.Use(limit)
	r.Use(mw.CORS(origins))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", metrics.Handler())
	r.GET("/ws", wsSrv.Serve)

	// 需要 Bearer Token 的业务接口。
	api := r.Group("/api/v1")
	api.Use(auth.AuthMiddleware(verifier))

	api.GET("/groups/:id/messages", h.GroupMessages)
	api.POST("/groups/:id/messages", h.PostGroupMessage)
	api.GET("/sessions/:id/messages", h.SessionMessages)
	api.POST("/sessions/:id/messages", h.PostSessionMessage)
	api.GET("/messages/:id/poll", h.PollResults)
	api.POST("/messages/:id/votes", h.Vote)
	api.DELETE("/messages/:id", h.DeleteMessage)
	api.GET("/rooms/:kind/:id/online", h.RoomOnline)

	return r, rl
}
