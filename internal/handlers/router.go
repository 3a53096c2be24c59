package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"flipball-backend/internal/logging"
	"flipball-backend/internal/middleware"
	"flipball-backend/internal/monitoring"
	"flipball-backend/internal/services"
)

type RouterConfig struct {
	Service   *services.Service
	WebSocket *WebSocketHandler
	Logger    *logrus.Logger
	Metrics   *monitoring.Metrics
	Gatherer  prometheus.Gatherer
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	userHandler := NewUserHandler(cfg.Service.Accounts, cfg.Logger)
	gameHandler := NewGameHandler(cfg.Service.Accounts, cfg.Service.Game, cfg.Logger)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.RequestLogger(cfg.Logger),
		middleware.RequestMetrics(cfg.Metrics),
		middleware.CORS(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	router.POST("/signup", userHandler.Signup)
	router.POST("/login", userHandler.Login)
	router.GET("/logout", userHandler.Logout)
	router.GET("/profile", userHandler.GetProfile)

	router.GET("/balance", gameHandler.GetBalance)
	router.POST("/update-balance", gameHandler.UpdateBalance)
	router.POST("/addFunds", gameHandler.AddFunds)
	router.POST("/play", gameHandler.Play)
	router.GET("/history", gameHandler.GetHistory)

	if cfg.WebSocket != nil {
		router.GET("/ws", cfg.WebSocket.HandleWebSocket)
	}

	router.NoRoute(func(c *gin.Context) {
		fail(c, http.StatusNotFound, "Route not found")
	})

	return router
}
