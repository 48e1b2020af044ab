package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/party-market/internal/config"
	"github.com/wfunc/party-market/internal/middleware"
	"github.com/wfunc/party-market/internal/service"
	ws "github.com/wfunc/party-market/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	services       *service.Services
	authHandler    *AuthHandler
	roomHandler    *RoomHandler
	orderHandler   *OrderHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, cfg *config.Config, hub *ws.Hub, log *zap.Logger) *Router {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	services := service.NewServices(db, cfg, hub, log)

	router := &Router{
		engine:         engine,
		db:             db,
		services:       services,
		authHandler:    NewAuthHandler(services.Auth),
		roomHandler:    NewRoomHandler(services.Game),
		orderHandler:   NewOrderHandler(services.Game),
		wsHandler:      NewWebSocketHandler(hub, &cfg.WebSocket, log),
		authMiddleware: middleware.NewAuthMiddleware(services.Auth),
		log:            log,
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
// 玩家端不需要账号：加入、下单、查状态全部开放；
// 创建和推进房间是主持人动作，需要登录。
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)
	registerSwaggerRoutes(r.engine)

	v1 := r.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/refresh", r.authHandler.Refresh)
		}

		rooms := v1.Group("/rooms")
		{
			rooms.GET("", r.roomHandler.List)
			rooms.POST("/join", r.roomHandler.Join)
			rooms.GET("/:id", r.roomHandler.State)
			rooms.DELETE("/:id/players/:player_id", r.roomHandler.Leave)
			rooms.POST("/:id/orders", r.orderHandler.Submit)
			rooms.DELETE("/:id/orders/:order_id", r.orderHandler.Cancel)

			// 主持人专属
			hostOnly := rooms.Group("")
			hostOnly.Use(r.authMiddleware.RequireHost())
			{
				hostOnly.POST("", r.roomHandler.Create)
				hostOnly.POST("/:id/start", r.roomHandler.Start)
				hostOnly.POST("/:id/advance", r.roomHandler.Advance)
			}
		}

		v1.GET("/players/:player_id/orders", r.orderHandler.History)
	}

	r.engine.GET("/ws/rooms/:id", r.wsHandler.RoomWebSocket)

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Services 获取服务集合
func (r *Router) Services() *service.Services {
	return r.services
}
