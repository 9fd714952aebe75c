package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"numerologist/cmd/context-service/internal/conf"
	"numerologist/cmd/context-service/internal/domain"
	"numerologist/pkg/health"
	"numerologist/pkg/middleware"
)

// ContextAPI HTTP 层依赖的服务接口
type ContextAPI interface {
	GetConversationContext(ctx context.Context, userID string) string
	InvalidateConversationContext(ctx context.Context, userID string)
	CountTokens(text, model string) (int, string)
	StartConversation(ctx context.Context, userID, roomID string) (*domain.Conversation, error)
	UpdateConversationContext(ctx context.Context, id, userID, topic, insights string, numbers []int) (*domain.Conversation, error)
	EndConversation(ctx context.Context, id, userID string) (*domain.Conversation, error)
	BuildSessionPrompt(ctx context.Context, userID, fullName string, birthDate *time.Time) string
}

// HTTPServer HTTP 服务器
type HTTPServer struct {
	engine  *gin.Engine
	server  *http.Server
	api     ContextAPI
	checker *health.HealthChecker
	logger  log.Logger
	log     *log.Helper
}

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(
	c *conf.ServerConfig,
	api ContextAPI,
	checker *health.HealthChecker,
	authHandler AuthHandler,
	rateLimit RateLimitHandler,
	logger log.Logger,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &HTTPServer{
		engine:  engine,
		api:     api,
		checker: checker,
		logger:  logger,
		log:     log.NewHelper(log.With(logger, "module", "http-server")),
	}
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", c.HTTPPort),
		Handler:      engine,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}

	s.registerMiddleware()
	s.registerRoutes(authHandler, rateLimit)

	return s
}

// registerMiddleware 注册中间件
func (s *HTTPServer) registerMiddleware() {
	// 恢复中间件（必须最先）
	s.engine.Use(RecoveryMiddleware(s.logger))
	s.engine.Use(TracingMiddleware())
	s.engine.Use(LoggingMiddleware(s.logger))
	s.engine.Use(MetricsMiddleware())
}

// registerRoutes 注册路由
func (s *HTTPServer) registerRoutes(authHandler AuthHandler, rateLimit RateLimitHandler) {
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/ready", s.readinessHandler)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api/v1")
	api.Use(gin.HandlerFunc(authHandler))
	if rateLimit != nil {
		api.Use(gin.HandlerFunc(rateLimit))
	}

	users := api.Group("/users")
	{
		users.GET("/:user_id/context", s.getContext)
		users.DELETE("/:user_id/context", s.invalidateContext)
	}

	api.POST("/tokens/count", s.countTokens)

	conversations := api.Group("/conversations")
	{
		conversations.POST("/start", s.startConversation)
		conversations.PUT("/:id/context", s.updateConversationContext)
		conversations.POST("/:id/end", s.endConversation)
	}

	api.POST("/sessions/prompt", s.buildSessionPrompt)
}

// Handler 返回底层 http.Handler
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Start 启动服务器，阻塞直到关闭
func (s *HTTPServer) Start() error {
	s.log.Infof("HTTP server listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.log.Info("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// conversationResponse 对话响应
type conversationResponse struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	DailyRoomID      string     `json:"daily_room_id"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	DurationSeconds  *int       `json:"duration_seconds,omitempty"`
	MainTopic        string     `json:"main_topic,omitempty"`
	KeyInsights      string     `json:"key_insights,omitempty"`
	NumbersDiscussed []int      `json:"numbers_discussed"`
}

func toConversationResponse(c *domain.Conversation) *conversationResponse {
	numbers := c.NumbersDiscussed
	if numbers == nil {
		numbers = []int{}
	}
	return &conversationResponse{
		ID:               c.ID,
		UserID:           c.UserID,
		DailyRoomID:      c.DailyRoomID,
		StartedAt:        c.StartedAt,
		EndedAt:          c.EndedAt,
		DurationSeconds:  c.DurationSeconds,
		MainTopic:        c.MainTopic,
		KeyInsights:      c.KeyInsights,
		NumbersDiscussed: numbers,
	}
}

// callerID 认证中间件写入的用户 ID
func callerID(c *gin.Context) string {
	userID, _ := middleware.GetUserID(c)
	return userID
}

// requireSelf 只允许访问自己的数据
func requireSelf(c *gin.Context) (string, bool) {
	userID := c.Param("user_id")
	if userID != callerID(c) {
		Error(c, domain.ErrUnauthorized)
		return "", false
	}
	return userID, true
}

// getContext 获取对话上下文
func (s *HTTPServer) getContext(c *gin.Context) {
	userID, ok := requireSelf(c)
	if !ok {
		return
	}

	text := s.api.GetConversationContext(c.Request.Context(), userID)
	tokens, model := s.api.CountTokens(text, "")

	Success(c, gin.H{
		"user_id": userID,
		"context": text,
		"tokens":  tokens,
		"model":   model,
	})
}

// invalidateContext 使上下文缓存失效
func (s *HTTPServer) invalidateContext(c *gin.Context) {
	userID, ok := requireSelf(c)
	if !ok {
		return
	}

	s.api.InvalidateConversationContext(c.Request.Context(), userID)
	NoContent(c)
}

// countTokens 统计 token
func (s *HTTPServer) countTokens(c *gin.Context) {
	var req struct {
		Text  string `json:"text"`
		Model string `json:"model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	tokens, model := s.api.CountTokens(req.Text, req.Model)
	Success(c, gin.H{
		"tokens": tokens,
		"model":  model,
	})
}

// startConversation 开始对话
func (s *HTTPServer) startConversation(c *gin.Context) {
	var req struct {
		DailyRoomID string `json:"daily_room_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	conversation, err := s.api.StartConversation(c.Request.Context(), callerID(c), req.DailyRoomID)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, toConversationResponse(conversation))
}

// updateConversationContext 记录对话主题、要点和数字
func (s *HTTPServer) updateConversationContext(c *gin.Context) {
	var req struct {
		MainTopic        string `json:"main_topic"`
		KeyInsights      string `json:"key_insights"`
		NumbersDiscussed []int  `json:"numbers_discussed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	conversation, err := s.api.UpdateConversationContext(
		c.Request.Context(),
		c.Param("id"),
		callerID(c),
		req.MainTopic,
		req.KeyInsights,
		req.NumbersDiscussed,
	)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, toConversationResponse(conversation))
}

// endConversation 结束对话
func (s *HTTPServer) endConversation(c *gin.Context) {
	conversation, err := s.api.EndConversation(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, toConversationResponse(conversation))
}

// buildSessionPrompt 构建会话系统提示词
func (s *HTTPServer) buildSessionPrompt(c *gin.Context) {
	var req struct {
		FullName  string `json:"full_name"`
		BirthDate string `json:"birth_date"` // YYYY-MM-DD
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	var birthDate *time.Time
	if req.BirthDate != "" {
		t, err := time.Parse("2006-01-02", req.BirthDate)
		if err != nil {
			BadRequest(c, "birth_date must be YYYY-MM-DD")
			return
		}
		birthDate = &t
	}

	prompt := s.api.BuildSessionPrompt(c.Request.Context(), callerID(c), req.FullName, birthDate)
	Success(c, gin.H{"system_prompt": prompt})
}
