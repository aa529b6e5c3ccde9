package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"ragchat/internal/ai"
	appsvc "ragchat/internal/app"
	"ragchat/internal/bootstrap"
	"ragchat/internal/cache"
	"ragchat/internal/platform/rabbitmq"
	"ragchat/internal/rag"
	"ragchat/internal/repository"
	"ragchat/internal/transport/http/handler"
	"ragchat/internal/transport/http/middleware"
	"ragchat/pkg/metrics"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	cfg := app.Config
	gin.SetMode(cfg.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	userRepo := repository.NewUserRepository(app.MySQL)
	conversationRepo := repository.NewConversationRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)
	conversationFileRepo := repository.NewConversationFileRepository(app.MySQL)
	kbRepo := repository.NewKnowledgeBaseRepository(app.MySQL)
	kbFileRepo := repository.NewKnowledgeBaseFileRepository(app.MySQL)
	modelConfigRepo := repository.NewModelConfigRepository(app.MySQL)

	authService := appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)

	aiClient := ai.NewOpenAICompatibleClient()
	embedder := ai.NewBoundEmbedder(aiClient, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})
	chunker := rag.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	ingestor := rag.NewIngestor(chunker, embedder, app.VectorIndex)
	retriever := rag.NewRetriever(embedder, app.VectorIndex, cfg.RAG.TopK)

	policy := appsvc.NewUploadPolicy(cfg.MaxFileSizeBytes(), cfg.Upload.MaxFilesPerKB, cfg.Upload.AllowedExtensions)
	fileService := appsvc.NewConversationFileService(conversationFileRepo, app.Files, ingestor, policy, app.Log)
	kbService := appsvc.NewKnowledgeBaseService(kbRepo, kbFileRepo, app.Files, ingestor, policy, app.Log)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	roundLogPublisher := rabbitmq.NewRoundLogPublisher(app.MQConn, cfg.RabbitMQ.RoundLogQueue)

	chatService := appsvc.NewChatService(
		conversationRepo,
		messageRepo,
		kbRepo,
		modelConfigRepo,
		fileService,
		retriever,
		historyCache,
		roundLogPublisher,
		aiClient,
		ai.ChatConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
		},
		cfg.RAG.MaxChatRounds,
		cfg.RAG.SummaryInterval,
		app.Log,
	)
	modelConfigService := appsvc.NewModelConfigService(modelConfigRepo)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(chatService)
	conversationHandler := handler.NewConversationHandler(chatService, fileService, app.LogService)
	kbHandler := handler.NewKnowledgeBaseHandler(kbService)
	modelConfigHandler := handler.NewModelConfigHandler(modelConfigService)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(cfg.Auth.JWTSecret), authHandler.Me)

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(cfg.Auth.JWTSecret))

	authed.POST("/chat", chatHandler.Chat)

	authed.GET("/conversations", conversationHandler.List)
	authed.GET("/conversations/:id/messages", conversationHandler.GetMessages)
	authed.GET("/conversations/:id/files", conversationHandler.ListFiles)
	authed.GET("/conversations/:id/log", conversationHandler.GetLog)
	authed.DELETE("/conversations/:id", conversationHandler.Delete)

	authed.POST("/knowledge-bases", kbHandler.Create)
	authed.GET("/knowledge-bases", kbHandler.List)
	authed.GET("/knowledge-bases/:id", kbHandler.Get)
	authed.DELETE("/knowledge-bases/:id", kbHandler.Delete)

	authed.GET("/model-config", modelConfigHandler.Get)
	authed.PUT("/model-config", modelConfigHandler.Set)
	authed.DELETE("/model-config", modelConfigHandler.Delete)

	return router
}
