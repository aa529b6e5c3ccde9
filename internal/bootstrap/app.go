package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ragchat/internal/app"
	"ragchat/internal/config"
	"ragchat/internal/model"
	"ragchat/internal/pkg/filestore"
	mysqlClient "ragchat/internal/platform/mysql"
	rabbitmqClient "ragchat/internal/platform/rabbitmq"
	redisClient "ragchat/internal/platform/redis"
	"ragchat/internal/repository"
	"ragchat/internal/vector"
	"ragchat/internal/worker"
	"ragchat/pkg/logger"
)

type App struct {
	Config         *config.Config
	Log            *logger.Logger
	MySQL          *gorm.DB
	Redis          *redis.Client
	MQConn         *amqp.Connection
	VectorIndex    vector.Index
	Files          *filestore.Store
	LogService     *app.LogService
	RoundLogWorker *worker.RoundLogWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
		&model.ConversationFile{},
		&model.KnowledgeBase{},
		&model.KnowledgeBaseFile{},
		&model.ModelConfig{},
		&model.ConversationLogSession{},
		&model.ConversationLogRound{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	index, err := vector.NewQdrantIndex(ctx, cfg.Qdrant.Host, cfg.Qdrant.GRPCPort, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize)
	if err != nil {
		return nil, fmt.Errorf("init vector index failed: %w", err)
	}

	files, err := filestore.New(cfg.Upload.Dir)
	if err != nil {
		return nil, fmt.Errorf("init file store failed: %w", err)
	}

	logRepo := repository.NewConversationLogRepository(mysqlDB)
	logService := app.NewLogService(logRepo, log)
	roundLogWorker := worker.NewRoundLogWorker(mqConn, logService, cfg.RabbitMQ.RoundLogQueue, log)
	if err := roundLogWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start round log worker failed: %w", err)
	}

	return &App{
		Config:         cfg,
		Log:            log,
		MySQL:          mysqlDB,
		Redis:          redisCli,
		MQConn:         mqConn,
		VectorIndex:    index,
		Files:          files,
		LogService:     logService,
		RoundLogWorker: roundLogWorker,
		StartedAt:      time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.RoundLogWorker != nil {
		a.RoundLogWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if closer, ok := a.VectorIndex.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	if a.Log != nil {
		_ = a.Log.Sync()
	}
	return closeErr
}
