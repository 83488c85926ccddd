package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "private_chat_service/cmd/chat_service/docs" // 引入生成的 Swagger 文档
	"private_chat_service/internal/chat/app"
	"private_chat_service/internal/chat/handlers"
	"private_chat_service/internal/chat/repository"
	"private_chat_service/internal/chat/router"
	"private_chat_service/pkg/config"
	"private_chat_service/pkg/database"
	"private_chat_service/pkg/logger"
	testtool "private_chat_service/pkg/test_tool"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	defer logger.Log.Sync()
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Mongo (訊息)
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.MongoDB.User, cfg.MongoDB.Password, cfg.MongoDB.Host, cfg.MongoDB.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    uri,
			RetryCount:    cfg.MongoDB.RetryCount,
			RetryInterval: time.Duration(cfg.MongoDB.RetryInterval),
		},
		cfg.MongoDB.Database)
	if err != nil {
		logger.Log.Fatal("Unable to connect to mongoDB database after retries", zap.String("host", cfg.MongoDB.Host), zap.Error(err))
	}
	defer mongo.Close(context.Background())

	// 2. PostgreSQL (使用者 / 封鎖 / 推播 token)
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database)
	pg, err := database.NewPGConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("Unable to connect to postgreSQL database after retries", zap.String("host", cfg.PostgreSQL.Host), zap.Error(err))
	}

	// 3. Redis (sequence number)
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = database.NewRedisStandalone(cfg.Redis.Addr, cfg.Redis.RedisDB)
	} else {
		masterName, sentinel := config.GetRedisSetting()
		redisClient, err = database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	}
	if err != nil {
		logger.Log.Fatal("connect redis err", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. MinIO (附件)
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:      cfg.MinIO.Endpoint,
		User:          cfg.MinIO.User,
		Password:      cfg.MinIO.Password,
		BucketName:    cfg.MinIO.Bucket,
		UseSSL:        cfg.MinIO.UseSSL,
		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal("connect minIO err", zap.String("endpoint", cfg.MinIO.Endpoint), zap.Error(err))
	}

	// 5. 初始化 Repository
	msgRepo := repository.NewMongoChatMessageRepository(mongo.Database)
	if err := msgRepo.EnsureIndexes(ctx); err != nil {
		logger.Log.Fatal("create message indexes err", zap.Error(err))
	}
	userRepo := repository.NewUserRepository(pg)
	if err := userRepo.AutoMigrate(); err != nil {
		logger.Log.Fatal("migrate user tables err", zap.Error(err))
	}
	seqRepo := repository.NewRedisSequenceRepository(redisClient)
	attachmentRepo := repository.NewMinIOAttachmentRepository(minioClient, cfg.MinIO.PublicBaseURL)
	pushRepo := repository.NewFCMPushRepository(cfg.Push.Endpoint, cfg.Push.ProjectID, cfg.Push.AccessToken)

	opts := []app.MessageOption{
		app.WithUpdateRetries(cfg.Message.UpdateRetries),
		app.WithAttachments(attachmentRepo),
	}
	// kafka journal 可選
	if cfg.Kafka.Enabled {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal("connect kafka err", zap.Strings("brokers", cfg.Kafka.Brokers), zap.Error(err))
		}
		journal := repository.NewKafkaJournalRepository(writer)
		defer journal.Close()
		opts = append(opts, app.WithJournal(journal))
	}

	// 6. 初始化 UseCases
	presence := app.NewPresenceRegistry()
	emitter := app.NewEventEmitter(presence)
	notifier := app.NewNotificationDispatcher(pushRepo, userRepo, cfg.Push.Timeout, cfg.Push.ClickAction)
	messageUC := app.NewMessageUseCase(msgRepo, userRepo, seqRepo, presence, emitter, notifier, opts...)
	conversationUC := app.NewConversationUseCase(msgRepo, userRepo)
	userUC := app.NewUserUseCase(userRepo)

	// 7. gRPC health
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(config.EnvConfig.ChatService, healthpb.HealthCheckResponse_SERVING)
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			logger.Log.Fatal("grpc listen err", zap.String("port", cfg.GRPCPort), zap.Error(err))
		}
		go func() {
			logger.Log.Info("gRPC health listening", zap.String("port", cfg.GRPCPort))
			if err := grpcServer.Serve(lis); err != nil {
				logger.Log.Error("grpc serve err", zap.Error(err))
			}
		}()
	}

	testtool.StartPprof()

	// 8. 啟動 Fiber
	r := fiber.New(fiber.Config{
		BodyLimit: int(max(cfg.MinIO.MaxUploadMB, 10)<<20) + 1<<20,
	})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		logger.Log.Fatal("Failed to open access log file", zap.Error(err))
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file, // 将日志输出到文件
	}))

	// 注册路由
	router.RegisterRoutes(r,
		handlers.NewMessageHandler(messageUC, conversationUC, cfg.MinIO.MaxUploadMB),
		handlers.NewUserHandler(userUC),
		app.NewChatWebsocketHandler(messageUC, presence, emitter, cfg.Message.SendQueueSize),
	)

	go func() {
		port := ":" + cfg.Port
		logger.Log.Info("Chat Service listening", zap.String("port", port))
		if err := r.Listen(port); err != nil {
			logger.Log.Error("Failed to start Fiber", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("shutting down chat service")

	healthServer.SetServingStatus(config.EnvConfig.ChatService, healthpb.HealthCheckResponse_NOT_SERVING)
	if err := r.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Log.Error("fiber shutdown err", zap.Error(err))
	}
	presence.Close()
	messageUC.Shutdown()
	grpcServer.GracefulStop()
}
