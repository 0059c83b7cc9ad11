package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chestnut/internal/config"
	"chestnut/internal/handler"
	"chestnut/internal/lock"
	"chestnut/internal/middleware"
	"chestnut/internal/repository"
	"chestnut/internal/service"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
}

func Init(cfg *config.Config) (*Server, error) {
	// Setup GORM
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	log.Info("✅ Connected to database")

	// Movement guard: one lock serializes every card move. The redis
	// backend extends that across all running instances.
	var locker lock.Locker
	switch cfg.LockBackend {
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		locker = lock.NewRedisLocker(client)
		log.WithField("addr", cfg.RedisAddr).Info("✅ Movement guard on redis")
	default:
		locker = lock.NewLocalLocker()
		log.Info("✅ Movement guard in process memory")
	}
	log.WithFields(log.Fields{
		"wait":  cfg.MoveLockWait,
		"lease": cfg.MoveLockLease,
	}).Info("Movement guard budgets")

	// Setup Gin
	r := gin.Default()

	// Initialize repositories
	memberRepo := repository.NewMemberRepository(db)
	boardRepo := repository.NewBoardRepository(db)
	boardMemberRepo := repository.NewBoardMemberRepository(db)
	columnRepo := repository.NewColumnRepository(db)
	cardRepo := repository.NewCardRepository(db)
	workerRepo := repository.NewWorkerRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	// Card mutations go through the service; everything else is plain
	// persistence glue served straight from repositories.
	cardService := service.NewCardService(cardRepo, workerRepo, columnRepo, locker, cfg.MoveLockWait, cfg.MoveLockLease)

	// Initialize handlers
	memberHandler := handler.NewMemberHandler(memberRepo)
	boardHandler := handler.NewBoardHandler(boardRepo, boardMemberRepo, memberRepo)
	columnHandler := handler.NewColumnHandler(columnRepo, boardRepo)
	cardHandler := handler.NewCardHandler(cardService)
	commentHandler := handler.NewCommentHandler(commentRepo, cardRepo)

	// Public routes
	r.POST("/register", memberHandler.Register)
	r.POST("/login", memberHandler.Login)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Protected routes - require authentication
	authorized := r.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	{
		// Board routes
		authorized.POST("/boards", boardHandler.Create)
		authorized.GET("/boards", boardHandler.List)
		authorized.GET("/boards/:id", boardHandler.GetByID)
		authorized.PUT("/boards/:id", boardHandler.Update)
		authorized.DELETE("/boards/:id", boardHandler.Delete)
		authorized.POST("/boards/:id/invite", boardHandler.Invite)

		// Column routes
		authorized.POST("/boards/:id/columns", columnHandler.Create)
		authorized.GET("/boards/:id/columns", columnHandler.GetByBoardID)

		// Card routes
		authorized.POST("/columns/:id/cards", cardHandler.Create)
		authorized.GET("/columns/:id/cards", cardHandler.GetByColumnID)
		authorized.GET("/cards/:id", cardHandler.GetByID)
		authorized.PUT("/cards/:id", cardHandler.Update)
		authorized.DELETE("/cards/:id", cardHandler.Delete)
		authorized.POST("/cards/:id/move", cardHandler.Move)
		authorized.PUT("/cards/:id/workers", cardHandler.UpdateWorkers)

		// Comment routes
		authorized.POST("/cards/:id/comments", commentHandler.Create)
		authorized.GET("/cards/:id/comments", commentHandler.GetByCardID)
	}

	return &Server{
		Engine: r,
		DB:     db,
		Config: cfg,
	}, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		log.Infof("🚀 Server running on port %s", s.Config.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %s", err)
	}

	log.Info("✅ Server exited properly")
}
