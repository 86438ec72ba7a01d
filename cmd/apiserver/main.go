package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"

	"pronet/internal/config"
	"pronet/internal/handlers/apiserver"
	appKafka "pronet/internal/kafka"
	"pronet/internal/middleware"
	appRedis "pronet/internal/redis"
	"pronet/internal/services"
	"pronet/internal/storage"
)

const uploadsBaseURL = "/uploads"

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	// 2. 初始化数据库连接
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("无法初始化数据库: %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("数据库表迁移失败: %v", err)
	}
	log.Println("数据库连接与迁移完成。")

	// 3. 初始化 Redis 与 Token 黑名单
	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("无法连接到 Redis: %v", err)
	}
	tokenBlacklist := appRedis.NewRedisTokenBlacklist(redisClient)

	// 4. 初始化 Repositories
	userRepo := storage.NewGormUserRepository(db)
	profileRepo := storage.NewGormProfileRepository(db)
	contactRepo := storage.NewGormContactInfoRepository(db)
	requestRepo := storage.NewGormConnectionRequestRepository(db)

	// 5. 初始化 Kafka 事件生产者
	producer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("无法创建 Kafka 生产者: %v", err)
	}
	defer producer.Close()

	// 6. 初始化文件存储
	fileStore, err := storage.NewLocalFileStore(cfg.Storage, uploadsBaseURL)
	if err != nil {
		log.Fatalf("无法初始化本地文件存储: %v", err)
	}

	// 7. 初始化 Services
	authService := services.NewAuthService(userRepo, cfg.Auth)
	userService := services.NewUserService(userRepo, profileRepo, contactRepo)
	connectionService := services.NewConnectionService(userRepo, requestRepo, contactRepo, producer, cfg.Kafka)

	// 8. 初始化 Handlers
	authHandler := apiserver.NewAuthHandler(authService, tokenBlacklist)
	userHandler := apiserver.NewUserHandler(userService)
	connectionHandler := apiserver.NewConnectionHandler(connectionService)
	uploadHandler := apiserver.NewUploadHandler(fileStore, userService, cfg.Storage)

	// 9. 设置 HTTP 路由
	r := mux.NewRouter()

	// 认证路由（公开）
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	// 受保护的 API 子路由
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.Auth(cfg.Auth.JWTSecretKey, tokenBlacklist))

	apiRouter.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	// 用户路由
	apiRouter.HandleFunc("/users/me", userHandler.GetMeHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/me/profile", userHandler.UpdateProfileHandler).Methods(http.MethodPut)
	apiRouter.HandleFunc("/users/me/contact-info", userHandler.UpdateContactInfoHandler).Methods(http.MethodPut)
	apiRouter.HandleFunc("/users", userHandler.ListProfessionalsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userID}", userHandler.GetUserCardHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userID}/connection-status", connectionHandler.GetStatusHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userID}/contact-info", connectionHandler.GetContactInfoHandler).Methods(http.MethodGet)

	// 连接请求路由
	apiRouter.HandleFunc("/connection-requests", connectionHandler.SendRequestHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/connection-requests", connectionHandler.ListRequestsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/connection-requests/{requestID}/respond", connectionHandler.RespondHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/connections", connectionHandler.ListConnectionsHandler).Methods(http.MethodGet)

	// 头像上传与静态文件服务
	apiRouter.HandleFunc("/upload", uploadHandler.UploadProfileImageHandler).Methods(http.MethodPost)
	staticPath := strings.TrimSuffix(uploadsBaseURL, "/") + "/"
	r.PathPrefix(staticPath).Handler(http.StripPrefix(staticPath, http.FileServer(http.Dir(cfg.Storage.LocalPath))))

	// 10. CORS
	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}
	corsHandler := handlers.CORS(corsOptions...)(r)

	// 11. 启动 HTTP 服务器并实现优雅关闭
	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        corsHandler,
		ReadTimeout:    cfg.APIServer.ReadTimeout,
		WriteTimeout:   cfg.APIServer.WriteTimeout,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: cfg.APIServer.MaxHeaderBytes,
	}

	go func() {
		log.Printf("%s API 服务器启动于 %s", cfg.AppName, serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API 服务器启动失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("收到关闭信号，正在关闭 API 服务器...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("API 服务器强制关闭: %v", err)
	}
	log.Println("API 服务器已成功关闭")
}
