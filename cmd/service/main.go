package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"store-api/config"
	_ "store-api/docs"
	"store-api/internal/handlers"
	"store-api/internal/hashing"
	"store-api/internal/middleware"
	"store-api/internal/payment"
	"store-api/internal/producer"
	"store-api/internal/repository"
	"store-api/internal/router"
	"store-api/internal/service"
	"store-api/internal/session"
	"store-api/internal/token"
	"store-api/pkg/database"
	"store-api/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// @Title Store API
// @Version 1.0
// @Description Корзина, оплата и заказы интернет-магазина
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	if !isDev {
		gin.SetMode(gin.ReleaseMode)
	}

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	healthDeps := map[string]handlers.Pinger{"postgres": database.Pinger{DB: db}}

	// Сессии в redis опциональны: без них остаётся только Bearer
	var sessions service.SessionStore
	if cfg.Redis.Enabled {
		store, err := session.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("Не удалось подключиться к redis", zap.Error(err))
		}
		defer store.Close()
		sessions = store
		healthDeps["redis"] = store
	}

	// Шина событий опциональна (nil отключает публикацию)
	var events service.EventBus
	if len(cfg.Kafka.Brokers) > 0 {
		p := producer.NewOrderProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders)
		defer p.Close()
		events = p
		log.Info("Публикация событий заказов включена", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.TopicOrders))
	}

	stripeProvider := payment.NewStripeProvider(payment.StripeConfig{
		SecretKey: cfg.Payment.StripeSecretKey,
		Timeout:   cfg.Payment.Timeout,
	}, log)

	tokens := token.NewHSProvider(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
	authSvc := service.NewAuthService(repos.Users, hashing.NewBcrypt(0), tokens, sessions, cfg.JWT.AccessExp, cfg.Session.TTL, log)
	cartSvc := service.NewCartService(repos)
	paymentSvc := service.NewPaymentService(repos, stripeProvider, cfg.Payment.Currency, log)
	checkoutSvc := service.NewCheckoutService(repos, stripeProvider, events, cfg.Payment.Currency, log)
	orderSvc := service.NewOrderService(repos, events, log)
	productSvc := service.NewProductService(repos, log)

	r := router.Router(router.Handlers{
		Auth:     handlers.NewAuthHandler(authSvc, cfg.Session.CookieName, cfg.Session.Secure, log),
		Cart:     handlers.NewCartHandler(cartSvc, cfg.Payment.Currency, log),
		Payment:  handlers.NewPaymentHandler(paymentSvc, log),
		Order:    handlers.NewOrderHandler(checkoutSvc, orderSvc, log),
		Product:  handlers.NewProductHandler(productSvc, log),
		Health:   handlers.NewHealthHandler(healthDeps, log),
		AuthGate: middleware.AuthRequired(authSvc, cfg.Session.CookieName, log),
	}, router.Options{
		CORSOrigins: cfg.CORSOrigins,
		Swagger:     isDev,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var (
		grpcServer *grpc.Server
		healthSrv  *health.Server
	)
	if cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", cfg.GRPCPort)
		if err != nil {
			log.Fatal("failed to listen", zap.Error(err))
		}

		grpcServer = grpc.NewServer()

		healthSrv = health.NewServer()
		healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
		grpc_health_v1.RegisterHealthServer(grpcServer, healthSrv)

		reflection.Register(grpcServer)

		go func() {
			log.Info("Starting gRPC health server", zap.String("addr", cfg.GRPCPort))
			if err := grpcServer.Serve(lis); err != nil {
				log.Error("gRPC server failed", zap.Error(err))
			}
		}()
	}

	go func() {
		log.Info("Starting Store HTTP server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down Store server...")
	if healthSrv != nil {
		healthSrv.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	log.Info("Store server stopped gracefully")
}
