package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"tradechat/internal/adapter/api"
	"tradechat/internal/adapter/api/handler"
	apimiddleware "tradechat/internal/adapter/api/middleware"
	"tradechat/internal/adapter/api/router"
	"tradechat/internal/adapter/repository"
	"tradechat/internal/domain/entity"
	domainrepo "tradechat/internal/domain/repository"
	"tradechat/internal/domain/service"
	"tradechat/internal/infrastructure/firebase"
	"tradechat/internal/infrastructure/lock"
	"tradechat/internal/infrastructure/pubsub"
	"tradechat/internal/infrastructure/ratelimit"
	"tradechat/internal/infrastructure/websocket"
	"tradechat/internal/usecase"
	"tradechat/pkg/config"
	"tradechat/pkg/logger"
)

type stores struct {
	users         domainrepo.UserRepository
	athletes      domainrepo.AthleteCatalog
	accounts      domainrepo.AccountRepository
	trades        domainrepo.TradeRepository
	conversations domainrepo.ConversationRepository
	notifications domainrepo.NotificationRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.LogLevel, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.HealthCheck{}
	var (
		repos    stores
		verifier apimiddleware.TokenVerifier
		issuer   handler.TokenIssuer
	)

	switch cfg.StoreBackend {
	case config.BackendFirestore:
		app, err := firebase.NewApp(ctx, cfg.FirebaseProject, cfg.FirebaseServiceAccountJSON, cfg.FirebaseServiceAccountPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		firestoreClient, err := app.Firestore(ctx)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		authClient, err := app.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)

		repos = stores{
			users:         repository.NewFirestoreUserRepository(firestoreClient),
			athletes:      repository.NewFirestoreAthleteCatalog(firestoreClient),
			accounts:      repository.NewFirestoreAccountRepository(firestoreClient),
			trades:        repository.NewFirestoreTradeRepository(firestoreClient),
			conversations: repository.NewFirestoreConversationRepository(firestoreClient),
			notifications: repository.NewFirestoreNotificationRepository(firestoreClient),
		}

	default:
		db, err := repository.OpenBadger(cfg.BadgerPath)
		if err != nil {
			log.Fatalf("Failed to open store: %v", err)
		}
		defer db.Close()
		checks["store"] = func(context.Context) error {
			if db.IsClosed() {
				return badger.ErrDBClosed
			}
			return nil
		}

		repos = stores{
			users:         repository.NewBadgerUserRepository(db),
			athletes:      repository.NewBadgerAthleteCatalog(db),
			accounts:      repository.NewBadgerAccountRepository(db),
			trades:        repository.NewBadgerTradeRepository(db),
			conversations: repository.NewBadgerConversationRepository(db),
			notifications: repository.NewBadgerNotificationRepository(db),
		}

		devTokens := firebase.NewDevTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)
		verifier, issuer = devTokens, devTokens
	}

	if cfg.SeedFile != "" {
		if err := repository.Seed(ctx, cfg.SeedFile, repos.users, repos.accounts, repos.athletes); err != nil {
			log.Fatalf("Failed to seed store: %v", err)
		}
		logger.Info("Seeded store from %s", cfg.SeedFile)
	}

	locks := lock.NewKeyedMutex()
	limiter := ratelimit.NewRateLimiter()
	limiter.StartCleanupRoutine(5*time.Minute, ctx.Done())
	portfolio := service.NewPortfolioService(repos.accounts, repos.athletes)

	var conversationUseCase *usecase.ConversationUseCase
	wsManager := websocket.NewManager(websocket.AuthorizerFunc(func(ctx context.Context, userID, conversationID string) error {
		return conversationUseCase.CanSubscribe(ctx, userID, conversationID)
	}))
	wsManager.Start(ctx)

	var publisher websocket.Publisher = wsManager
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}

		relay := pubsub.NewRedisRelay(redisClient, cfg.RedisChannel, wsManager)
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Realtime relay stopped: %v", err)
			}
		}()
		publisher = relay
	}
	bus := websocket.NewBus(publisher)

	notificationUseCase := usecase.NewNotificationUseCase(
		repos.notifications,
		repos.users,
		bus,
		locks,
		limiter,
		cfg.NotificationDedupWindow,
	)
	conversationUseCase = usecase.NewConversationUseCase(
		repos.conversations,
		repos.users,
		notificationUseCase,
		bus,
		locks,
		limiter,
		cfg.RequestTimeout,
		cfg.ConversationPreviewSize,
	)
	settlementUseCase := usecase.NewSettlementUseCase(
		repos.conversations,
		repos.accounts,
		repos.trades,
		repos.athletes,
		portfolio,
		conversationUseCase,
		notificationUseCase,
		bus,
		locks,
		cfg.RequestTimeout,
	)

	reportPendingTrades(ctx, repos.trades)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			event := logger.Get().Info()
			if v.Error != nil {
				event = logger.Get().Error().Err(v.Error)
			}
			event.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	handlers := router.Handlers{
		Conversation: handler.NewConversationHandler(conversationUseCase, settlementUseCase),
		Notification: handler.NewNotificationHandler(notificationUseCase),
		WebSocket:    handler.NewWebSocketHandler(wsManager, cfg.WSAllowedOrigins, cfg.WSSendBuffer),
		Health:       handler.NewHealthHandler(checks),
	}
	if issuer != nil {
		handlers.DevToken = handler.NewDevTokenHandler(issuer, repos.users)
	}
	router.Setup(e, handlers, apimiddleware.NewAuthMiddleware(verifier), limiter, cfg.Environment)

	go func() {
		logger.Info("Starting server on port %s (%s store)", cfg.ServerPort, cfg.StoreBackend)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}

// reportPendingTrades logs trades a previous process left between their
// first write and completion. Their account effects need manual review.
func reportPendingTrades(ctx context.Context, trades domainrepo.TradeRepository) {
	pending, err := trades.ListByStatus(ctx, entity.TradePending)
	if err != nil {
		logger.Warn("Could not list pending trades: %v", err)
		return
	}
	for _, t := range pending {
		logger.LogTradeError(t.ID, "startup-audit", errors.New("trade left pending by a previous run"))
	}
}
