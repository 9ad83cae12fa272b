package router

import (
	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/middleware"
	"app/internal/pgmq"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New builds the HTTP handler with every dependency wired in. The returned
// cleanup function closes the database connections and must be called on
// shutdown.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	ctx := context.Background()

	// 1. Load provider keys from Secret Manager outside local development so
	// that API secrets never have to live in the deployment environment.
	if cfg.Environment != "development" && cfg.GetGCPProjectID() != "" {
		sm, err := service.NewSecretManagerService(ctx, cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Secret Manager client: %v", err)
			return nil, nil, err
		}
		if err := sm.LoadProviderKeys(ctx, cfg); err != nil {
			logger.Fatal().Msgf("Failed to load provider keys: %v", err)
			return nil, nil, err
		}
		sm.Close()
	}

	// 2. Open DB connections. The API repositories run on a pgx pool; the
	// queue client and the DLQ repository stay on database/sql.
	dsn := buildDSN(cfg)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to create DB pool: %v", err)
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Fatal().Msgf("Failed to open DB connection: %v", err)
		return nil, nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	// 3. Initialize S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to load S3 config: %v", err)
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 4. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. Initialize the usage notifier. Without a GCP project there is no
	// Pub/Sub to publish to, so limit-reached events are dropped.
	var notifier service.UsageNotifier = service.NoopNotifier{}
	if cfg.GetGCPProjectID() != "" {
		publisher, err := pubsub.NewPublisher(ctx, cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
			return nil, nil, err
		}
		notifier = service.NewPubSubNotifier(publisher, cfg.UsageEventsTopic, logger)
	}

	// 6. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(pool)
	chatRepo := repository.NewChatRepo(pool)
	quizRepo := repository.NewQuizRepo(pool)
	courseRepo := repository.NewCourseRepo(pool)
	videoRepo := repository.NewVideoRepo(pool)
	usageRepo := repository.NewUsageRepo(pool)
	subscriptionRepo := repository.NewSubscriptionRepo(pool)
	dlqRepo := repository.NewDLQRepository(db)

	queue := pgmq.New(db)

	userSvc := service.NewUserService(userRepo)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, logger)
	usageSvc := service.NewUsageService(usageRepo, subscriptionSvc, notifier, nil, logger)
	stripeSvc := service.NewStripeService(cfg, userRepo, subscriptionSvc, usageSvc, logger)
	llmClient := service.NewPerplexityClient(cfg.PerplexityBaseURL, cfg.PerplexityAPIKey, cfg.PerplexityModel, logger)
	chatSvc := service.NewChatService(chatRepo, llmClient, logger)
	exportSvc := service.NewExportService(s3Client, cfg.S3Bucket, logger)
	videoSvc := service.NewVideoService(videoRepo, cfg.YouTubeAPIKey, queue, cfg.VideoFetchQueueName, logger)
	quizSvc := service.NewQuizService(quizRepo, logger)
	courseSvc := service.NewCourseService(courseRepo)
	dlqSvc := service.NewDLQService(dlqRepo)

	userHandler := handler.NewUserHandler(userSvc, validate)
	chatHandler := handler.NewChatHandler(chatSvc, usageSvc, validate, logger)
	exportHandler := handler.NewExportHandler(chatSvc, exportSvc, usageSvc, logger)
	usageHandler := handler.NewUsageHandler(usageSvc)
	quizHandler := handler.NewQuizHandler(quizSvc, validate, logger)
	courseHandler := handler.NewCourseHandler(courseSvc)
	videoHandler := handler.NewVideoHandler(videoSvc, validate)
	subscriptionHandler := handler.NewSubscriptionHandler(stripeSvc, subscriptionSvc, validate, logger)
	dlqHandler := handler.NewDLQHandler(dlqSvc, logger)

	// 7. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	limiter := middleware.NewRateLimiter(10, 20)
	limiter.StartJanitor(ctx)
	rateLimit := middleware.RateLimitMiddleware(limiter)

	// 8. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	chatHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	exportHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	usageHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	quizHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	courseHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	videoHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	subscriptionHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	dlqHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", rateLimit(apiV1Mux)))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Redirect root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/healthz" {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	// 9. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	cleanup := func() {
		pool.Close()
		db.Close()
	}

	return middleware.LoggerMiddleware(c.Handler(mux)), cleanup, nil
}

// buildDSN assembles a keyword/value connection string from the discrete
// config fields. SSL is only disabled for local development.
func buildDSN(cfg *config.Config) string {
	sslMode := "require"
	if cfg.Environment == "development" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, sslMode)
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
