package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	awsclients "github.com/boogy/aws-cognito-warden/pkg/aws"
	"github.com/boogy/aws-cognito-warden/pkg/cache"
	"github.com/boogy/aws-cognito-warden/pkg/config"
	"github.com/boogy/aws-cognito-warden/pkg/database"
	"github.com/boogy/aws-cognito-warden/pkg/jwks"
	"github.com/boogy/aws-cognito-warden/pkg/middleware"
	"github.com/boogy/aws-cognito-warden/pkg/posts"
	"github.com/boogy/aws-cognito-warden/pkg/router"
	s3logger "github.com/boogy/aws-cognito-warden/pkg/s3logger"
	"github.com/boogy/aws-cognito-warden/pkg/utils"
	"github.com/boogy/aws-cognito-warden/pkg/validator"
	"github.com/boogy/aws-cognito-warden/pkg/version"
)

// Bootstrap contains all the initialized components needed by handlers
type Bootstrap struct {
	Config    *config.Config
	Clients   *awsclients.Clients
	Cache     *cache.SlotCache
	Validator validator.TokenValidatorInterface
	DB        *pgxpool.Pool
	Router    http.Handler
	S3Logger  *s3logger.S3Logger
	Logger    *slog.Logger
}

// NewBootstrap initializes all common components needed by Lambda handlers
func NewBootstrap() (*Bootstrap, error) {
	versionInfo := version.Get()

	// Initialize logger first, the S3 sink is attached once the config is known
	logger := initializeLogger(os.Stdout)
	logger.Info(
		fmt.Sprintf("Starting %s", versionInfo.BinName),
		slog.String("version", versionInfo.Version),
		slog.String("commit", versionInfo.Commit),
		slog.String("date", versionInfo.Date),
	)

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Error("Failed to load configuration", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return NewBootstrapFromConfig(context.Background(), cfg)
}

// NewBootstrapFromConfig wires every component for an already loaded configuration
func NewBootstrapFromConfig(ctx context.Context, cfg *config.Config) (*Bootstrap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	b := &Bootstrap{Config: cfg, Logger: slog.Default()}

	// AWS clients are only loaded for the backends that need them
	if cfg.NeedsAWS() {
		clients, err := awsclients.NewClients(ctx, cfg.Region)
		if err != nil {
			b.Logger.Error("Failed to initialize AWS clients", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to initialize AWS clients: %w", err)
		}
		b.Clients = clients
	}

	if cfg.LogToS3 && b.Clients != nil {
		b.S3Logger = s3logger.NewS3Logger(cfg, b.Clients.S3())
		b.Logger = initializeLogger(io.MultiWriter(os.Stdout, b.S3Logger))
	}

	slotCache, err := cache.NewCache(cfg, b.Clients)
	if err != nil {
		b.Logger.Error("Failed to initialize cache", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	b.Cache = slotCache

	// A cold container starts from the last persisted key set when there is one
	if err := slotCache.Warm(ctx); err != nil {
		b.Logger.Warn("Failed to warm key set cache", slog.String("error", err.Error()))
	}

	resolver := validator.NewKeyResolver(slotCache, jwks.NewHTTPFetcher(cfg.FetchTimeout))
	b.Validator = validator.NewTokenValidator(cfg, resolver)

	var postsHandler *posts.Handler
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Logger.Error("Failed to connect to database", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := posts.Migrate(ctx, pool); err != nil {
			pool.Close()
			b.Logger.Error("Failed to migrate database", slog.String("error", err.Error()))
			return nil, err
		}
		b.DB = pool
		postsHandler = posts.NewHandler(posts.NewService(posts.NewPostgresRepository(pool)))
	} else {
		b.Logger.Warn("No database configured, posts endpoints are disabled")
	}

	b.Router = router.New(router.Options{
		Authenticator:  middleware.NewAuthenticator(b.Validator),
		Posts:          postsHandler,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		CacheStats:     slotCache.GetStats,
	})

	b.Logger.Info("Bootstrap complete",
		slog.String("issuer", cfg.ExpectedIssuer()),
		slog.String("tokenUse", cfg.TokenUse),
		slog.String("cache", cfg.Cache.Type),
		slog.Bool("database", b.DB != nil),
		slog.Bool("logToS3", b.S3Logger != nil))

	return b, nil
}

// Cleanup handles cleanup operations for the bootstrap components
func (b *Bootstrap) Cleanup() {
	if b.Cache != nil {
		b.Cache.Wait()
	}

	if b.DB != nil {
		b.DB.Close()
	}

	if b.S3Logger != nil {
		if err := b.S3Logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs to S3: %v\n", err)
		}
	}
}

// initializeLogger sets up the global JSON logger writing to w
func initializeLogger(w io.Writer) *slog.Logger {
	programLevel := new(slog.LevelVar) // Default to Info

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		if level, err := utils.ParseLogLevel(logLevel); err == nil {
			programLevel.Set(level)
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: programLevel,
	}))
	slog.SetDefault(logger)

	return logger
}

// NewAwsApiGatewayFromBootstrap creates a new API Gateway handler using bootstrap
func NewAwsApiGatewayFromBootstrap(bootstrap *Bootstrap) *AwsApiGateway {
	return NewAwsApiGateway(bootstrap.Router)
}

// NewAwsLambdaUrlFromBootstrap creates a new Lambda URL handler using bootstrap
func NewAwsLambdaUrlFromBootstrap(bootstrap *Bootstrap) *AwsLambdaUrl {
	return NewAwsLambdaUrl(bootstrap.Router)
}

// NewAwsApplicationLoadBalancerFromBootstrap creates a new ALB handler using bootstrap
func NewAwsApplicationLoadBalancerFromBootstrap(bootstrap *Bootstrap) *AwsApplicationLoadBalancer {
	return NewAwsApplicationLoadBalancer(bootstrap.Router)
}
