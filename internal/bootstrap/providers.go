package bootstrap

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/authserver"
	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/config"
	apphttp "gitlab.com/timkado/api/daisi-token-relay/internal/adapters/http"
	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/logger"
	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/middleware"
	appredis "gitlab.com/timkado/api/daisi-token-relay/internal/adapters/redis"
	"gitlab.com/timkado/api/daisi-token-relay/internal/adapters/verifier"
	"gitlab.com/timkado/api/daisi-token-relay/internal/application"
	"gitlab.com/timkado/api/daisi-token-relay/internal/domain"
	"gitlab.com/timkado/api/daisi-token-relay/pkg/crypto"
)

// APIKeyMiddleware is a distinct type so Wire can tell this middleware
// apart from other func(http.Handler) http.Handler values.
type APIKeyMiddleware func(http.Handler) http.Handler

// InitialZapLoggerProvider provides a basic *zap.Logger instance, primarily for config initialization.
// It returns the logger, a cleanup function (for syncing), and an error if creation fails.
func InitialZapLoggerProvider() (*zap.Logger, func(), error) {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger, err = zap.NewDevelopment()
		if err != nil {
			zapLogger = zap.NewExample()
			fmt.Fprintf(os.Stderr, "Failed to create initial zap logger (production and development failed, falling back to example): %v\n", err)
		}
	}

	cleanup := func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync initial zap logger: %v\n", syncErr)
		}
	}
	return zapLogger, cleanup, nil
}

// App bundles everything Run needs. It is constructed by Wire.
type App struct {
	configProvider   config.Provider
	logger           domain.Logger
	httpServeMux     *http.ServeMux
	httpServer       *http.Server
	redisClient      *redis.Client // nil when the shared cache is disabled
	tokenHandler     http.HandlerFunc
	apiKeyMiddleware APIKeyMiddleware
}

// NewApp is the constructor for App, also for Wire.
func NewApp(
	cfgProvider config.Provider,
	appLogger domain.Logger,
	mux *http.ServeMux,
	server *http.Server,
	redisClient *redis.Client,
	tokenHandler http.HandlerFunc,
	apiKeyMid APIKeyMiddleware,
) (*App, func(), error) {
	app := &App{
		configProvider:   cfgProvider,
		logger:           appLogger,
		httpServeMux:     mux,
		httpServer:       server,
		redisClient:      redisClient,
		tokenHandler:     tokenHandler,
		apiKeyMiddleware: apiKeyMid,
	}
	cleanup := func() {
		app.logger.Info(context.Background(), "Running app cleanup...")
	}
	return app, cleanup, nil
}

// ConfigProvider provides the application configuration.
func ConfigProvider(appCtx context.Context, zapLogger *zap.Logger) (config.Provider, error) {
	return config.NewViperProvider(appCtx, zapLogger)
}

// LoggerProvider provides the application logger.
func LoggerProvider(cfgProvider config.Provider) (domain.Logger, error) {
	appCfg := cfgProvider.Get()
	return logger.NewZapAdapter(cfgProvider, appCfg.App.ServiceName)
}

// HTTPServeMuxProvider provides the main HTTP multiplexer.
func HTTPServeMuxProvider() *http.ServeMux {
	return http.NewServeMux()
}

// HTTPGracefulServerProvider provides a new HTTP server configured for graceful shutdown.
func HTTPGracefulServerProvider(cfgProvider config.Provider, mux *http.ServeMux) *http.Server {
	appCfg := cfgProvider.Get()

	readTimeout := 10 * time.Second
	writeTimeout := 10 * time.Second
	idleTimeout := 60 * time.Second

	if appCfg.App.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(appCfg.App.WriteTimeoutSeconds) * time.Second
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Server.HTTPPort),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// PrivateKeyProvider loads the relay's RSA private key once at startup.
func PrivateKeyProvider(cfgProvider config.Provider) (*rsa.PrivateKey, error) {
	path := cfgProvider.Get().Keys.PrivateKeyPath
	if path == "" {
		return nil, fmt.Errorf("keys.private_key_path is not configured")
	}
	return crypto.LoadRSAPrivateKey(path)
}

// AuthServerPublicKeyProvider loads the auth server's RSA public key once at startup.
func AuthServerPublicKeyProvider(cfgProvider config.Provider) (*rsa.PublicKey, error) {
	path := cfgProvider.Get().AuthServer.PublicKeyPath
	if path == "" {
		return nil, fmt.Errorf("auth_server.public_key_path is not configured")
	}
	return crypto.LoadRSAPublicKey(path)
}

// AuthServerClientProvider provides the encrypted auth-server exchange client.
func AuthServerClientProvider(
	appLogger domain.Logger,
	cfgProvider config.Provider,
	serverPublic *rsa.PublicKey,
	privateKey *rsa.PrivateKey,
) (*authserver.Client, error) {
	return authserver.NewClient(appLogger, cfgProvider, serverPublic, privateKey)
}

// ClaimsVerifierProvider provides the JWKS-backed identity-token verifier.
func ClaimsVerifierProvider(appCtx context.Context, appLogger domain.Logger, cfgProvider config.Provider) (*verifier.JWXAdapter, error) {
	return verifier.NewJWXAdapter(appCtx, appLogger, cfgProvider)
}

// RedisClientProvider provides a Redis client for the shared auth-data
// cache, or nil when cache.redis_address is not configured.
func RedisClientProvider(cfgProvider config.Provider, appLogger domain.Logger) (*redis.Client, func(), error) {
	cacheCfg := cfgProvider.Get().Cache
	if cacheCfg.RedisAddress == "" {
		appLogger.Info(context.Background(), "Shared auth-data cache disabled (no redis address configured)")
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cacheCfg.RedisAddress,
		Password: cacheCfg.RedisPassword,
		DB:       cacheCfg.RedisDB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		appLogger.Error(context.Background(), "Failed to connect to Redis", "error", err.Error(), "address", cacheCfg.RedisAddress)
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", cacheCfg.RedisAddress, err)
	}
	cleanup := func() {
		client.Close()
		appLogger.Info(context.Background(), "Redis connection closed")
	}
	appLogger.Info(context.Background(), "Successfully connected to Redis", "address", cacheCfg.RedisAddress)
	return client, cleanup, nil
}

// SharedAuthDataStoreProvider provides the second-level cache store, or nil
// when Redis is disabled.
func SharedAuthDataStoreProvider(redisClient *redis.Client, appLogger domain.Logger) domain.SharedAuthDataStore {
	if redisClient == nil {
		return nil
	}
	return appredis.NewAuthDataCacheAdapter(redisClient, appLogger)
}

// TokenResolverProvider provides the TokenResolver.
func TokenResolverProvider(
	appLogger domain.Logger,
	cfgProvider config.Provider,
	fetcher domain.AuthDataFetcher,
	claimsVerifier domain.ClaimsVerifier,
	shared domain.SharedAuthDataStore,
) (*application.TokenResolver, error) {
	return application.NewTokenResolver(appLogger, cfgProvider, fetcher, claimsVerifier, shared)
}

// TokenHandlerProvider provides the /v1/token handler.
func TokenHandlerProvider(resolver *application.TokenResolver, appLogger domain.Logger) http.HandlerFunc {
	return apphttp.TokenHandler(resolver, appLogger)
}

// APIKeyMiddlewareProvider provides the optional API key gate.
func APIKeyMiddlewareProvider(cfgProvider config.Provider, appLogger domain.Logger) APIKeyMiddleware {
	return APIKeyMiddleware(middleware.APIKeyAuthMiddleware(cfgProvider, appLogger))
}

// ProviderSet is the Wire provider set for the entire application.
var ProviderSet = wire.NewSet(
	InitialZapLoggerProvider,
	ConfigProvider,
	LoggerProvider,
	HTTPServeMuxProvider,
	HTTPGracefulServerProvider,

	// Key material and crypto-facing adapters
	PrivateKeyProvider,
	AuthServerPublicKeyProvider,
	AuthServerClientProvider,
	wire.Bind(new(domain.AuthDataFetcher), new(*authserver.Client)),
	ClaimsVerifierProvider,
	wire.Bind(new(domain.ClaimsVerifier), new(*verifier.JWXAdapter)),

	// Caching infrastructure
	RedisClientProvider,
	SharedAuthDataStoreProvider,

	// Application service and HTTP surface
	TokenResolverProvider,
	TokenHandlerProvider,
	APIKeyMiddlewareProvider,
	NewApp,
)
