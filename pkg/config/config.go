package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/boogy/aws-cognito-warden/pkg/types"
	"github.com/boogy/aws-cognito-warden/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	once               sync.Once
	instance           *Config
	tokenUse           = "id"             // Default token type accepted by the validator
	fetchTimeout       = "5s"             // Default timeout of the JWKS HTTP client
	listenAddr         = "127.0.0.1:3000" // Default address of the local server
	cacheType          = "memory"         // Default key set cache backend
	cacheRedisKey      = "aws-cognito-warden:jwks"
	corsAllowedOrigins = []string{"*"}
)

// Supported token types
const (
	TokenUseID     = "id"
	TokenUseAccess = "access"
)

// Supported key set cache backends
const (
	CacheMemory   = "memory"
	CacheS3       = "s3"
	CacheDynamoDB = "dynamodb"
	CacheRedis    = "redis"
)

// Cache configures where the latest key set snapshot is persisted between cold starts.
// The in-process slot always exists; the backend only seeds it at startup.
type Cache struct {
	Type          string `mapstructure:"type"`           // Cache type ("memory", "s3", "dynamodb", "redis")
	S3Bucket      string `mapstructure:"s3_bucket"`      // S3 bucket name (if using S3 cache)
	S3Prefix      string `mapstructure:"s3_prefix"`      // S3 prefix (if using S3 cache)
	DynamoDBTable string `mapstructure:"dynamodb_table"` // DynamoDB table name (if using DynamoDB cache)
	RedisAddr     string `mapstructure:"redis_addr"`     // Redis address host:port (if using Redis cache)
	RedisPassword string `mapstructure:"redis_password"` // Redis password (if using Redis cache)
	RedisKey      string `mapstructure:"redis_key"`      // Redis key holding the snapshot
}

type Config struct {
	Region     string `mapstructure:"region"`       // Region is the AWS region of the Cognito user pool
	UserPoolID string `mapstructure:"user_pool_id"` // UserPoolID is the Cognito user pool identifier
	ClientID   string `mapstructure:"client_id"`    // ClientID is the app client expected as token audience
	TokenUse   string `mapstructure:"token_use"`    // TokenUse selects ID ("id") or access ("access") tokens
	IssuerURL  string `mapstructure:"issuer_url"`   // IssuerURL overrides the Cognito host (local stacks)

	FetchTimeout       time.Duration `mapstructure:"fetch_timeout"`        // FetchTimeout bounds each JWKS request
	ListenAddr         string        `mapstructure:"listen_addr"`          // ListenAddr is used by the local server
	DatabaseURL        string        `mapstructure:"database_url"`         // DatabaseURL is the Postgres DSN for the posts store
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"` // CORSAllowedOrigins are passed to the CORS middleware

	// Logging configuration directly to S3 (duplicates cloudwatch logs)
	LogToS3   bool   `mapstructure:"log_to_s3"`  // LogToS3 is a flag to enable logging to S3
	LogBucket string `mapstructure:"log_bucket"` // LogBucket is the S3 bucket to log to
	LogPrefix string `mapstructure:"log_prefix"` // LogPrefix is the S3 key prefix to log to
	Cache     *Cache `mapstructure:"cache"`      // Cache is the key set cache configuration
}

// NewConfig initializes and returns the configuration. It ensures that the config is loaded only once.
func NewConfig() (*Config, error) {
	var err error
	once.Do(func() {
		instance = &Config{}
		err = instance.LoadConfig()
	})
	return instance, err
}

// LoadConfig loads a .env file when present, then the optional config file and the environment.
func (c *Config) LoadConfig() error {
	if err := godotenv.Load(utils.GetEnv("DOTENV_PATH", ".env")); err != nil {
		slog.Debug("No .env file loaded", slog.String("error", err.Error()))
	}

	configName := utils.GetEnv("CONFIG_NAME", "config") // Configuration file name without extension
	configPath := utils.GetEnv("CONFIG_PATH", ".")      // Configuration file path, default to current directory

	viper.SetEnvPrefix("acw") // ex: "ACW_USER_POOL_ID"
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath("/etc/aws-cognito-warden/")
	viper.AddConfigPath(configPath)
	viper.SetConfigName(configName)

	viper.SetDefault("token_use", tokenUse)
	viper.SetDefault("fetch_timeout", fetchTimeout)
	viper.SetDefault("listen_addr", listenAddr)
	viper.SetDefault("cors_allowed_origins", corsAllowedOrigins)
	viper.SetDefault("cache.type", cacheType)
	viper.SetDefault("cache.redis_key", cacheRedisKey)

	// Core settings, the COGNITO_* names are kept for existing deployments
	_ = viper.BindEnv("region", "ACW_REGION", "COGNITO_REGION")
	_ = viper.BindEnv("user_pool_id", "ACW_USER_POOL_ID", "COGNITO_USER_POOL_ID")
	_ = viper.BindEnv("client_id", "ACW_CLIENT_ID", "COGNITO_USER_POOL_CLIENT_ID")
	_ = viper.BindEnv("token_use")    // ACW_TOKEN_USE
	_ = viper.BindEnv("issuer_url")   // ACW_ISSUER_URL
	_ = viper.BindEnv("fetch_timeout") // ACW_FETCH_TIMEOUT
	_ = viper.BindEnv("listen_addr")  // ACW_LISTEN_ADDR
	_ = viper.BindEnv("database_url", "ACW_DATABASE_URL", "DATABASE_URL")
	_ = viper.BindEnv("cors_allowed_origins") // ACW_CORS_ALLOWED_ORIGINS

	// Cache settings
	_ = viper.BindEnv("cache.type")           // ACW_CACHE_TYPE
	_ = viper.BindEnv("cache.s3_bucket")      // ACW_CACHE_S3_BUCKET
	_ = viper.BindEnv("cache.s3_prefix")      // ACW_CACHE_S3_PREFIX
	_ = viper.BindEnv("cache.dynamodb_table") // ACW_CACHE_DYNAMODB_TABLE
	_ = viper.BindEnv("cache.redis_addr")     // ACW_CACHE_REDIS_ADDR
	_ = viper.BindEnv("cache.redis_password") // ACW_CACHE_REDIS_PASSWORD
	_ = viper.BindEnv("cache.redis_key")      // ACW_CACHE_REDIS_KEY

	// Logging settings
	_ = viper.BindEnv("log_to_s3")  // ACW_LOG_TO_S3
	_ = viper.BindEnv("log_bucket") // ACW_LOG_BUCKET
	_ = viper.BindEnv("log_prefix") // ACW_LOG_PREFIX

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("problem reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return c.Validate()
}

// Validate checks that every value needed to verify tokens is present.
// A failure here is meant to abort startup.
func (c *Config) Validate() error {
	if c.Region == "" {
		return errors.New("region is required")
	}

	if c.UserPoolID == "" {
		return errors.New("user pool id is required")
	}

	if c.ClientID == "" {
		return errors.New("client id is required")
	}

	if c.TokenUse == "" {
		c.TokenUse = TokenUseID
	}
	if c.TokenUse != TokenUseID && c.TokenUse != TokenUseAccess {
		return fmt.Errorf("unsupported token use: %s", c.TokenUse)
	}

	if c.FetchTimeout < 0 {
		return errors.New("fetch timeout cannot be negative")
	}

	if c.LogToS3 && c.LogBucket == "" {
		return errors.New("log bucket is required when logging to S3")
	}

	if c.Cache == nil {
		c.Cache = &Cache{Type: CacheMemory}
	}

	switch c.Cache.Type {
	case "", CacheMemory:
		c.Cache.Type = CacheMemory
	case CacheS3:
		if c.Cache.S3Bucket == "" {
			return errors.New("S3 bucket name is required for S3 cache")
		}
	case CacheDynamoDB:
		if c.Cache.DynamoDBTable == "" {
			return errors.New("DynamoDB table name is required for DynamoDB cache")
		}
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("redis address is required for Redis cache")
		}
		if c.Cache.RedisKey == "" {
			c.Cache.RedisKey = cacheRedisKey
		}
	default:
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}

	return nil
}

// Provider returns the user pool description used to build the issuer and JWKS URL
func (c *Config) Provider() types.Provider {
	return types.Provider{
		Region:     c.Region,
		UserPoolID: c.UserPoolID,
		BaseURL:    c.IssuerURL,
	}
}

// ExpectedIssuer is the exact "iss" value tokens must carry
func (c *Config) ExpectedIssuer() string {
	return c.Provider().Issuer()
}

// NeedsAWS reports whether any configured component talks to AWS services
func (c *Config) NeedsAWS() bool {
	if c.LogToS3 {
		return true
	}
	return c.Cache != nil && (c.Cache.Type == CacheS3 || c.Cache.Type == CacheDynamoDB)
}
