package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AWS       AWSConfig
	DynamoDB  DynamoDBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Server    ServerConfig
	Wallet    WalletConfig
	Engine    EngineConfig
	Uploads   UploadsConfig
	RateLimit RateLimitConfig
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

type DynamoDBConfig struct {
	TableName        string
	MaxRetries       int
	UseLocalEndpoint bool
}

type RedisConfig struct {
	Address  string
	Password string
}

type NATSConfig struct {
	URL                  string
	MaxReconnect         int
	ReconnectWaitSeconds int
	TimeoutSeconds       int
}

type ServerConfig struct {
	HTTPPort    int
	Environment string
	LogLevel    string
}

// WalletConfig holds the funds-movement policy knobs.
type WalletConfig struct {
	MinWithdrawalAmount int64
}

// EngineConfig controls the status reconciliation engine.
type EngineConfig struct {
	GraceBuffer time.Duration
	LiveWindow  time.Duration
	Interval    time.Duration
}

type UploadsConfig struct {
	Bucket         string
	Endpoint       string
	CDNBaseURL     string
	MaxProofSizeMB int64
	MaxLogoSizeMB  int64
}

type RateLimitConfig struct {
	RequestsPerMinute float64
	Burst             int
	IdleEviction      time.Duration
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	if configPath != "" {
		viper.AddConfigPath(configPath)
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("ARENA")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; env vars and defaults cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("aws.region", "eu-central-1")
	viper.SetDefault("dynamodb.tablename", "arena")
	viper.SetDefault("dynamodb.maxretries", 3)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("nats.url", "nats://localhost:4222")
	viper.SetDefault("nats.maxreconnect", 10)
	viper.SetDefault("nats.reconnectwaitseconds", 2)
	viper.SetDefault("nats.timeoutseconds", 5)
	viper.SetDefault("server.httpport", 8080)
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("server.loglevel", "debug")
	viper.SetDefault("wallet.minwithdrawalamount", 300)
	viper.SetDefault("engine.gracebuffer", 30*time.Second)
	viper.SetDefault("engine.livewindow", 10*time.Minute)
	viper.SetDefault("engine.interval", time.Minute)
	viper.SetDefault("uploads.maxproofsizemb", 5)
	viper.SetDefault("uploads.maxlogosizemb", 2)
	viper.SetDefault("ratelimit.requestsperminute", 30)
	viper.SetDefault("ratelimit.burst", 10)
	viper.SetDefault("ratelimit.idleeviction", 15*time.Minute)
}
