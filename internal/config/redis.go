package config

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedisClient builds a Redis client from REDIS_* variables:
//   REDIS_ENABLED – set to false to run without Redis (default true)
//   REDIS_ADDR or REDIS_HOST + REDIS_PORT – server address (default localhost:6379)
//   REDIS_PASSWORD, REDIS_DB, REDIS_TLS
// It returns nil when Redis is disabled or unreachable; callers then run
// without response caching and rate limiting.
func NewRedisClient(logger *zap.Logger) *redis.Client {
	if !envBool("REDIS_ENABLED", true) {
		return nil
	}
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if envBool("REDIS_TLS", false) {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  envStr("REDIS_PASSWORD", ""),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, caching and rate limiting disabled", zap.String("addr", addr), zap.Error(err))
		_ = client.Close()
		return nil
	}
	return client
}
