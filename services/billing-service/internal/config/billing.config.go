package config

import (
	sharedcfg "pulsetrack/shared/config"
)

type AppConfig struct {
	GRPCAddr string
	HTTPAddr string

	// RedisAddrs holds one address, or several seed nodes when RedisCluster
	// is set.
	RedisAddrs   []string
	RedisPass    string
	RedisCluster bool
}

func Load() AppConfig {
	return AppConfig{
		GRPCAddr:     sharedcfg.GetEnv("GRPC_ADDR", ":9001"),
		HTTPAddr:     sharedcfg.GetEnv("HTTP_ADDR", ":4001"),
		RedisAddrs:   sharedcfg.GetEnvSlice("REDIS_ADDRS", []string{"redis:6379"}),
		RedisPass:    sharedcfg.GetEnv("REDIS_PASS", ""),
		RedisCluster: sharedcfg.GetEnvBool("REDIS_CLUSTER", false),
	}
}
