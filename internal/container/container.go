package container

import (
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-users-api/config"
	repouser "github.com/oksasatya/go-ddd-users-api/internal/domain/repository"
	"github.com/oksasatya/go-ddd-users-api/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-users-api/pkg/helpers"
)

// app-level container to share constructed components across packages
// Router can auto-wire modules from these singletons.
// Everything except config, logger and the user repository is optional and may be nil.

var (
	cfg         *config.Config
	logger      *logrus.Logger
	userRepo    repouser.UserRepository
	redisClient *redis.Client
	rabbitPub   *helpers.RabbitPublisher
	esClient    *elasticsearch.Client
	metrics     *middleware.Metrics
)

func SetConfig(c *config.Config) { cfg = c }
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.Load()
	}
	return cfg
}
func SetLogger(l *logrus.Logger) { logger = l }
func GetLogger() *logrus.Logger {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger
}

func SetUserRepository(r repouser.UserRepository)  { userRepo = r }
func GetUserRepository() repouser.UserRepository   { return userRepo }
func SetRedis(r *redis.Client)                     { redisClient = r }
func GetRedis() *redis.Client                      { return redisClient }
func SetRabbitPub(p *helpers.RabbitPublisher)      { rabbitPub = p }
func GetRabbitPub() *helpers.RabbitPublisher       { return rabbitPub }
func SetES(c *elasticsearch.Client)                { esClient = c }
func GetES() *elasticsearch.Client                 { return esClient }
func SetMetrics(m *middleware.Metrics)             { metrics = m }
func GetMetrics() *middleware.Metrics              { return metrics }

// Reset clears every singleton; used between tests.
func Reset() {
	cfg, logger, userRepo = nil, nil, nil
	redisClient, rabbitPub, esClient, metrics = nil, nil, nil, nil
}
