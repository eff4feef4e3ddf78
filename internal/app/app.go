package app

import (
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vacationplanner/internal/config"
	"vacationplanner/internal/shared/connection"
)

func BuildApp(router *gin.Engine) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	gormDB, err := connection.ConnectGORMWithRetry(
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode,
		5,
	)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("database connection established")

	redisClient, err := connection.ConnectRedisWithRetry(cfg.RedisAddr, 5)
	if err != nil {
		return err
	}
	log.Println("redis connection established")

	return registerModules(router, gormDB, redisClient, cfg, zap.L())
}
