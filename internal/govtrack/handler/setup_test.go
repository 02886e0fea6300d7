package handler

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bouramah/GovTrack-sub003/internal/config"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/service"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Upload: config.UploadConfig{Dir: t.TempDir()},
		JWT: config.JWTConfig{
			Secret:             testutil.JWTSecret,
			AccessTokenExpire:  2 * time.Hour,
			RefreshTokenExpire: 7 * 24 * time.Hour,
			Issuer:             "govtrack",
		},
	}
}

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", getenv("REDIS_HOST", "127.0.0.1"), getenv("REDIS_PORT", "6379")),
		DB:   15,
	})
	return rdb
}

func newTestServices(t *testing.T, db *gorm.DB) *service.Services {
	t.Helper()
	repos := repository.NewRepositories(db)
	return service.NewServices(repos, testRedis(t), testConfig(t), zap.NewNop())
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
