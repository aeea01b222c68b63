package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/persona-labs/persona-api/internal/dto"
	"github.com/persona-labs/persona-api/internal/repository"
)

const catalogCacheKeyFormat = "catalog:active_test:%d"

// CatalogService resolves the active published version of a test
// family. Lookups are cached in Redis because the catalog is read on
// every attempt start and changes only on lifecycle transitions.
type CatalogService interface {
	GetActiveTest(ctx context.Context, baseTestID uint) (dto.TestResponse, error)
	Invalidate(ctx context.Context, baseTestID uint) error
}

type catalogService struct {
	tests  repository.TestRepository
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCatalogService constructs a CatalogService. A nil cache client
// disables caching and every lookup hits the database.
func NewCatalogService(tests repository.TestRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) CatalogService {
	return &catalogService{
		tests:  tests,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "catalog_service").Logger(),
	}
}

func (s *catalogService) GetActiveTest(ctx context.Context, baseTestID uint) (dto.TestResponse, error) {
	key := fmt.Sprintf(catalogCacheKeyFormat, baseTestID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var response dto.TestResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				return response, nil
			}
			s.logger.Warn().Str("key", key).Msg("discarding undecodable catalog cache entry")
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
	}

	test, err := s.tests.GetActiveByBaseTest(ctx, baseTestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TestResponse{}, ErrNoActiveVersion
		}
		return dto.TestResponse{}, err
	}

	response := dto.NewTestResponse(test)

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, key, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
			}
		}
	}

	return response, nil
}

func (s *catalogService) Invalidate(ctx context.Context, baseTestID uint) error {
	if s.cache == nil {
		return nil
	}

	key := fmt.Sprintf(catalogCacheKeyFormat, baseTestID)
	if err := s.cache.Del(ctx, key).Err(); err != nil {
		return err
	}

	s.logger.Debug().Str("key", key).Msg("catalog cache invalidated")

	return nil
}
