package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/subscription-service/internal/domain"
	"github.com/Dhoini/subscription-service/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	// Префикс ключей для страниц отчета
	subscriptionPageKeyPrefix = "gateway_subscriptions:"

	// TTL для кэша
	defaultCacheTTL = 5 * time.Minute
)

// SubscriptionPageCache кеш страниц списка подписок шлюза
type SubscriptionPageCache interface {
	// GetPage возвращает (nil, nil) при промахе.
	GetPage(ctx context.Context, count, skip int) ([]domain.GatewaySubscription, error)
	SetPage(ctx context.Context, count, skip int, items []domain.GatewaySubscription) error
	// InvalidatePages сбрасывает все страницы после изменения подписок.
	InvalidatePages(ctx context.Context) error
}

// RedisCacheRepository реализует кеширование с использованием Redis
type RedisCacheRepository struct {
	client redis.Cmdable
	ttl    time.Duration
	log    *logger.Logger
}

// NewRedisCacheRepository создает новый экземпляр Redis репозитория и проверяет соединение
func NewRedisCacheRepository(redisAddr, redisPassword string, redisDB int, ttl time.Duration, log *logger.Logger) (*RedisCacheRepository, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	// Проверяем соединение с Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Infow("Connected to Redis successfully", "addr", redisAddr)
	return NewRedisCache(client, ttl, log), client, nil
}

// NewRedisCache оборачивает готовый клиент
func NewRedisCache(client redis.Cmdable, ttl time.Duration, log *logger.Logger) *RedisCacheRepository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &RedisCacheRepository{client: client, ttl: ttl, log: log}
}

func pageKey(count, skip int) string {
	return fmt.Sprintf("%s%d:%d", subscriptionPageKeyPrefix, count, skip)
}

// SetPage кеширует страницу подписок
func (r *RedisCacheRepository) SetPage(ctx context.Context, count, skip int, items []domain.GatewaySubscription) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal subscriptions page: %w", err)
	}

	if err := r.client.Set(ctx, pageKey(count, skip), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache subscriptions page: %w", err)
	}

	r.log.Debugw("Subscriptions page cached", "count", count, "skip", skip, "items", len(items))
	return nil
}

// GetPage получает страницу подписок из кеша
func (r *RedisCacheRepository) GetPage(ctx context.Context, count, skip int) ([]domain.GatewaySubscription, error) {
	data, err := r.client.Get(ctx, pageKey(count, skip)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscriptions page from cache: %w", err)
	}

	var items []domain.GatewaySubscription
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached subscriptions page: %w", err)
	}
	if items == nil {
		items = []domain.GatewaySubscription{}
	}

	r.log.Debugw("Subscriptions page retrieved from cache", "count", count, "skip", skip)
	return items, nil
}

// InvalidatePages удаляет все закешированные страницы
func (r *RedisCacheRepository) InvalidatePages(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, subscriptionPageKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cached pages: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cached pages: %w", err)
	}
	return nil
}
