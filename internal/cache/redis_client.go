package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Проверяем, что RedisClient реализует все интерфейсы
var (
	_ Cache        = (*RedisClient)(nil)
	_ CounterCache = (*RedisClient)(nil)
	_ CacheManager = (*RedisClient)(nil)
)

// RedisClient - реализация кэша на основе Redis
type RedisClient struct {
	client     *redis.Client
	ttl        time.Duration
	keyBuilder *KeyBuilder
}

// RedisConfig - конфигурация для Redis
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	CacheTTL     int    // в секундах
	Namespace    string // опциональный namespace для ключей
}

// NewRedisClient создает новый Redis клиент
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Проверяем подключение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, NewCacheError("connect", "", fmt.Errorf("failed to connect to Redis: %w", err))
	}

	return &RedisClient{
		client:     client,
		ttl:        time.Duration(cfg.CacheTTL) * time.Second,
		keyBuilder: NewKeyBuilder(cfg.Namespace),
	}, nil
}

// === Реализация интерфейса Cache ===

// Set сохраняет значение в кэш с дефолтным TTL
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}) error {
	return r.SetWithTTL(ctx, key, value, r.ttl)
}

// SetWithTTL сохраняет значение с кастомным TTL
func (r *RedisClient) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return NewCacheError("set", key, ErrInvalidCacheKey)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return NewCacheError("set", key, fmt.Errorf("failed to marshal value: %w", err))
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return NewCacheError("set", key, err)
	}

	return nil
}

// Get получает значение из кэша
func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	if key == "" {
		return NewCacheError("get", key, ErrInvalidCacheKey)
	}

	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return NewCacheError("get", key, err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return NewCacheError("get", key, fmt.Errorf("failed to unmarshal value: %w", err))
	}

	return nil
}

// Delete удаляет значения из кэша
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	// Фильтруем пустые ключи
	validKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		if key != "" {
			validKeys = append(validKeys, key)
		}
	}

	if len(validKeys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, validKeys...).Err(); err != nil {
		return NewCacheError("delete", "", err)
	}

	return nil
}

// Keys возвращает построитель ключей клиента
func (r *RedisClient) Keys() *KeyBuilder {
	return r.keyBuilder
}

// HealthCheck проверяет соединение с Redis
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return NewCacheError("ping", "", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func (r *RedisClient) Close() error {
	if err := r.client.Close(); err != nil {
		return NewCacheError("close", "", err)
	}
	return nil
}

// === Реализация интерфейса CounterCache ===

// GetClickCount получает количество кликов из кэша
func (r *RedisClient) GetClickCount(ctx context.Context, code string) (int64, error) {
	key := r.keyBuilder.Clicks(code)

	result, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrCacheMiss
		}
		return 0, NewCacheError("get", key, err)
	}

	return result, nil
}

// SetClickCount устанавливает счетчик кликов. Счетчик здесь не
// авторитетный - источником истины остается БД, кэш только отражает
// последнее известное значение.
func (r *RedisClient) SetClickCount(ctx context.Context, code string, count int64) error {
	key := r.keyBuilder.Clicks(code)

	// Храним счетчики дольше обычного кэша
	if err := r.client.Set(ctx, key, count, r.ttl*24).Err(); err != nil {
		return NewCacheError("set", key, err)
	}

	return nil
}
