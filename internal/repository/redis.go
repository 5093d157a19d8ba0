package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleetbook/internal/config"
	"fleetbook/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisVehicleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisVehicleCache(client *redis.Client, ttl time.Duration) *RedisVehicleCache {
	return &RedisVehicleCache{
		client: client,
		ttl:    ttl,
	}
}

func vehicleKey(id string) string {
	return fmt.Sprintf("vehicle:%s", id)
}

func (r *RedisVehicleCache) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, vehicleKey(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle from redis: %w", err)
	}

	var v models.Vehicle
	if err := json.Unmarshal([]byte(val), &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached vehicle: %w", err)
	}

	return &v, nil
}

func (r *RedisVehicleCache) SetVehicle(ctx context.Context, v *models.Vehicle) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle: %w", err)
	}

	if err := r.client.Set(ctx, vehicleKey(v.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set vehicle in redis: %w", err)
	}

	return nil
}

func (r *RedisVehicleCache) InvalidateVehicle(ctx context.Context, id string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, vehicleKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete vehicle from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
