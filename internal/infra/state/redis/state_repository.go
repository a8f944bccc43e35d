// Package redisstate implements StateRepository on Redis.
package redisstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"collaborative-classroom/internal/domain"
	"collaborative-classroom/internal/repository"
)

// RedisStateRepository is the Redis implementation of StateRepository.
type RedisStateRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisStateRepository(client *redis.Client, keyPrefix string) *RedisStateRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisStateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "cc:" // collaborative-classroom
	}
	return &RedisStateRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// --- Key helpers ---

func (r *RedisStateRepository) roomPresenceKey(roomID string) string {
	return fmt.Sprintf("%sroom:%s:presence", r.keyPrefix, roomID)
}

func (r *RedisStateRepository) notificationChannel() string {
	return r.keyPrefix + "notifications"
}

// --- Presence ---

func (r *RedisStateRepository) IncrementPresence(ctx context.Context, roomID string) (int64, error) {
	key := r.roomPresenceKey(roomID)
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis: failed to increment presence for room %s on key %s: %w", roomID, key, err)
	}
	return incrCmd.Val(), nil
}

func (r *RedisStateRepository) DecrementPresence(ctx context.Context, roomID string) (int64, error) {
	key := r.roomPresenceKey(roomID)
	count, err := r.client.Decr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: failed to decrement presence for room %s on key %s: %w", roomID, key, err)
	}
	// Counters can drift below zero after a crash; floor rather than
	// propagate a negative count.
	if count < 0 {
		if err := r.client.Set(ctx, key, "0", 24*time.Hour).Err(); err != nil {
			logrus.WithError(err).Warnf("redis: failed to floor presence counter for room %s", roomID)
		}
		count = 0
	}
	return count, nil
}

func (r *RedisStateRepository) GetPresence(ctx context.Context, roomID string) (int64, error) {
	key := r.roomPresenceKey(roomID)
	count, err := r.client.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: failed to get presence for room %s from %s: %w", roomID, key, err)
	}
	return count, nil
}

// --- Rate limiting ---

func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := r.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: pipeline failed for rate limit check on key %s: %w", key, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", key, err)
	}
	return count > int64(limit), nil
}

// --- Notification feed ---

func (r *RedisStateRepository) PublishNotification(ctx context.Context, n domain.Notification) error {
	channel := r.notificationChannel()
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal notification %s for publish: %w", n.ID, err)
	}
	if err := r.client.Publish(ctx, channel, string(payload)).Err(); err != nil {
		logrus.WithFields(logrus.Fields{
			"channel":         channel,
			"notification_id": n.ID,
			"user_id":         n.UserID,
		}).WithError(err).Error("Redis Publish failed")
		return fmt.Errorf("redis: failed to publish notification to channel %s: %w", channel, err)
	}
	return nil
}

func (r *RedisStateRepository) SubscribeNotifications(ctx context.Context) (repository.NotificationStream, error) {
	pubsub := r.client.Subscribe(ctx, r.notificationChannel())
	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: failed to subscribe to %s: %w", r.notificationChannel(), err)
	}

	stream := &notificationStream{
		pubsub: pubsub,
		out:    make(chan domain.Notification, 64),
	}
	go stream.pump()
	return stream, nil
}

type notificationStream struct {
	pubsub *redis.PubSub
	out    chan domain.Notification
}

func (s *notificationStream) pump() {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		var n domain.Notification
		if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
			logrus.WithError(err).Warnf("redis: failed to unmarshal notification from feed, payload: %s", msg.Payload)
			continue
		}
		s.out <- n
	}
}

func (s *notificationStream) Messages() <-chan domain.Notification {
	return s.out
}

func (s *notificationStream) Close() error {
	return s.pubsub.Close()
}
