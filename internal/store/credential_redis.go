package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"roombook/internal/util"
	"roombook/pkg/domain"
)

const redisCredentialPrefix = "roombook:credential:"

// RedisCredentialStore keeps capability grants in Redis with TTL. The
// opaque token handed to the caller is the only way to reach the grant.
type RedisCredentialStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCredentialStore builds a Redis-backed credential store.
func NewRedisCredentialStore(addr, password string, ttl time.Duration) *RedisCredentialStore {
	return &RedisCredentialStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		ttl: ttl,
	}
}

type redisCredential struct {
	ReservationID int64  `json:"reservationId"`
	Action        string `json:"action"`
	Key           string `json:"key"`
	ExpiresAt     int64  `json:"expiresAt"`
}

// Grant writes a token -> credential mapping with TTL.
func (s *RedisCredentialStore) Grant(reservationID int64, action domain.Action, key string) (string, domain.Credential, error) {
	token := util.NewID()
	expiresAt := time.Now().UTC().Add(s.ttl)
	payload, err := json.Marshal(redisCredential{
		ReservationID: reservationID,
		Action:        string(action),
		Key:           key,
		ExpiresAt:     expiresAt.Unix(),
	})
	if err != nil {
		return "", domain.Credential{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, redisCredentialPrefix+token, payload, s.ttl).Err(); err != nil {
		return "", domain.Credential{}, err
	}
	return token, domain.Credential{
		ReservationID: reservationID,
		Action:        action,
		Key:           key,
		ExpiresAt:     expiresAt,
	}, nil
}

// Resolve looks up a token; a missing or expired token is (zero, false, nil).
func (s *RedisCredentialStore) Resolve(token string) (domain.Credential, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	val, err := s.client.Get(ctx, redisCredentialPrefix+token).Result()
	if err == redis.Nil {
		return domain.Credential{}, false, nil
	}
	if err != nil {
		return domain.Credential{}, false, err
	}
	var cred redisCredential
	if err := json.Unmarshal([]byte(val), &cred); err != nil {
		return domain.Credential{}, false, err
	}
	return domain.Credential{
		ReservationID: cred.ReservationID,
		Action:        domain.Action(cred.Action),
		Key:           cred.Key,
		ExpiresAt:     time.Unix(cred.ExpiresAt, 0).UTC(),
	}, true, nil
}

// Revoke removes a token mapping.
func (s *RedisCredentialStore) Revoke(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.client.Del(ctx, redisCredentialPrefix+token).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}
