package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of Redis.
//
// Layout, relative to the key prefix:
//
//	account:<id>          JSON encoded Account
//	account:name:<name>   account ID, lower-cased username
//	account:<id>:attrs    hash of attribute key to value
//	settings              hash of setting key to value
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis account store. prefix may be empty.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix != "" && !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) accountKey(id string) string {
	return s.prefix + "account:" + id
}

func (s *RedisStore) nameKey(name string) string {
	return s.prefix + "account:name:" + strings.ToLower(name)
}

func (s *RedisStore) attrsKey(id string) string {
	return s.prefix + "account:" + id + ":attrs"
}

func (s *RedisStore) settingsKey() string {
	return s.prefix + "settings"
}

func (s *RedisStore) GetByName(ctx context.Context, name string) (Account, error) {
	id, err := s.client.Get(ctx, s.nameKey(name)).Result()
	if errors.Is(err, redis.Nil) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to look up account name: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *RedisStore) GetByID(ctx context.Context, id string) (Account, error) {
	raw, err := s.client.Get(ctx, s.accountKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("failed to get account: %w", err)
	}

	var acct Account
	if err := json.Unmarshal(raw, &acct); err != nil {
		return Account{}, fmt.Errorf("failed to unmarshal account: %w", err)
	}
	return acct, nil
}

func (s *RedisStore) CreateAccount(ctx context.Context, acct Account) (Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}

	raw, err := json.Marshal(acct)
	if err != nil {
		return Account{}, fmt.Errorf("failed to marshal account: %w", err)
	}

	// The name index doubles as the uniqueness guard
	claimed, err := s.client.SetNX(ctx, s.nameKey(acct.Username), acct.ID, 0).Result()
	if err != nil {
		return Account{}, fmt.Errorf("failed to reserve username: %w", err)
	}
	if !claimed {
		return Account{}, ErrAccountExists
	}

	if err := s.client.Set(ctx, s.accountKey(acct.ID), raw, 0).Err(); err != nil {
		s.client.Del(ctx, s.nameKey(acct.Username))
		return Account{}, fmt.Errorf("failed to store account: %w", err)
	}
	return acct, nil
}

func (s *RedisStore) GetAttribute(ctx context.Context, accountID, key string) ([]byte, error) {
	value, err := s.client.HGet(ctx, s.attrsKey(accountID), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAttributeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attribute %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) SetAttribute(ctx context.Context, accountID, key string, value []byte) error {
	if err := s.client.HSet(ctx, s.attrsKey(accountID), key, value).Err(); err != nil {
		return fmt.Errorf("failed to set attribute %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) DeleteAttribute(ctx context.Context, accountID, key string) error {
	if err := s.client.HDel(ctx, s.attrsKey(accountID), key).Err(); err != nil {
		return fmt.Errorf("failed to delete attribute %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) GetSetting(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.HGet(ctx, s.settingsKey(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrAttributeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) SetSetting(ctx context.Context, key string, value []byte) error {
	if err := s.client.HSet(ctx, s.settingsKey(), key, value).Err(); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
