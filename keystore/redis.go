package keystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"signalcore/configs"
	"signalcore/keys"
	"signalcore/protocol/ratchet"
)

// RedisStore persists key material in Redis hashes namespaced by account ID.
// Entries are the same hex-encoded records the file store writes.
type RedisStore struct {
	client    *redis.Client
	accountID string
	logger    *logrus.Logger
}

// NewRedisStore wraps an existing Redis client for one account's key material.
func NewRedisStore(client *redis.Client, accountID string, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client:    client,
		accountID: accountID,
		logger:    logger,
	}
}

func (rs *RedisStore) SaveIdentityKeyPair(ctx context.Context, kp *keys.IdentityKeyPair) error {
	return rs.setJSON(ctx, fmt.Sprintf(configs.StoreIdentityKey, rs.accountID), kp.Record())
}

func (rs *RedisStore) LoadIdentityKeyPair(ctx context.Context) (*keys.IdentityKeyPair, error) {
	var rec keys.IdentityKeyPairRecord
	if err := rs.getJSON(ctx, fmt.Sprintf(configs.StoreIdentityKey, rs.accountID), &rec); err != nil {
		return nil, err
	}
	return keys.IdentityKeyPairFromRecord(rec)
}

func (rs *RedisStore) SavePreKeyPair(ctx context.Context, pk *keys.PreKeyPair) error {
	return rs.hsetJSON(ctx, fmt.Sprintf(configs.StorePreKeysKey, rs.accountID), keyID(pk.ID), pk.Record())
}

func (rs *RedisStore) LoadPreKeyPair(ctx context.Context, id uint32) (*keys.PreKeyPair, error) {
	var rec keys.PreKeyRecord
	if err := rs.hgetJSON(ctx, fmt.Sprintf(configs.StorePreKeysKey, rs.accountID), keyID(id), &rec); err != nil {
		return nil, err
	}
	return keys.PreKeyPairFromRecord(rec)
}

func (rs *RedisStore) RemovePreKeyPair(ctx context.Context, id uint32) error {
	removed, err := rs.client.HDel(ctx, fmt.Sprintf(configs.StorePreKeysKey, rs.accountID), keyID(id)).Result()
	if err != nil {
		return fmt.Errorf("removing pre-key %d: %w", id, err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (rs *RedisStore) SaveSignedPreKeyPair(ctx context.Context, spk *keys.SignedPreKeyPair) error {
	return rs.hsetJSON(ctx, fmt.Sprintf(configs.StoreSignedPreKeysKey, rs.accountID), keyID(spk.ID), spk.Record())
}

func (rs *RedisStore) LoadSignedPreKeyPair(ctx context.Context, id uint32) (*keys.SignedPreKeyPair, error) {
	var rec keys.SignedPreKeyRecord
	if err := rs.hgetJSON(ctx, fmt.Sprintf(configs.StoreSignedPreKeysKey, rs.accountID), keyID(id), &rec); err != nil {
		return nil, err
	}
	return keys.SignedPreKeyPairFromRecord(rec)
}

func (rs *RedisStore) SaveSession(ctx context.Context, session *ratchet.SessionRecord) error {
	return rs.hsetJSON(ctx, fmt.Sprintf(configs.StoreSessionsKey, rs.accountID), session.SessionID, sessionToDocument(session))
}

func (rs *RedisStore) LoadSession(ctx context.Context, sessionID string) (*ratchet.SessionRecord, error) {
	var doc sessionDocument
	if err := rs.hgetJSON(ctx, fmt.Sprintf(configs.StoreSessionsKey, rs.accountID), sessionID, &doc); err != nil {
		return nil, err
	}
	return sessionFromDocument(doc)
}

func (rs *RedisStore) RemoveSession(ctx context.Context, sessionID string) error {
	removed, err := rs.client.HDel(ctx, fmt.Sprintf(configs.StoreSessionsKey, rs.accountID), sessionID).Result()
	if err != nil {
		return fmt.Errorf("removing session %s: %w", sessionID, err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (rs *RedisStore) setJSON(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := rs.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	rs.logger.Debugf("key store entry written to %s", key)
	return nil
}

func (rs *RedisStore) getJSON(ctx context.Context, key string, out any) error {
	data, err := rs.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return json.Unmarshal(data, out)
}

func (rs *RedisStore) hsetJSON(ctx context.Context, key, field string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := rs.client.HSet(ctx, key, field, data).Err(); err != nil {
		return fmt.Errorf("writing %s/%s: %w", key, field, err)
	}
	rs.logger.Debugf("key store entry written to %s/%s", key, field)
	return nil
}

func (rs *RedisStore) hgetJSON(ctx context.Context, key, field string, out any) error {
	data, err := rs.client.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s/%s: %w", key, field, err)
	}
	return json.Unmarshal(data, out)
}
