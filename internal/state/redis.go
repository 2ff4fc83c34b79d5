package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/logicfirst/tutor/internal/model"
)

// redisStore is the shared driver. Optimistic versioning rides on WATCH: the
// transaction aborts when another writer touches the key between read and
// write.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func newRedisStore(cfg *config) *redisStore {
	return &redisStore{
		client: cfg.redisClient,
		ttl:    cfg.ttl,
		prefix: cfg.keyPrefix,
	}
}

func (s *redisStore) Get(ctx context.Context, sessionID string, problem int) (*model.ValidationState, error) {
	data, err := s.client.Get(ctx, stateKey(s.prefix, sessionID, problem)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var vs model.ValidationState
	if err := json.Unmarshal(data, &vs); err != nil {
		return nil, fmt.Errorf("decode validation state: %w", err)
	}
	return &vs, nil
}

func (s *redisStore) Put(ctx context.Context, vs *model.ValidationState) error {
	key := stateKey(s.prefix, vs.SessionID, vs.ProblemNumber)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
			if vs.Version != 0 {
				return ErrVersionConflict
			}
		case err != nil:
			return fmt.Errorf("redis get in txn: %w", err)
		default:
			var stored model.ValidationState
			if err := json.Unmarshal(data, &stored); err != nil {
				return fmt.Errorf("decode stored state: %w", err)
			}
			if stored.Version != vs.Version {
				return ErrVersionConflict
			}
		}

		vs.Version++
		vs.UpdatedAt = time.Now()
		encoded, err := json.Marshal(vs)
		if err != nil {
			return fmt.Errorf("encode validation state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Another writer slipped in between read and write.
		vs.Version--
		return ErrVersionConflict
	}
	if errors.Is(err, ErrVersionConflict) {
		return ErrVersionConflict
	}
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, sessionID string, problem int) error {
	if err := s.client.Del(ctx, stateKey(s.prefix, sessionID, problem)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}
