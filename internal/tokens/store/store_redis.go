package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	recmodels "docufind/internal/records/models"
	"docufind/internal/tokens/models"
	id "docufind/pkg/domain"
)

const (
	tokenKeyPrefix = "docufind:token:"
	maxTxAttempts  = 3
)

// RedisStore keeps each token under its own key. Keys outlive ExpiresAt by the
// retention window so an expired token is still reported as expired rather
// than unknown.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

type RedisOption func(*RedisStore)

// WithExpiredRetention sets how long expired tokens stay readable.
func WithExpiredRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d >= 0 {
			s.retention = d
		}
	}
}

func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, retention: 24 * time.Hour}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type redisToken struct {
	Purpose     models.Purpose  `json:"purpose"`
	SubjectKind id.RecordKind   `json:"subject_kind"`
	SubjectID   string          `json:"subject_id"`
	Holder      string          `json:"holder"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	ConsumedAt  *time.Time      `json:"consumed_at,omitempty"`
}

func tokenKey(hash string) string { return tokenKeyPrefix + hash }

func encodeToken(t *models.Token) ([]byte, error) {
	payload, err := models.EncodePayload(t.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(redisToken{
		Purpose:     t.Purpose,
		SubjectKind: t.Subject.Kind,
		SubjectID:   t.Subject.ID.String(),
		Holder:      t.Holder,
		Payload:     payload,
		CreatedAt:   t.CreatedAt,
		ExpiresAt:   t.ExpiresAt,
		ConsumedAt:  t.ConsumedAt,
	})
}

func decodeToken(hash string, raw []byte) (*models.Token, error) {
	var rt redisToken
	if err := json.Unmarshal(raw, &rt); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	subjectID, err := id.ParseRecordID(rt.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("decode token subject: %w", err)
	}
	payload, err := models.DecodePayload(rt.Purpose, rt.Payload)
	if err != nil {
		return nil, err
	}
	return &models.Token{
		Hash:       hash,
		Purpose:    rt.Purpose,
		Subject:    recmodels.Ref{Kind: rt.SubjectKind, ID: subjectID},
		Holder:     rt.Holder,
		Payload:    payload,
		CreatedAt:  rt.CreatedAt,
		ExpiresAt:  rt.ExpiresAt,
		ConsumedAt: rt.ConsumedAt,
	}, nil
}

func (s *RedisStore) keyTTL(t *models.Token) time.Duration {
	ttl := time.Until(t.ExpiresAt) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (s *RedisStore) Save(ctx context.Context, t *models.Token) error {
	raw, err := encodeToken(t)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, tokenKey(t.Hash), raw, s.keyTTL(t)).Err(); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, hash string) (*models.Token, error) {
	raw, err := s.client.Get(ctx, tokenKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound()
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	return decodeToken(hash, raw)
}

// Redeem runs validate-and-consume as a WATCH/MULTI transaction. A concurrent
// writer aborts the transaction and the attempt is retried against the new state,
// where the token is gone or consumed.
func (s *RedisStore) Redeem(ctx context.Context, hash string, expect models.Expectation, now time.Time) (*models.Token, error) {
	key := tokenKey(hash)
	var redeemed *models.Token

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return notFound()
		}
		if err != nil {
			return fmt.Errorf("load token: %w", err)
		}
		t, err := decodeToken(hash, raw)
		if err != nil {
			return err
		}
		if err := t.Validate(expect, now); err != nil {
			return translateValidation(err)
		}

		var updated []byte
		if !t.Purpose.DeletedOnUse() {
			t.MarkConsumed(now)
			if updated, err = encodeToken(t); err != nil {
				return err
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if updated == nil {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
			return nil
		})
		if err != nil {
			return err
		}
		redeemed = t
		return nil
	}

	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return redeemed, nil
	}
	return nil, fmt.Errorf("redeem token: %w", redis.TxFailedErr)
}

// DeleteExpired scans token keys and drops those expired before cutoff. Redis
// also evicts them on its own once the retention TTL lapses.
func (s *RedisStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	deleted := 0
	iter := s.client.Scan(ctx, 0, tokenKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("scan token: %w", err)
		}
		var rt redisToken
		if err := json.Unmarshal(raw, &rt); err != nil {
			continue
		}
		if !rt.ExpiresAt.Before(cutoff) {
			continue
		}
		n, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return deleted, fmt.Errorf("delete token: %w", err)
		}
		deleted += int(n)
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scan tokens: %w", err)
	}
	return deleted, nil
}
