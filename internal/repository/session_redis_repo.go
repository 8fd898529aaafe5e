package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/essay-grader/internal/models"
)

// ErrSessionIDRequired indicates an empty session identifier.
var ErrSessionIDRequired = errors.New("session id is required")

// ErrSessionConflict indicates concurrent writers kept invalidating an update.
var ErrSessionConflict = errors.New("session update conflict")

const maxSessionTxAttempts = 5

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type redisSessionRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisSessionRepository constructs a session store shared between server instances.
func NewRedisSessionRepository(client *redis.Client, prefix string, ttl time.Duration) SessionRepository {
	if prefix == "" {
		prefix = "essay:session"
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &redisSessionRepository{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *redisSessionRepository) key(id string) string {
	return fmt.Sprintf("%s:%s", r.prefix, id)
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (models.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Session{}, ErrSessionIDRequired
	}
	return r.read(ctx, r.client, id)
}

func (r *redisSessionRepository) Update(ctx context.Context, id string, mutate SessionMutator) (models.Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Session{}, ErrSessionIDRequired
	}

	key := r.key(id)
	var updated models.Session

	txf := func(tx *redis.Tx) error {
		session, err := r.read(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(&session); err != nil {
			return err
		}

		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		updated = session
		return nil
	}

	for attempt := 0; attempt < maxSessionTxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return models.Session{}, err
	}

	return models.Session{}, ErrSessionConflict
}

func (r *redisSessionRepository) read(ctx context.Context, cmd stringGetter, id string) (models.Session, error) {
	raw, err := cmd.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.NewSession(id, r.now()), nil
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("read session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return models.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}
