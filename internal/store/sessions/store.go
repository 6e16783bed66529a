// Package sessions keeps in-progress questionnaires in Redis so a client can
// answer one question per request.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bvester-assessment/internal/assessment"
	"bvester-assessment/internal/common/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "assessment:session:"

// maxTxRetries bounds optimistic-lock retries in RecordAnswer.
const maxTxRetries = 5

var ErrSessionNotFound = errors.New("session not found")

type Session struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId,omitempty"`
	CatalogVersion string             `json:"catalogVersion"`
	CurrentIndex   int                `json:"currentIndex"`
	Answers        assessment.Answers `json:"answers"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type Store struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
	now func() time.Time
}

func NewStore(rdb *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
		log: logger.ForComponent(log, "session-store"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func Key(id string) string {
	return keyPrefix + id
}

// Create starts an empty session positioned before the first question.
func (s *Store) Create(ctx context.Context, userID, catalogVersion string) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		CatalogVersion: catalogVersion,
		CurrentIndex:   -1,
		Answers:        assessment.Answers{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("session created", map[string]interface{}{"sessionId": sess.ID})
	return sess, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	return s.get(ctx, s.rdb, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) get(ctx context.Context, c getter, id string) (*Session, error) {
	raw, err := c.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if sess.Answers == nil {
		sess.Answers = assessment.Answers{}
	}
	return &sess, nil
}

// Save writes the session and refreshes its TTL.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	if err := s.rdb.Set(ctx, Key(sess.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// RecordAnswer stores one answer and moves the cursor to answeredIndex in a
// single optimistic transaction. A nil value removes the answer.
func (s *Store) RecordAnswer(ctx context.Context, id, questionID string, value interface{}, answeredIndex int) (*Session, error) {
	var updated *Session
	key := Key(id)

	txf := func(tx *redis.Tx) error {
		sess, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if value == nil {
			delete(sess.Answers, questionID)
		} else {
			sess.Answers[questionID] = value
		}
		sess.CurrentIndex = answeredIndex
		sess.UpdatedAt = s.now()

		raw, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("encode session %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		if err == nil {
			updated = sess
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("record answer on session %s: too much contention", id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	n, err := s.rdb.Del(ctx, Key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Ping satisfies database.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
