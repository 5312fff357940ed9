package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/jobchat-core/server/internal/agent/model"
	errx "github.com/jobchat-core/server/internal/core/error"
	"github.com/jobchat-core/server/internal/metrics"
	logx "github.com/jobchat-core/server/pkg/logger"
)

const keyPrefix = "conversation:"

// stateRecord is the state key payload. Messages live in their own list.
type stateRecord struct {
	SessionID     string                `json:"session_id"`
	Phase         model.Phase           `json:"phase"`
	Slots         map[model.Slot]string `json:"slots"`
	Language      model.Language        `json:"language,omitempty"`
	HistoryLength int                   `json:"history_length"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// RedisConversationStore keeps sessions in Redis. Expiry is left to key TTLs,
// refreshed on every save.
type RedisConversationStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var _ model.ConversationStore = (*RedisConversationStore)(nil)

func NewRedisConversationStore(rdb redis.Cmdable, ttl time.Duration) *RedisConversationStore {
	return &RedisConversationStore{rdb: rdb, ttl: ttl}
}

func (r *RedisConversationStore) stateKey(sessionID string) string {
	return fmt.Sprintf("%s%s:state", keyPrefix, sessionID)
}

func (r *RedisConversationStore) messagesKey(sessionID string) string {
	return fmt.Sprintf("%s%s:messages", keyPrefix, sessionID)
}

func (r *RedisConversationStore) Load(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	rec, err := r.loadRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	key := r.messagesKey(sessionID)
	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation history from redis")
		return nil, errx.WrapRedis(err)
	}
	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}

	slots := rec.Slots
	if slots == nil {
		slots = map[model.Slot]string{}
	}
	return &model.ConversationState{
		SessionID: rec.SessionID,
		Phase:     rec.Phase,
		Slots:     slots,
		History:   msgs,
		Language:  rec.Language,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

func (r *RedisConversationStore) loadRecord(ctx context.Context, sessionID string) (*stateRecord, error) {
	key := r.stateKey(sessionID)
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errx.ErrSessionNotFound
	}
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load conversation state from redis")
		return nil, errx.WrapRedis(err)
	}
	var rec stateRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal state %s: %w", key, err)
	}
	return &rec, nil
}

// Save writes the state and appends the messages not stored yet. A history
// shorter than the stored one replaces the list.
func (r *RedisConversationStore) Save(ctx context.Context, state *model.ConversationState) error {
	mkey := r.messagesKey(state.SessionID)
	stored, err := r.rdb.LLen(ctx, mkey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", mkey).Msg("failed to get message count from redis")
		return errx.WrapRedis(err)
	}

	from := int(stored)
	rewrite := from > len(state.History)
	if rewrite {
		from = 0
	}
	pending := make([]any, 0, len(state.History)-from)
	for _, m := range state.History[from:] {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("session_id", state.SessionID).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		pending = append(pending, b)
	}
	rec, err := json.Marshal(stateRecord{
		SessionID:     state.SessionID,
		Phase:         state.Phase,
		Slots:         state.Slots,
		Language:      state.Language,
		HistoryLength: len(state.History),
		CreatedAt:     state.CreatedAt,
		UpdatedAt:     state.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	skey := r.stateKey(state.SessionID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if rewrite {
			p.Del(ctx, mkey)
		}
		p.Set(ctx, skey, rec, r.ttl)
		if len(pending) > 0 {
			p.RPush(ctx, mkey, pending...)
		}
		// extend TTL on touch
		if r.ttl > 0 {
			p.Expire(ctx, mkey, r.ttl)
		}
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("session_id", state.SessionID).Msg("failed to save conversation to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisConversationStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, r.stateKey(sessionID), r.messagesKey(sessionID)).Err(); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to delete conversation from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

// List scans the state keys. Sessions that expire mid-scan are skipped.
func (r *RedisConversationStore) List(ctx context.Context) ([]model.SessionSummary, error) {
	var out []model.SessionSummary
	iter := r.rdb.Scan(ctx, 0, keyPrefix+"*:state", 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimSuffix(strings.TrimPrefix(iter.Val(), keyPrefix), ":state")
		rec, err := r.loadRecord(ctx, id)
		if errors.Is(err, errx.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, model.SessionSummary{
			SessionID:     rec.SessionID,
			Phase:         rec.Phase,
			HistoryLength: rec.HistoryLength,
			CreatedAt:     rec.CreatedAt,
			UpdatedAt:     rec.UpdatedAt,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, errx.WrapRedis(err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	metrics.ActiveSessions.Set(float64(len(out)))
	return out, nil
}

// Cleanup is a no-op: Redis expires idle sessions itself.
func (r *RedisConversationStore) Cleanup(ctx context.Context) (int, error) {
	return 0, nil
}
