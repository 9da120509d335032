// Package cache publishes game action records to Redis for the
// historian pipeline. The client is optional: when Rdb is nil every
// publish is a no-op and gameplay is unaffected.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Rdb is the shared Redis client. Nil when Redis is not configured.
var Rdb *redis.Client

// InitRedis connects the shared client and verifies it with a ping.
func InitRedis(ctx context.Context, addr, password string, db int) error {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	Rdb = client
	logrus.WithField("addr", addr).Info("redis connected")
	return nil
}

// Close releases the shared client.
func Close() {
	if Rdb != nil {
		_ = Rdb.Close()
		Rdb = nil
	}
}

// GameActionRecord is one historian entry: a single player or timer
// action applied to a room's game, ordered by ActionIndex.
type GameActionRecord struct {
	RoomID      string                 `json:"roomId"`
	ActionIndex int                    `json:"actionIndex"`
	ActorName   string                 `json:"actorName"`
	ActionType  string                 `json:"actionType"`
	Payload     map[string]interface{} `json:"payload"`
	Timestamp   int64                  `json:"timestamp"`
}

// actionListKey returns the per-room list key actions are appended to.
func actionListKey(roomID string) string {
	return fmt.Sprintf("game:%s:actions", roomID)
}

// PublishGameAction appends the record to the room's action list.
// Callers must check Rdb for nil first.
func PublishGameAction(ctx context.Context, rec GameActionRecord) error {
	if Rdb == nil {
		return fmt.Errorf("redis client not initialized")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}
	if err := Rdb.RPush(ctx, actionListKey(rec.RoomID), data).Err(); err != nil {
		return fmt.Errorf("rpush action record: %w", err)
	}
	return nil
}

// PurgeGameActions drops the room's action list once the history row
// has been written, so abandoned rooms do not accumulate in Redis.
func PurgeGameActions(ctx context.Context, roomID string) error {
	if Rdb == nil {
		return nil
	}
	return Rdb.Del(ctx, actionListKey(roomID)).Err()
}
