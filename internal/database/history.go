package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// SaveGameHistory writes one completed game record. Callers run this
// asynchronously after checking Pool for nil, matching the pattern
// used everywhere persistence is optional.
func SaveGameHistory(ctx context.Context, h models.GameHistory) error {
	if Pool == nil {
		return fmt.Errorf("database pool not initialized")
	}
	players, err := json.Marshal(h.Players)
	if err != nil {
		return fmt.Errorf("marshal history players: %w", err)
	}
	doc, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	_, err = Pool.Exec(ctx,
		`INSERT INTO game_history (room_id, room_name, winner_name, players, doc, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		h.RoomID, h.RoomName, h.Winner.PlayerName, players, doc, h.StartedAt, h.EndedAt)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// StoreGameHistory is the fire-and-forget wrapper used at game end.
func StoreGameHistory(h models.GameHistory) {
	if Pool == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := SaveGameHistory(ctx, h); err != nil {
			logrus.WithError(err).WithField("roomId", h.RoomID).Error("failed to save game history")
		}
	}()
}

// GetPlayerStats aggregates a player's completed games by name. Games
// the player appeared in are counted from the players document; wins
// come from the winner column.
func GetPlayerStats(ctx context.Context, playerName string) (*models.PlayerStats, error) {
	if Pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}
	var total, wins int
	err := Pool.QueryRow(ctx,
		`SELECT
			count(*) FILTER (WHERE players @> $2::jsonb),
			count(*) FILTER (WHERE winner_name = $1)
		 FROM game_history`,
		playerName, fmt.Sprintf(`[{"playerName":%q}]`, playerName)).Scan(&total, &wins)
	if err != nil {
		return nil, fmt.Errorf("player stats: %w", err)
	}
	stats := &models.PlayerStats{
		TotalGames: total,
		Wins:       wins,
		Losses:     total - wins,
	}
	if total > 0 {
		stats.WinRate = float64(wins) / float64(total)
	}
	return stats, nil
}
