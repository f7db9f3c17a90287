package store

import (
	"context"
	"fmt"
	"time"
)

type Channel struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	ChannelID       string    `json:"channel_id"`
	Title           string    `json:"title"`
	SubscriberCount int64     `json:"subscriber_count"`
	VideoCount      int64     `json:"video_count"`
	ViewCount       int64     `json:"view_count"`
	DateAdded       time.Time `json:"date_added"`
	LastUpdated     time.Time `json:"last_updated"`
}

// UpsertChannel links a channel to a user, or refreshes its counters when it
// is already linked.
func (s *Store) UpsertChannel(ctx context.Context, c *Channel) error {
	now := unix(s.now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO youtube_channels (user_id, channel_id, title, subscriber_count, video_count, view_count, date_added, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, channel_id) DO UPDATE SET
		   title = excluded.title,
		   subscriber_count = excluded.subscriber_count,
		   video_count = excluded.video_count,
		   view_count = excluded.view_count,
		   last_updated = excluded.last_updated`,
		c.UserID, c.ChannelID, c.Title, c.SubscriberCount, c.VideoCount, c.ViewCount, now, now)
	if err != nil {
		return fmt.Errorf("upsert channel %s: %w", c.ChannelID, err)
	}
	return nil
}

func (s *Store) ChannelsByUser(ctx context.Context, userID int64) ([]Channel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, channel_id, title, subscriber_count, video_count, view_count, date_added, last_updated
		 FROM youtube_channels WHERE user_id = ? ORDER BY date_added, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []Channel
	for rows.Next() {
		var (
			c          Channel
			added, upd int64
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.ChannelID, &c.Title, &c.SubscriberCount, &c.VideoCount, &c.ViewCount, &added, &upd); err != nil {
			return nil, err
		}
		c.DateAdded, c.LastUpdated = fromUnix(added), fromUnix(upd)
		out = append(out, c)
	}
	return out, rows.Err()
}
