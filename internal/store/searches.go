package store

import (
	"context"
	"fmt"
	"time"
)

type SearchKind string

const (
	SearchStats    SearchKind = "stats"
	SearchDemo     SearchKind = "demo"
	SearchAnalysis SearchKind = "analysis"
)

type Search struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"user_id"`
	Query      string     `json:"query"`
	VideoID    string     `json:"video_id,omitempty"`
	Kind       SearchKind `json:"search_type"`
	SearchedAt time.Time  `json:"search_date"`
}

func (s *Store) AddSearch(ctx context.Context, userID int64, query, videoID string, kind SearchKind) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO searches (user_id, query, video_id, search_type, searched_at) VALUES (?, ?, ?, ?, ?)`,
		userID, query, videoID, string(kind), unix(s.now()))
	if err != nil {
		return fmt.Errorf("add search: %w", err)
	}
	return nil
}

// RecentSearches returns the newest searches of a user first.
func (s *Store) RecentSearches(ctx context.Context, userID int64, limit int) ([]Search, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, query, COALESCE(video_id, ''), search_type, searched_at
		 FROM searches WHERE user_id = ? ORDER BY searched_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent searches: %w", err)
	}
	defer rows.Close()

	var out []Search
	for rows.Next() {
		var (
			sr   Search
			kind string
			at   int64
		)
		if err := rows.Scan(&sr.ID, &sr.UserID, &sr.Query, &sr.VideoID, &kind, &at); err != nil {
			return nil, err
		}
		sr.Kind = SearchKind(kind)
		sr.SearchedAt = fromUnix(at)
		out = append(out, sr)
	}
	return out, rows.Err()
}
