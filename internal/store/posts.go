package store

import (
	"context"
	"fmt"
	"time"
)

type PostStatus string

const (
	PostPending    PostStatus = "pending"
	PostProcessing PostStatus = "processing"
	PostCompleted  PostStatus = "completed"
	PostFailed     PostStatus = "failed"
)

type ScheduledPost struct {
	ID            int64      `json:"-"`
	PostID        string     `json:"post_id"`
	UserID        int64      `json:"user_id"`
	Platform      string     `json:"platform"`
	ContentType   string     `json:"content_type"`
	MediaPath     string     `json:"media_path"`
	ThumbnailPath string     `json:"thumbnail_path,omitempty"`
	Title         string     `json:"title,omitempty"`
	Caption       string     `json:"caption"`
	ScheduledTime string     `json:"scheduled_time"`
	DueAt         time.Time  `json:"due_at"`
	Status        PostStatus `json:"status"`
	Result        string     `json:"result,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

const postColumns = `id, post_id, user_id, platform, content_type, media_path, thumbnail_path, title, caption,
	scheduled_time, due_at, status, result, created_at, updated_at`

func (s *Store) AddPost(ctx context.Context, p *ScheduledPost) error {
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Status == "" {
		p.Status = PostPending
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_posts (post_id, user_id, platform, content_type, media_path, thumbnail_path, title, caption,
		   scheduled_time, due_at, status, result, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.PostID, p.UserID, p.Platform, p.ContentType, p.MediaPath, p.ThumbnailPath, p.Title, p.Caption,
		p.ScheduledTime, unix(p.DueAt), string(p.Status), p.Result, unix(now), unix(now))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("post %s: %w", p.PostID, ErrDuplicate)
		}
		return fmt.Errorf("add post: %w", err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// ClaimDuePosts moves up to limit pending posts that are due at now into
// processing and returns them. The single UPDATE makes the claim atomic, so
// a post is handed out at most once.
func (s *Store) ClaimDuePosts(ctx context.Context, now time.Time, limit int) ([]ScheduledPost, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`UPDATE scheduled_posts SET status = ?, updated_at = ?
		 WHERE id IN (
		   SELECT id FROM scheduled_posts WHERE status = ? AND due_at <= ? ORDER BY due_at, id LIMIT ?
		 )
		 RETURNING `+postColumns,
		string(PostProcessing), unix(now), string(PostPending), unix(now), limit)
	if err != nil {
		return nil, fmt.Errorf("claim posts: %w", err)
	}
	return scanPosts(rows)
}

func (s *Store) UpdatePostStatus(ctx context.Context, postID string, status PostStatus, result string) error {
	return s.execOne(ctx,
		`UPDATE scheduled_posts SET status = ?, result = ?, updated_at = ? WHERE post_id = ?`,
		string(status), result, unix(s.now()), postID)
}

// FailStalePosts marks posts left in processing since before cutoff as
// failed. They are not retried since the upstream call may have succeeded.
func (s *Store) FailStalePosts(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_posts SET status = ?, result = 'interrupted while processing', updated_at = ?
		 WHERE status = ? AND updated_at < ?`,
		string(PostFailed), unix(s.now()), string(PostProcessing), unix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("fail stale posts: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) ListPosts(ctx context.Context, userID int64) ([]ScheduledPost, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM scheduled_posts WHERE user_id = ? ORDER BY due_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return scanPosts(rows)
}

func (s *Store) PostByID(ctx context.Context, postID string) (*ScheduledPost, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM scheduled_posts WHERE post_id = ?`, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	posts, err := scanPosts(rows)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

type rowsScanner interface {
	Next() bool
	Scan(...any) error
	Err() error
	Close() error
}

func scanPosts(rows rowsScanner) ([]ScheduledPost, error) {
	defer rows.Close()

	var out []ScheduledPost
	for rows.Next() {
		var (
			p                 ScheduledPost
			status            string
			due, created, upd int64
		)
		if err := rows.Scan(&p.ID, &p.PostID, &p.UserID, &p.Platform, &p.ContentType, &p.MediaPath, &p.ThumbnailPath,
			&p.Title, &p.Caption, &p.ScheduledTime, &due, &status, &p.Result, &created, &upd); err != nil {
			return nil, err
		}
		p.Status = PostStatus(status)
		p.DueAt, p.CreatedAt, p.UpdatedAt = fromUnix(due), fromUnix(created), fromUnix(upd)
		out = append(out, p)
	}
	return out, rows.Err()
}
