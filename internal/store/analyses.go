package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Analysis is one creator/sponsor observation produced by content analysis.
type Analysis struct {
	ID                int64     `json:"id"`
	CreatedAt         time.Time `json:"timestamp"`
	YouTubeURL        string    `json:"youtube_url"`
	CreatorName       string    `json:"creator_name"`
	CreatorIndustry   string    `json:"creator_industry"`
	SponsorName       string    `json:"sponsor_name"`
	SponsorIndustry   string    `json:"sponsor_industry"`
	TranscriptSummary string    `json:"transcript_summary,omitempty"`
}

const analysisColumns = `id, created_at, youtube_url, creator_name, creator_industry, sponsor_name, sponsor_industry, transcript_summary`

func (s *Store) AddAnalysis(ctx context.Context, a *Analysis) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (created_at, youtube_url, creator_name, creator_industry, sponsor_name, sponsor_industry, transcript_summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		unix(a.CreatedAt), a.YouTubeURL, a.CreatorName, a.CreatorIndustry, a.SponsorName, a.SponsorIndustry, a.TranscriptSummary)
	if err != nil {
		return fmt.Errorf("add analysis: %w", err)
	}
	a.ID, err = res.LastInsertId()
	return err
}

// ListAnalyses returns analyses oldest first. limit <= 0 returns every row.
func (s *Store) ListAnalyses(ctx context.Context, limit int) ([]Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses ORDER BY created_at, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryAnalyses(ctx, q, args...)
}

// MatchAnalyses returns rows where any keyword occurs in any text column,
// case-insensitively.
func (s *Store) MatchAnalyses(ctx context.Context, keywords []string, limit int) ([]Analysis, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	cols := []string{"youtube_url", "creator_name", "creator_industry", "sponsor_name", "sponsor_industry", "transcript_summary"}
	var (
		clauses []string
		args    []any
	)
	for _, kw := range keywords {
		pattern := "%" + strings.ToLower(kw) + "%"
		for _, col := range cols {
			clauses = append(clauses, "LOWER("+col+") LIKE ?")
			args = append(args, pattern)
		}
	}
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE ` + strings.Join(clauses, " OR ") + ` ORDER BY created_at, id`
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryAnalyses(ctx, q, args...)
}

func (s *Store) queryAnalyses(ctx context.Context, q string, args ...any) ([]Analysis, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		var (
			a  Analysis
			at int64
		)
		if err := rows.Scan(&a.ID, &at, &a.YouTubeURL, &a.CreatorName, &a.CreatorIndustry, &a.SponsorName, &a.SponsorIndustry, &a.TranscriptSummary); err != nil {
			return nil, err
		}
		a.CreatedAt = fromUnix(at)
		out = append(out, a)
	}
	return out, rows.Err()
}

// SponsorCreator is one edge candidate of the relationship graph.
type SponsorCreator struct {
	Sponsor string
	Creator string
}

// SponsorCreatorPairs returns the (sponsor, creator) pair of every analysis,
// blank ones included.
func (s *Store) SponsorCreatorPairs(ctx context.Context) ([]SponsorCreator, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT sponsor_name, creator_name FROM analyses ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query sponsor pairs: %w", err)
	}
	defer rows.Close()

	var out []SponsorCreator
	for rows.Next() {
		var p SponsorCreator
		if err := rows.Scan(&p.Sponsor, &p.Creator); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
