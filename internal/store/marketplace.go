package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Rental struct {
	ID                  string    `json:"rental_id"`
	UserID              int64     `json:"user_id"`
	InfluencerID        string    `json:"influencer_id"`
	StartDate           string    `json:"start_date"`
	EndDate             string    `json:"end_date"`
	DurationDays        int       `json:"duration_days"`
	CampaignName        string    `json:"campaign_name"`
	CampaignDescription string    `json:"campaign_description"`
	TotalCost           float64   `json:"total_cost"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
}

type Subscription struct {
	ID             string            `json:"subscription_id"`
	UserID         int64             `json:"user_id"`
	AgentID        string            `json:"agent_id"`
	StartDate      string            `json:"start_date"`
	EndDate        string            `json:"end_date"`
	Months         int               `json:"months"`
	Platforms      []string          `json:"platforms"`
	AccountDetails map[string]string `json:"account_details,omitempty"`
	TotalCost      float64           `json:"total_cost"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}

const rentalColumns = `id, user_id, influencer_id, start_date, end_date, duration_days, campaign_name, campaign_description, total_cost, status, created_at`

func (s *Store) AddRental(ctx context.Context, r *Rental) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rentals (`+rentalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.InfluencerID, r.StartDate, r.EndDate, r.DurationDays, r.CampaignName, r.CampaignDescription,
		r.TotalCost, r.Status, unix(r.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("rental %s: %w", r.ID, ErrDuplicate)
		}
		return fmt.Errorf("add rental: %w", err)
	}
	return nil
}

func scanRental(row interface{ Scan(...any) error }) (*Rental, error) {
	var (
		r  Rental
		at int64
	)
	err := row.Scan(&r.ID, &r.UserID, &r.InfluencerID, &r.StartDate, &r.EndDate, &r.DurationDays, &r.CampaignName,
		&r.CampaignDescription, &r.TotalCost, &r.Status, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.CreatedAt = fromUnix(at)
	return &r, nil
}

func (s *Store) RentalByID(ctx context.Context, id string) (*Rental, error) {
	return scanRental(s.db.QueryRowContext(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE id = ?`, id))
}

func (s *Store) RentalsByUser(ctx context.Context, userID int64) ([]Rental, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list rentals: %w", err)
	}
	defer rows.Close()

	var out []Rental
	for rows.Next() {
		r, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

const subscriptionColumns = `id, user_id, agent_id, start_date, end_date, months, platforms, account_details, total_cost, status, created_at`

func (s *Store) AddSubscription(ctx context.Context, sub *Subscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	details, err := json.Marshal(sub.AccountDetails)
	if err != nil {
		return fmt.Errorf("encode account details: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.UserID, sub.AgentID, sub.StartDate, sub.EndDate, sub.Months, strings.Join(sub.Platforms, ","),
		string(details), sub.TotalCost, sub.Status, unix(sub.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("subscription %s: %w", sub.ID, ErrDuplicate)
		}
		return fmt.Errorf("add subscription: %w", err)
	}
	return nil
}

func scanSubscription(row interface{ Scan(...any) error }) (*Subscription, error) {
	var (
		sub                Subscription
		platforms, details string
		at                 int64
	)
	err := row.Scan(&sub.ID, &sub.UserID, &sub.AgentID, &sub.StartDate, &sub.EndDate, &sub.Months, &platforms, &details,
		&sub.TotalCost, &sub.Status, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if platforms != "" {
		sub.Platforms = strings.Split(platforms, ",")
	}
	if details != "" && details != "null" {
		if err := json.Unmarshal([]byte(details), &sub.AccountDetails); err != nil {
			return nil, fmt.Errorf("decode account details: %w", err)
		}
	}
	sub.CreatedAt = fromUnix(at)
	return &sub, nil
}

func (s *Store) SubscriptionByID(ctx context.Context, id string) (*Subscription, error) {
	return scanSubscription(s.db.QueryRowContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id))
}

func (s *Store) SubscriptionsByUser(ctx context.Context, userID int64) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

type GeneratedImage struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id,omitempty"`
	Prompt     string    `json:"prompt"`
	BrandName  string    `json:"brand_name,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Store) AddGeneratedImage(ctx context.Context, img *GeneratedImage) error {
	if img.CreatedAt.IsZero() {
		img.CreatedAt = s.now()
	}
	var userID any
	if img.UserID != 0 {
		userID = img.UserID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO generated_images (user_id, prompt, brand_name, output_path, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, img.Prompt, img.BrandName, img.OutputPath, img.ImageURL, unix(img.CreatedAt))
	if err != nil {
		return fmt.Errorf("add generated image: %w", err)
	}
	img.ID, err = res.LastInsertId()
	return err
}
