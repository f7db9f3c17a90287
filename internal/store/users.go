package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID             int64
	Username       string
	Email          string
	PasswordHash   string
	UserType       string
	PublicEmail    bool
	DateRegistered time.Time
}

const userColumns = `id, username, email, password_hash, user_type, public_email, date_registered`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var (
		u          User
		publicFlag int
		registered int64
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.UserType, &publicFlag, &registered); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.PublicEmail = publicFlag == 1
	u.DateRegistered = fromUnix(registered)
	return &u, nil
}

// CreateUser inserts a user. Username and email are unique, case-insensitively.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	if u.DateRegistered.IsZero() {
		u.DateRegistered = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, user_type, public_email, date_registered)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, strings.ToLower(u.Email), u.PasswordHash, u.UserType, boolInt(u.PublicEmail), unix(u.DateRegistered))
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "username") {
				return fmt.Errorf("username %q: %w", u.Username, ErrDuplicate)
			}
			return fmt.Errorf("email %q: %w", u.Email, ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email)))
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (s *Store) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	return s.execOne(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, hash, userID)
}

func (s *Store) SetPublicEmail(ctx context.Context, userID int64, visible bool) error {
	return s.execOne(ctx, `UPDATE users SET public_email = ? WHERE id = ?`, boolInt(visible), userID)
}

// SearchInfluencers returns influencers whose username or linked channel
// title matches query. An empty query lists all influencers.
func (s *Store) SearchInfluencers(ctx context.Context, query string, limit int) ([]User, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT u.id, u.username, u.email, u.password_hash, u.user_type, u.public_email, u.date_registered
		 FROM users u LEFT JOIN youtube_channels c ON c.user_id = u.id
		 WHERE u.user_type = 'influencer'
		   AND (LOWER(u.username) LIKE ? OR LOWER(COALESCE(c.title, '')) LIKE ?)
		 ORDER BY u.username LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search influencers: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *Store) execOne(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
