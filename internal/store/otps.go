package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PutOTP stores the hash of a one-time code for email, replacing any code
// issued before.
func (s *Store) PutOTP(ctx context.Context, email, codeHash string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO otps (email, code_hash, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET code_hash = excluded.code_hash, expires_at = excluded.expires_at`,
		strings.ToLower(email), codeHash, unix(expiresAt))
	if err != nil {
		return fmt.Errorf("put otp: %w", err)
	}
	return nil
}

// TakeOTP removes and returns the code hash stored for email. Expired codes
// are removed too but reported as ErrNotFound.
func (s *Store) TakeOTP(ctx context.Context, email string, now time.Time) (string, error) {
	var (
		hash    string
		expires int64
	)
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM otps WHERE email = ? RETURNING code_hash, expires_at`, strings.ToLower(email)).
		Scan(&hash, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("take otp: %w", err)
	}
	if unix(now) > expires {
		return "", ErrNotFound
	}
	return hash, nil
}

// PurgeExpiredOTPs evicts every code that expired before now.
func (s *Store) PurgeExpiredOTPs(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM otps WHERE expires_at < ?`, unix(now))
	if err != nil {
		return 0, fmt.Errorf("purge otps: %w", err)
	}
	return res.RowsAffected()
}
