package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smacontrol/sma/internal/model"
)

// ErrNotFound is returned by Lookup for an unknown subject.
var ErrNotFound = errors.New("registry: not found")

const selectRegistration = `SELECT id, subject, issuer, first_seen, last_seen, request_count FROM registrations`

// Register records a call for r.Subject. The first call creates the row
// with a fresh id; later calls bump LastSeen and RequestCount. A zero
// r.LastSeen means now.
func (s *Store) Register(ctx context.Context, r model.Registration) (model.Registration, error) {
	if r.Subject == "" {
		return model.Registration{}, errors.New("registry: register: empty subject")
	}
	seen := r.LastSeen
	if seen.IsZero() {
		seen = time.Now()
	}
	seen = seen.UTC()

	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Registration{}, fmt.Errorf("registry: register: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registrations (subject, id, issuer, first_seen, last_seen, request_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT (subject) DO UPDATE SET
			last_seen = excluded.last_seen,
			issuer = excluded.issuer,
			request_count = registrations.request_count + 1`,
		r.Subject, uuid.NewString(), r.Issuer, seen, seen,
	)
	if err != nil {
		return model.Registration{}, fmt.Errorf("registry: register %s: %w", r.Subject, err)
	}

	out, err := scanRegistration(tx.QueryRowContext(ctx, selectRegistration+` WHERE subject = ?`, r.Subject))
	if err != nil {
		return model.Registration{}, fmt.Errorf("registry: register %s: %w", r.Subject, err)
	}
	if err := tx.Commit(); err != nil {
		return model.Registration{}, fmt.Errorf("registry: register %s: commit: %w", r.Subject, err)
	}
	return out, nil
}

// Lookup returns the registration for subject.
func (s *Store) Lookup(ctx context.Context, subject string) (model.Registration, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	r, err := scanRegistration(s.db.QueryRowContext(ctx, selectRegistration+` WHERE subject = ?`, subject))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Registration{}, ErrNotFound
	}
	if err != nil {
		return model.Registration{}, fmt.Errorf("registry: lookup %s: %w", subject, err)
	}
	return r, nil
}

// Recent returns up to limit registrations, most recently seen first.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.Registration, error) {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectRegistration+` ORDER BY last_seen DESC, subject LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("registry: recent: %w", err)
	}
	defer rows.Close()

	var out []model.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("registry: recent: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RegistrationCount returns the number of known subjects.
func (s *Store) RegistrationCount(ctx context.Context) (int64, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("registry: count: %w", err)
	}
	return n, nil
}

// DeleteBefore removes registrations last seen before cutoff and returns how
// many were removed.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM registrations WHERE last_seen < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("registry: delete before: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (model.Registration, error) {
	var (
		r      model.Registration
		issuer sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Subject, &issuer, &r.FirstSeen, &r.LastSeen, &r.RequestCount); err != nil {
		return model.Registration{}, err
	}
	r.Issuer = issuer.String
	return r, nil
}
