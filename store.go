package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ProfileStore is the read/write surface over the shared profiles table.
// The feed logic only talks to this interface so tests can substitute an
// in-memory implementation.
type ProfileStore interface {
	// FetchPage returns up to limit profiles ordered by creation time
	// descending, excluding profiles owned by viewerID and any profile whose
	// id appears in exclude. The second return value is the next offset.
	FetchPage(ctx context.Context, viewerID string, exclude []string, offset, limit int) ([]Profile, int, error)
	InsertProfile(ctx context.Context, p *Profile) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	CountVisible(ctx context.Context, viewerID string) (int, error)
}

// DecisionLog is the append-only decision surface. Decisions are never
// updated or deleted once written.
type DecisionLog interface {
	InsertDecision(ctx context.Context, d *Decision) error
	DecidedProfileIDs(ctx context.Context, viewerID string) ([]string, error)
}

type postgresStore struct {
	db *sql.DB
}

func newPostgresStore(db *sql.DB) *postgresStore {
	return &postgresStore{db: db}
}

const profileColumns = "id, owner_id, alias, age, bio, portrait_url, contact_handle, created_at"

// FetchPage builds one of two query shapes. An `id = ANY(...)` clause over an
// empty array is not the same thing as "no filter" to the planner, so the
// no-exclusions case gets its own query rather than passing an empty set.
func (s *postgresStore) FetchPage(ctx context.Context, viewerID string, exclude []string, offset, limit int) ([]Profile, int, error) {
	var rows *sql.Rows
	var err error
	if len(exclude) > 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+profileColumns+`
			FROM profiles
			WHERE owner_id <> $1
			  AND NOT (id = ANY($2))
			ORDER BY created_at DESC, id DESC
			OFFSET $3 LIMIT $4
		`, viewerID, pq.Array(exclude), offset, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+profileColumns+`
			FROM profiles
			WHERE owner_id <> $1
			ORDER BY created_at DESC, id DESC
			OFFSET $2 LIMIT $3
		`, viewerID, offset, limit)
	}
	if err != nil {
		return nil, offset, err
	}
	defer rows.Close()

	var page []Profile
	for rows.Next() {
		var p Profile
		var portrait sql.NullString
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Alias, &p.Age, &p.Bio, &portrait, &p.Contact, &p.CreatedAt); err != nil {
			return nil, offset, err
		}
		p.PortraitURL = portrait.String
		page = append(page, p)
	}
	if err := rows.Err(); err != nil {
		return nil, offset, err
	}
	return page, offset + len(page), nil
}

func (s *postgresStore) InsertProfile(ctx context.Context, p *Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO profiles (id, owner_id, alias, age, bio, portrait_url, contact_handle)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, p.ID, p.OwnerID, p.Alias, p.Age, p.Bio, p.PortraitURL, p.Contact).Scan(&p.CreatedAt)
}

func (s *postgresStore) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	var portrait sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.OwnerID, &p.Alias, &p.Age, &p.Bio, &portrait, &p.Contact, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.PortraitURL = portrait.String
	return &p, nil
}

func (s *postgresStore) CountVisible(ctx context.Context, viewerID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM profiles WHERE owner_id <> $1", viewerID).Scan(&n)
	return n, err
}

// InsertDecision relies on the (viewer_id, profile_id) unique constraint to
// keep the log append-only: a duplicate submission is silently absorbed and
// the original row wins.
func (s *postgresStore) InsertDecision(ctx context.Context, d *Decision) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO decisions (viewer_id, profile_id, outcome)
		VALUES ($1, $2, $3)
		ON CONFLICT (viewer_id, profile_id) DO NOTHING
		RETURNING created_at
	`, d.ViewerID, d.ProfileID, string(d.Outcome)).Scan(&d.CreatedAt)
	if err == sql.ErrNoRows {
		// Already decided earlier; keep the caller's timestamp for logging.
		if d.CreatedAt.IsZero() {
			d.CreatedAt = time.Now().UTC()
		}
		return nil
	}
	return err
}

func (s *postgresStore) DecidedProfileIDs(ctx context.Context, viewerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT profile_id FROM decisions WHERE viewer_id = $1", viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
