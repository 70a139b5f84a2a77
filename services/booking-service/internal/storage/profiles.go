package storage

import (
	"context"
	"strings"

	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

const profileColumns = `id::text, COALESCE(email, ''), COALESCE(full_name, ''), COALESCE(phone, ''),
	COALESCE(address, ''), COALESCE(avatar_url, ''), COALESCE(role, 'customer')`

func scanProfile(row scanner) (model.Profile, error) {
	var p model.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.Phone, &p.Address, &p.AvatarURL, &p.Role)
	return p, err
}

func (s *Store) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx, `
		SELECT `+profileColumns+`
		FROM profiles
		WHERE id::text = $1
	`, userID))
	return p, mapWriteErr(err)
}

// UpsertProfile writes the caller-editable profile fields. Role and avatar
// are left untouched on update.
func (s *Store) UpsertProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	out, err := scanProfile(s.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email, full_name, phone, address)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET email = COALESCE(EXCLUDED.email, profiles.email),
			full_name = EXCLUDED.full_name,
			phone = EXCLUDED.phone,
			address = EXCLUDED.address,
			updated_at = now()
		RETURNING `+profileColumns,
		p.ID, p.Email, p.FullName, p.Phone, p.Address))
	return out, mapWriteErr(err)
}

func (s *Store) SetAvatarURL(ctx context.Context, userID, url string) (model.Profile, error) {
	out, err := scanProfile(s.db.QueryRow(ctx, `
		INSERT INTO profiles (id, avatar_url)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET avatar_url = EXCLUDED.avatar_url, updated_at = now()
		RETURNING `+profileColumns,
		userID, url))
	return out, mapWriteErr(err)
}

func (s *Store) SetRoleByEmail(ctx context.Context, email, role string) (model.UserRole, error) {
	var u model.UserRole
	err := s.db.QueryRow(ctx, `
		UPDATE profiles
		SET role = $2, updated_at = now()
		WHERE lower(email) = $1
		RETURNING id::text, COALESCE(email, ''), role
	`, strings.ToLower(strings.TrimSpace(email)), role).Scan(&u.ID, &u.Email, &u.Role)
	return u, mapWriteErr(err)
}

func (s *Store) ListUsers(ctx context.Context, limit int) ([]model.UserRole, error) {
	if limit <= 0 || limit > 500 {
		limit = 120
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, COALESCE(email, ''), COALESCE(role, 'customer')
		FROM profiles
		ORDER BY email NULLS LAST
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.UserRole
	for rows.Next() {
		var u model.UserRole
		if err := rows.Scan(&u.ID, &u.Email, &u.Role); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
