package storage

import (
	"context"

	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

const waitlistColumns = `id::text, COALESCE(user_id::text, ''), created_at, service_id, service_name,
	COALESCE(email, ''), COALESCE(phone, ''), COALESCE(note, '')`

func scanWaitlist(row scanner) (model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	err := row.Scan(&e.ID, &e.UserID, &e.CreatedAt, &e.ServiceID, &e.ServiceName, &e.Email, &e.Phone, &e.Note)
	return e, err
}

func (s *Store) CreateWaitlistEntry(ctx context.Context, e model.WaitlistEntry) (model.WaitlistEntry, error) {
	out, err := scanWaitlist(s.db.QueryRow(ctx, `
		INSERT INTO waitlist (user_id, service_id, service_name, email, phone, note)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+waitlistColumns,
		e.UserID, e.ServiceID, e.ServiceName, e.Email, e.Phone, e.Note))
	return out, mapWriteErr(err)
}

// ListWaitlist lists entries newest first, scoped to userID unless empty.
func (s *Store) ListWaitlist(ctx context.Context, userID string) ([]model.WaitlistEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist
		WHERE ($1 = '' OR user_id::text = $1)
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WaitlistEntry
	for rows.Next() {
		e, err := scanWaitlist(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) GetWaitlistEntry(ctx context.Context, id string) (model.WaitlistEntry, error) {
	if id == "" {
		return model.WaitlistEntry{}, errEmptyID
	}
	e, err := scanWaitlist(s.db.QueryRow(ctx, `
		SELECT `+waitlistColumns+`
		FROM waitlist
		WHERE id::text = $1
	`, id))
	return e, mapWriteErr(err)
}

func (s *Store) DeleteWaitlistEntry(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM waitlist WHERE id::text = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *txStore) DeleteWaitlistByUser(ctx context.Context, userID string) (int64, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM waitlist WHERE user_id::text = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
