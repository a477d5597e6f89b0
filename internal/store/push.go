package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fernwood/starquest/internal/model"
)

type PushStore struct {
	db *sql.DB
}

func NewPushStore(db *sql.DB) *PushStore {
	return &PushStore{db: db}
}

const pushCols = `id, member_id, endpoint, p256dh_key, auth_key, user_agent, created_at`

func scanSubscription(scanner interface{ Scan(...any) error }) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := scanner.Scan(&sub.ID, &sub.MemberID, &sub.Endpoint, &sub.P256dhKey, &sub.AuthKey, &sub.UserAgent, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Subscribe upserts a subscription by endpoint so re-registering a
// browser never duplicates rows.
func (s *PushStore) Subscribe(ctx context.Context, memberID int64, endpoint, p256dh, auth, userAgent string) (*model.PushSubscription, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO push_subscriptions (member_id, endpoint, p256dh_key, auth_key, user_agent)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint) DO UPDATE SET member_id = excluded.member_id,
			p256dh_key = excluded.p256dh_key, auth_key = excluded.auth_key, user_agent = excluded.user_agent`,
		memberID, endpoint, p256dh, auth, userAgent,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+pushCols+` FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	return scanSubscription(row)
}

func (s *PushStore) ListByMember(ctx context.Context, memberID int64) ([]model.PushSubscription, error) {
	return s.list(ctx, `SELECT `+pushCols+` FROM push_subscriptions WHERE member_id = ?`, memberID)
}

// ListByFamily returns the subscriptions of every member in a family.
func (s *PushStore) ListByFamily(ctx context.Context, familyID int64) ([]model.PushSubscription, error) {
	return s.list(ctx,
		`SELECT p.id, p.member_id, p.endpoint, p.p256dh_key, p.auth_key, p.user_agent, p.created_at
		 FROM push_subscriptions p
		 JOIN members m ON m.id = p.member_id
		 WHERE m.family_id = ?`,
		familyID)
}

func (s *PushStore) list(ctx context.Context, query string, arg int64) ([]model.PushSubscription, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.PushSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (s *PushStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return nil
}

// DeleteByEndpoint removes a subscription the push service reported gone.
func (s *PushStore) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("delete subscription by endpoint: %w", err)
	}
	return nil
}
