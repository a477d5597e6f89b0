package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fernwood/starquest/internal/model"
)

type MemberStore struct {
	db *sql.DB
}

func NewMemberStore(db *sql.DB) *MemberStore {
	return &MemberStore{db: db}
}

const memberCols = `id, name, email, password_hash, role, avatar_emoji, stars, coins, tasks_completed, rank_in_family, family_id, created_at, updated_at`

func scanMember(scanner interface{ Scan(...any) error }) (*model.Member, string, error) {
	var m model.Member
	var passwordHash string
	var familyID sql.NullInt64

	err := scanner.Scan(&m.ID, &m.Name, &m.Email, &passwordHash, &m.Role, &m.AvatarEmoji,
		&m.Stars, &m.Coins, &m.TasksCompleted, &m.RankInFamily, &familyID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, "", err
	}

	if familyID.Valid {
		m.FamilyID = &familyID.Int64
	}
	return &m, passwordHash, nil
}

func (s *MemberStore) Create(ctx context.Context, name, email, passwordHash, role string) (*model.Member, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO members (name, email, password_hash, role) VALUES (?, ?, ?, ?)`,
		name, email, passwordHash, role,
	)
	if err != nil {
		return nil, fmt.Errorf("insert member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *MemberStore) GetByID(ctx context.Context, id int64) (*model.Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberCols+` FROM members WHERE id = ?`, id)
	m, _, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

// GetByEmail returns the member and their password hash for login checks.
func (s *MemberStore) GetByEmail(ctx context.Context, email string) (*model.Member, string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberCols+` FROM members WHERE email = ?`, email)
	m, hash, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("get member by email: %w", err)
	}
	return m, hash, nil
}

// ListByFamily returns every member of a family in one query, ordered by
// rank then name so leaderboard reads are a stable single-pass snapshot.
func (s *MemberStore) ListByFamily(ctx context.Context, familyID int64) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memberCols+` FROM members WHERE family_id = ? ORDER BY rank_in_family ASC, name ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, _, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// Save writes every mutable field of the member document in one
// statement. Concurrent saves are last-wins.
func (s *MemberStore) Save(ctx context.Context, m *model.Member) error {
	var familyID sql.NullInt64
	if m.FamilyID != nil {
		familyID = sql.NullInt64{Int64: *m.FamilyID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE members SET name = ?, role = ?, avatar_emoji = ?, stars = ?, coins = ?,
		 tasks_completed = ?, rank_in_family = ?, family_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		m.Name, m.Role, m.AvatarEmoji, m.Stars, m.Coins,
		m.TasksCompleted, m.RankInFamily, familyID, m.ID,
	)
	if err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	return nil
}

func (s *MemberStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	return nil
}

func (s *MemberStore) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members WHERE email = ?`, email).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return count > 0, nil
}
