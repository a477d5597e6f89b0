package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fernwood/starquest/internal/model"
)

type AchievementStore struct {
	db *sql.DB
}

func NewAchievementStore(db *sql.DB) *AchievementStore {
	return &AchievementStore{db: db}
}

const achievementCols = `id, title, description, stars_reward, coins_reward, created_at`

func scanAchievement(scanner interface{ Scan(...any) error }) (*model.Achievement, error) {
	var a model.Achievement
	err := scanner.Scan(&a.ID, &a.Title, &a.Description, &a.StarsReward, &a.CoinsReward, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AchievementStore) Create(ctx context.Context, title, description string, starsReward, coinsReward int) (*model.Achievement, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO achievements (title, description, stars_reward, coins_reward) VALUES (?, ?, ?, ?)`,
		title, description, starsReward, coinsReward,
	)
	if err != nil {
		return nil, fmt.Errorf("insert achievement: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *AchievementStore) GetByID(ctx context.Context, id int64) (*model.Achievement, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+achievementCols+` FROM achievements WHERE id = ?`, id)
	a, err := scanAchievement(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get achievement: %w", err)
	}
	return a, nil
}

func (s *AchievementStore) List(ctx context.Context) ([]model.Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+achievementCols+` FROM achievements ORDER BY title ASC`)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var achievements []model.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		achievements = append(achievements, *a)
	}
	return achievements, rows.Err()
}

// Unlock records an unlock for a member. The unique index makes repeats
// no-ops; the return value reports whether this call was the first.
func (s *AchievementStore) Unlock(ctx context.Context, memberID, achievementID int64) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO member_achievements (member_id, achievement_id) VALUES (?, ?)`,
		memberID, achievementID,
	)
	if err != nil {
		return false, fmt.Errorf("unlock achievement: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// ListUnlocksByMember returns the achievements a member has unlocked,
// newest unlock first.
func (s *AchievementStore) ListUnlocksByMember(ctx context.Context, memberID int64) ([]model.Achievement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.title, a.description, a.stars_reward, a.coins_reward, a.created_at
		 FROM achievements a
		 JOIN member_achievements ma ON ma.achievement_id = a.id
		 WHERE ma.member_id = ?
		 ORDER BY ma.unlocked_at DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list unlocks: %w", err)
	}
	defer rows.Close()

	var achievements []model.Achievement
	for rows.Next() {
		a, err := scanAchievement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		achievements = append(achievements, *a)
	}
	return achievements, rows.Err()
}
