package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fernwood/starquest/internal/model"
)

type GoalStore struct {
	db *sql.DB
}

func NewGoalStore(db *sql.DB) *GoalStore {
	return &GoalStore{db: db}
}

const goalCols = `id, type, owner_id, family_id, title, description, is_completed, progress,
	reward_stars, reward_coins, achievement_id, completed_at, created_at, updated_at`

const taskCols = `id, goal_id, title, reward_stars, reward_coins, is_completed, completed_at, completed_by, completion_event_id, created_at`

func scanGoal(scanner interface{ Scan(...any) error }) (*model.Goal, error) {
	var g model.Goal
	var ownerID, familyID, achievementID sql.NullInt64
	var completed int
	var completedAt sql.NullTime

	err := scanner.Scan(&g.ID, &g.Type, &ownerID, &familyID, &g.Title, &g.Description,
		&completed, &g.Progress, &g.Rewards.Stars, &g.Rewards.Coins, &achievementID,
		&completedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}

	g.IsCompleted = completed != 0
	if ownerID.Valid {
		g.OwnerID = &ownerID.Int64
	}
	if familyID.Valid {
		g.FamilyID = &familyID.Int64
	}
	if achievementID.Valid {
		g.Rewards.AchievementID = &achievementID.Int64
	}
	if completedAt.Valid {
		t := completedAt.Time
		g.CompletedAt = &t
	}
	return &g, nil
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var completed int
	var completedAt sql.NullTime
	var completedBy sql.NullInt64

	err := scanner.Scan(&t.ID, &t.GoalID, &t.Title, &t.Rewards.Stars, &t.Rewards.Coins,
		&completed, &completedAt, &completedBy, &t.CompletionEventID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}

	t.IsCompleted = completed != 0
	if completedAt.Valid {
		at := completedAt.Time
		t.CompletedAt = &at
	}
	if completedBy.Valid {
		t.CompletedBy = &completedBy.Int64
	}
	return &t, nil
}

// Create inserts a goal and its initial tasks in one transaction.
func (s *GoalStore) Create(ctx context.Context, g *model.Goal) (*model.Goal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var ownerID, familyID, achievementID sql.NullInt64
	if g.OwnerID != nil {
		ownerID = sql.NullInt64{Int64: *g.OwnerID, Valid: true}
	}
	if g.FamilyID != nil {
		familyID = sql.NullInt64{Int64: *g.FamilyID, Valid: true}
	}
	if g.Rewards.AchievementID != nil {
		achievementID = sql.NullInt64{Int64: *g.Rewards.AchievementID, Valid: true}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO goals (type, owner_id, family_id, title, description, progress, reward_stars, reward_coins, achievement_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Type, ownerID, familyID, g.Title, g.Description, g.Progress,
		g.Rewards.Stars, g.Rewards.Coins, achievementID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert goal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, t := range g.Tasks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (goal_id, title, reward_stars, reward_coins) VALUES (?, ?, ?, ?)`,
			id, t.Title, t.Rewards.Stars, t.Rewards.Coins,
		); err != nil {
			return nil, fmt.Errorf("insert task: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID loads a goal together with its tasks in creation order.
func (s *GoalStore) GetByID(ctx context.Context, id int64) (*model.Goal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+goalCols+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE goal_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		g.Tasks = append(g.Tasks, *t)
	}
	return g, rows.Err()
}

// Save writes the goal row and upserts its tasks inside one transaction,
// giving the goal document atomic single-document semantics.
func (s *GoalStore) Save(ctx context.Context, g *model.Goal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var completed int
	if g.IsCompleted {
		completed = 1
	}
	var completedAt sql.NullTime
	if g.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *g.CompletedAt, Valid: true}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE goals SET title = ?, description = ?, is_completed = ?, progress = ?,
		 reward_stars = ?, reward_coins = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		g.Title, g.Description, completed, g.Progress,
		g.Rewards.Stars, g.Rewards.Coins, completedAt, g.ID,
	); err != nil {
		return fmt.Errorf("update goal: %w", err)
	}

	for i := range g.Tasks {
		t := &g.Tasks[i]
		var tCompleted int
		if t.IsCompleted {
			tCompleted = 1
		}
		var tCompletedAt sql.NullTime
		if t.CompletedAt != nil {
			tCompletedAt = sql.NullTime{Time: *t.CompletedAt, Valid: true}
		}
		var completedBy sql.NullInt64
		if t.CompletedBy != nil {
			completedBy = sql.NullInt64{Int64: *t.CompletedBy, Valid: true}
		}

		if t.ID == 0 {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO tasks (goal_id, title, reward_stars, reward_coins, is_completed, completed_at, completed_by, completion_event_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				g.ID, t.Title, t.Rewards.Stars, t.Rewards.Coins, tCompleted, tCompletedAt, completedBy, t.CompletionEventID,
			)
			if err != nil {
				return fmt.Errorf("insert task: %w", err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}
			t.ID = id
			continue
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, reward_stars = ?, reward_coins = ?, is_completed = ?,
			 completed_at = ?, completed_by = ?, completion_event_id = ?
			 WHERE id = ? AND goal_id = ?`,
			t.Title, t.Rewards.Stars, t.Rewards.Coins, tCompleted,
			tCompletedAt, completedBy, t.CompletionEventID, t.ID, g.ID,
		); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
	}

	return tx.Commit()
}

// ListByOwner returns a member's personal goals, newest first.
func (s *GoalStore) ListByOwner(ctx context.Context, ownerID int64) ([]model.Goal, error) {
	return s.list(ctx, `SELECT `+goalCols+` FROM goals WHERE owner_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
}

// ListByFamily returns a family's shared goals, newest first.
func (s *GoalStore) ListByFamily(ctx context.Context, familyID int64) ([]model.Goal, error) {
	return s.list(ctx, `SELECT `+goalCols+` FROM goals WHERE family_id = ? ORDER BY created_at DESC, id DESC`, familyID)
}

func (s *GoalStore) list(ctx context.Context, query string, arg int64) ([]model.Goal, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range goals {
		full, err := s.GetByID(ctx, goals[i].ID)
		if err != nil {
			return nil, err
		}
		if full != nil {
			goals[i].Tasks = full.Tasks
		}
	}
	return goals, nil
}

func (s *GoalStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}
