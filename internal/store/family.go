package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fernwood/starquest/internal/model"
	"github.com/fernwood/starquest/internal/period"
)

type FamilyStore struct {
	db *sql.DB
}

func NewFamilyStore(db *sql.DB) *FamilyStore {
	return &FamilyStore{db: db}
}

const familyCols = `id, name, total_stars, task_count,
	stars_daily, stars_weekly, stars_monthly, stars_yearly,
	tasks_daily, tasks_weekly, tasks_monthly, tasks_yearly,
	created_at, updated_at`

func scanFamily(scanner interface{ Scan(...any) error }) (*model.Family, error) {
	var f model.Family
	err := scanner.Scan(&f.ID, &f.Name, &f.TotalStars, &f.TaskCount,
		&f.Stars.Daily, &f.Stars.Weekly, &f.Stars.Monthly, &f.Stars.Yearly,
		&f.TaskCounts.Daily, &f.TaskCounts.Weekly, &f.TaskCounts.Monthly, &f.TaskCounts.Yearly,
		&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *FamilyStore) Create(ctx context.Context, name string) (*model.Family, error) {
	result, err := s.db.ExecContext(ctx, `INSERT INTO families (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert family: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *FamilyStore) GetByID(ctx context.Context, id int64) (*model.Family, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+familyCols+` FROM families WHERE id = ?`, id)
	f, err := scanFamily(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	return f, nil
}

// List returns every family in one query for all-families leaderboards.
func (s *FamilyStore) List(ctx context.Context) ([]model.Family, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+familyCols+` FROM families ORDER BY total_stars DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	defer rows.Close()

	var families []model.Family
	for rows.Next() {
		f, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("scan family: %w", err)
		}
		families = append(families, *f)
	}
	return families, rows.Err()
}

// Save writes the family aggregate counters as one document write.
func (s *FamilyStore) Save(ctx context.Context, f *model.Family) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE families SET name = ?, total_stars = ?, task_count = ?,
		 stars_daily = ?, stars_weekly = ?, stars_monthly = ?, stars_yearly = ?,
		 tasks_daily = ?, tasks_weekly = ?, tasks_monthly = ?, tasks_yearly = ?,
		 updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		f.Name, f.TotalStars, f.TaskCount,
		f.Stars.Daily, f.Stars.Weekly, f.Stars.Monthly, f.Stars.Yearly,
		f.TaskCounts.Daily, f.TaskCounts.Weekly, f.TaskCounts.Monthly, f.TaskCounts.Yearly,
		f.ID,
	)
	if err != nil {
		return fmt.Errorf("save family: %w", err)
	}
	return nil
}

func (s *FamilyStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM families WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete family: %w", err)
	}
	return nil
}

var periodColumns = map[period.Period][2]string{
	period.Daily:   {"stars_daily", "tasks_daily"},
	period.Weekly:  {"stars_weekly", "tasks_weekly"},
	period.Monthly: {"stars_monthly", "tasks_monthly"},
	period.Yearly:  {"stars_yearly", "tasks_yearly"},
}

// ResetPeriod zeroes exactly one period's star and task-count columns for
// every family, leaving the other windows untouched.
func (s *FamilyStore) ResetPeriod(ctx context.Context, p period.Period) (int64, error) {
	cols, ok := periodColumns[p]
	if !ok {
		return 0, fmt.Errorf("%w: %q", period.ErrUnknownPeriod, p)
	}

	result, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE families SET %s = 0, %s = 0, updated_at = CURRENT_TIMESTAMP`, cols[0], cols[1]),
	)
	if err != nil {
		return 0, fmt.Errorf("reset %s counters: %w", p, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ListStarDrift reports families whose lifetime star total no longer
// matches the sum of their members' stars, the detectable leftover of a
// write interrupted between the member and family documents.
func (s *FamilyStore) ListStarDrift(ctx context.Context) ([]period.StarDrift, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.total_stars, COALESCE(SUM(m.stars), 0)
		 FROM families f LEFT JOIN members m ON m.family_id = f.id
		 GROUP BY f.id, f.total_stars
		 HAVING f.total_stars != COALESCE(SUM(m.stars), 0)`,
	)
	if err != nil {
		return nil, fmt.Errorf("query star drift: %w", err)
	}
	defer rows.Close()

	var drifts []period.StarDrift
	for rows.Next() {
		var d period.StarDrift
		if err := rows.Scan(&d.FamilyID, &d.TotalStars, &d.MemberSum); err != nil {
			return nil, fmt.Errorf("scan drift: %w", err)
		}
		drifts = append(drifts, d)
	}
	return drifts, rows.Err()
}
