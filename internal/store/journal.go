package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fernwood/starquest/internal/model"
)

type JournalStore struct {
	db *sql.DB
}

func NewJournalStore(db *sql.DB) *JournalStore {
	return &JournalStore{db: db}
}

const journalCols = `id, member_id, title, body, mood, created_at, updated_at`

func scanJournalEntry(scanner interface{ Scan(...any) error }) (*model.JournalEntry, error) {
	var e model.JournalEntry
	err := scanner.Scan(&e.ID, &e.MemberID, &e.Title, &e.Body, &e.Mood, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *JournalStore) Create(ctx context.Context, memberID int64, title, body, mood string) (*model.JournalEntry, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO journal_entries (member_id, title, body, mood) VALUES (?, ?, ?, ?)`,
		memberID, title, body, mood,
	)
	if err != nil {
		return nil, fmt.Errorf("insert journal entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *JournalStore) GetByID(ctx context.Context, id int64) (*model.JournalEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+journalCols+` FROM journal_entries WHERE id = ?`, id)
	e, err := scanJournalEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get journal entry: %w", err)
	}
	return e, nil
}

func (s *JournalStore) ListByMember(ctx context.Context, memberID int64) ([]model.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+journalCols+` FROM journal_entries WHERE member_id = ? ORDER BY created_at DESC, id DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []model.JournalEntry
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *JournalStore) Update(ctx context.Context, id int64, title, body, mood string) (*model.JournalEntry, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE journal_entries SET title = ?, body = ?, mood = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		title, body, mood, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update journal entry: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *JournalStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	return nil
}
