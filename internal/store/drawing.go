package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fernwood/starquest/internal/model"
)

type DrawingStore struct {
	db *sql.DB
}

func NewDrawingStore(db *sql.DB) *DrawingStore {
	return &DrawingStore{db: db}
}

const drawingCols = `id, member_id, title, storage_key, content_type, size_bytes, created_at`

func scanDrawing(scanner interface{ Scan(...any) error }) (*model.Drawing, error) {
	var d model.Drawing
	err := scanner.Scan(&d.ID, &d.MemberID, &d.Title, &d.StorageKey, &d.ContentType, &d.SizeBytes, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *DrawingStore) Create(ctx context.Context, memberID int64, title, storageKey, contentType string, sizeBytes int64) (*model.Drawing, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO drawings (member_id, title, storage_key, content_type, size_bytes) VALUES (?, ?, ?, ?, ?)`,
		memberID, title, storageKey, contentType, sizeBytes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert drawing: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *DrawingStore) GetByID(ctx context.Context, id int64) (*model.Drawing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+drawingCols+` FROM drawings WHERE id = ?`, id)
	d, err := scanDrawing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get drawing: %w", err)
	}
	return d, nil
}

func (s *DrawingStore) ListByMember(ctx context.Context, memberID int64) ([]model.Drawing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+drawingCols+` FROM drawings WHERE member_id = ? ORDER BY created_at DESC, id DESC`,
		memberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	defer rows.Close()

	var drawings []model.Drawing
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan drawing: %w", err)
		}
		drawings = append(drawings, *d)
	}
	return drawings, rows.Err()
}

func (s *DrawingStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drawings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete drawing: %w", err)
	}
	return nil
}
