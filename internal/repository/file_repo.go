package repository

import (
	"context"
	"fmt"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FileRepository struct {
	db DBTX
}

func NewFileRepository(db *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Insert(ctx context.Context, f *model.ProjectFile) error {
	return r.db.QueryRow(ctx, `
        INSERT INTO project_files (project_id, original_name, stored_name, mime_type, size, shared_with_client, uploaded_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at
    `, f.ProjectID, f.OriginalName, f.StoredName, f.MimeType, f.Size, f.SharedWithClient, f.UploadedBy).
		Scan(&f.ID, &f.CreatedAt)
}

const fileColumns = `id, project_id, original_name, stored_name, mime_type, size, shared_with_client, uploaded_by, created_at`

func scanFile(row pgx.Row) (model.ProjectFile, error) {
	var f model.ProjectFile
	err := row.Scan(&f.ID, &f.ProjectID, &f.OriginalName, &f.StoredName, &f.MimeType, &f.Size,
		&f.SharedWithClient, &f.UploadedBy, &f.CreatedAt)
	return f, err
}

// ListByProject returns a project's files; sharedOnly restricts to client-visible ones.
func (r *FileRepository) ListByProject(ctx context.Context, projectID int, sharedOnly bool) ([]model.ProjectFile, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+fileColumns+`
        FROM project_files
        WHERE project_id = $1 AND (NOT $2 OR shared_with_client)
        ORDER BY created_at DESC
    `, projectID, sharedOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query files: %w", err)
	}
	defer rows.Close()

	out := []model.ProjectFile{}
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FileRepository) GetByID(ctx context.Context, id int) (*model.ProjectFile, error) {
	f, err := scanFile(r.db.QueryRow(ctx, `SELECT `+fileColumns+` FROM project_files WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *FileRepository) SetShared(ctx context.Context, id int, shared bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE project_files SET shared_with_client = $2 WHERE id = $1`, id, shared)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *FileRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM project_files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
