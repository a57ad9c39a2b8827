package repository

import (
	"context"
	"fmt"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ProjectRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewProjectRepository(db *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: db, logger: logger}
}

func (r *ProjectRepository) WithTx(tx pgx.Tx) *ProjectRepository {
	return &ProjectRepository{db: tx, logger: r.logger}
}

func (r *ProjectRepository) Insert(ctx context.Context, p *model.Project) error {
	r.logger.Debug("Inserting project", zap.String("name", p.Name))

	query := `
        INSERT INTO projects (client_id, lead_id, name, project_type, description, status, budget, price,
                              start_date, due_date, progress, features, features_raw, repo_url, preview_url, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        RETURNING id, created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		p.ClientID, p.LeadID, p.Name, p.ProjectType, p.Description, p.Status, p.Budget, p.Price,
		p.StartDate, p.DueDate, p.Progress, nonNil(p.Features), p.FeaturesRaw, p.RepoURL, p.PreviewURL, p.Notes,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.Error(err))
		return err
	}

	r.logger.Info("Project inserted", zap.Int("id", p.ID))
	return nil
}

const projectSelect = `
        SELECT p.id, p.client_id, p.lead_id, p.name, p.project_type, p.description, p.status, p.budget,
               p.price::float8, p.start_date, p.due_date, p.progress, p.features, p.features_raw,
               p.repo_url, p.preview_url, p.notes, p.created_at, p.updated_at,
               COALESCE(c.name, ''), COALESCE(c.company, '')
        FROM projects p
        LEFT JOIN clients c ON c.id = p.client_id
`

func scanProject(row pgx.Row) (model.Project, error) {
	var p model.Project
	err := row.Scan(
		&p.ID, &p.ClientID, &p.LeadID, &p.Name, &p.ProjectType, &p.Description, &p.Status, &p.Budget,
		&p.Price, &p.StartDate, &p.DueDate, &p.Progress, &p.Features, &p.FeaturesRaw,
		&p.RepoURL, &p.PreviewURL, &p.Notes, &p.CreatedAt, &p.UpdatedAt,
		&p.ClientName, &p.ClientCompany,
	)
	return p, err
}

// List returns projects newest first; clientID 0 means all clients.
func (r *ProjectRepository) List(ctx context.Context, clientID int) ([]model.Project, error) {
	query := projectSelect
	var args []any
	if clientID > 0 {
		query += ` WHERE p.client_id = $1`
		args = append(args, clientID)
	}
	query += ` ORDER BY p.created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	out := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			r.logger.Error("Failed to scan project", zap.Error(err))
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepository) GetByID(ctx context.Context, id int) (*model.Project, error) {
	p, err := scanProject(r.db.QueryRow(ctx, projectSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update writes the editable fields of p.
func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE projects
        SET name = $2, project_type = $3, description = $4, status = $5, budget = $6, price = $7,
            start_date = $8, due_date = $9, features = $10, repo_url = $11, preview_url = $12,
            notes = $13, updated_at = NOW()
        WHERE id = $1
    `, p.ID, p.Name, p.ProjectType, p.Description, p.Status, p.Budget, p.Price,
		p.StartDate, p.DueDate, nonNil(p.Features), p.RepoURL, p.PreviewURL, p.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ProjectRepository) UpdateProgress(ctx context.Context, id, progress int) error {
	tag, err := r.db.Exec(ctx, `UPDATE projects SET progress = $2, updated_at = NOW() WHERE id = $1`, id, progress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ProjectRepository) ListUnmigratedFeatures(ctx context.Context) (map[int]string, error) {
	return listUnmigrated(ctx, r.db, "projects")
}

func (r *ProjectRepository) UpdateFeatures(ctx context.Context, id int, features []string) error {
	return updateFeatures(ctx, r.db, "projects", id, features)
}
