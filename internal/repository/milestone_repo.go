package repository

import (
	"context"
	"fmt"

	"bizportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type MilestoneRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewMilestoneRepository(db *pgxpool.Pool, logger *zap.Logger) *MilestoneRepository {
	return &MilestoneRepository{db: db, logger: logger}
}

func (r *MilestoneRepository) Insert(ctx context.Context, m *model.Milestone) error {
	r.logger.Debug("Inserting milestone",
		zap.Int("project_id", m.ProjectID),
		zap.String("title", m.Title),
		zap.Int("sort_order", m.SortOrder),
	)

	query := `
        INSERT INTO milestones (project_id, title, description, due_date, deliverables, sort_order)
        VALUES ($1, $2, $3, $4, $5,
                CASE WHEN $6 > 0 THEN $6
                     ELSE (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM milestones WHERE project_id = $1) END)
        RETURNING id, sort_order, created_at
    `
	err := r.db.QueryRow(ctx, query,
		m.ProjectID,
		m.Title,
		m.Description,
		m.DueDate,
		nonNil(m.Deliverables),
		m.SortOrder,
	).Scan(&m.ID, &m.SortOrder, &m.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to insert milestone", zap.Error(err))
		return err
	}

	r.logger.Info("Milestone inserted",
		zap.Int("id", m.ID),
		zap.Int("project_id", m.ProjectID),
	)
	return nil
}

const milestoneColumns = `m.id, m.project_id, m.title, m.description, m.due_date, m.is_completed,
        m.completed_at, m.deliverables, m.sort_order, m.created_at`

func scanMilestone(row pgx.Row, extra ...any) (model.Milestone, error) {
	var m model.Milestone
	dest := []any{
		&m.ID, &m.ProjectID, &m.Title, &m.Description, &m.DueDate, &m.IsCompleted,
		&m.CompletedAt, &m.Deliverables, &m.SortOrder, &m.CreatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return m, err
}

func (r *MilestoneRepository) FindByProjectID(ctx context.Context, projectID int) ([]model.Milestone, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+milestoneColumns+`
        FROM milestones m
        WHERE m.project_id = $1
        ORDER BY m.sort_order ASC, m.id ASC
    `, projectID)
	if err != nil {
		r.logger.Error("Failed to find milestones", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	milestones := []model.Milestone{}
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			r.logger.Error("Failed to scan milestone", zap.Error(err))
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func (r *MilestoneRepository) GetByID(ctx context.Context, id int) (*model.Milestone, error) {
	m, err := scanMilestone(r.db.QueryRow(ctx, `SELECT `+milestoneColumns+` FROM milestones m WHERE m.id = $1`, id))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Update writes all editable fields; completed_at follows is_completed.
func (r *MilestoneRepository) Update(ctx context.Context, m *model.Milestone) error {
	err := r.db.QueryRow(ctx, `
        UPDATE milestones
        SET title = $2, description = $3, due_date = $4, deliverables = $5, sort_order = $6,
            is_completed = $7,
            completed_at = CASE WHEN $7 AND NOT is_completed THEN NOW()
                                WHEN $7 THEN completed_at
                                ELSE NULL END,
            updated_at = NOW()
        WHERE id = $1
        RETURNING completed_at
    `, m.ID, m.Title, m.Description, m.DueDate, nonNil(m.Deliverables), m.SortOrder, m.IsCompleted).Scan(&m.CompletedAt)
	if err != nil {
		return err
	}
	return nil
}

func (r *MilestoneRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM milestones WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Upcoming lists open milestones across active projects, soonest first.
func (r *MilestoneRepository) Upcoming(ctx context.Context, limit int) ([]model.Milestone, error) {
	rows, err := r.db.Query(ctx, `
        SELECT `+milestoneColumns+`, p.name
        FROM milestones m
        JOIN projects p ON p.id = m.project_id
        WHERE NOT m.is_completed AND p.status IN ('pending', 'active')
        ORDER BY m.due_date ASC NULLS LAST, m.sort_order ASC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming milestones: %w", err)
	}
	defer rows.Close()

	out := []model.Milestone{}
	for rows.Next() {
		var projectName string
		m, err := scanMilestone(rows, &projectName)
		if err != nil {
			return nil, err
		}
		m.ProjectName = projectName
		out = append(out, m)
	}
	return out, rows.Err()
}
