package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"internboard/internal/models"
)

type InternshipRepository interface {
	Store(ctx context.Context, in *models.Internship) error
	FindByID(ctx context.Context, id int64) (*models.Internship, error)
	List(ctx context.Context, limit int, order models.ListOrder) ([]models.Internship, error)
	DeleteOwned(ctx context.Context, id, ownerID int64) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type internshipRepository struct {
	db *sql.DB
}

func NewInternshipRepository(db *sql.DB) InternshipRepository {
	return &internshipRepository{db: db}
}

const internshipColumns = `id, company, batch, description, link, deadline, posted_by, created_at`

func (r *internshipRepository) Store(ctx context.Context, in *models.Internship) error {
	query := `
		INSERT INTO internships (company, batch, description, link, deadline, posted_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		in.Company, in.Batch, in.Description, in.Link, in.Deadline, in.PostedBy, in.CreatedAt,
	).Scan(&in.ID)
	if err != nil {
		return fmt.Errorf("internship store: %w", err)
	}
	return nil
}

func (r *internshipRepository) FindByID(ctx context.Context, id int64) (*models.Internship, error) {
	query := `SELECT ` + internshipColumns + ` FROM internships WHERE id = $1`
	in := &models.Internship{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&in.ID, &in.Company, &in.Batch, &in.Description, &in.Link, &in.Deadline, &in.PostedBy, &in.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("internship find: %w", err)
	}
	return in, nil
}

func (r *internshipRepository) List(ctx context.Context, limit int, order models.ListOrder) ([]models.Internship, error) {
	orderBy := "created_at DESC, id DESC"
	if order == models.OrderDeadline {
		orderBy = "deadline ASC, id ASC"
	}
	query := `SELECT ` + internshipColumns + ` FROM internships ORDER BY ` + orderBy + ` LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("internship list: %w", err)
	}
	defer rows.Close()

	var res []models.Internship
	for rows.Next() {
		var in models.Internship
		if err := rows.Scan(
			&in.ID, &in.Company, &in.Batch, &in.Description, &in.Link, &in.Deadline, &in.PostedBy, &in.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("internship list scan: %w", err)
		}
		res = append(res, in)
	}
	return res, rows.Err()
}

// DeleteOwned removes the posting only when ownerID posted it.
func (r *internshipRepository) DeleteOwned(ctx context.Context, id, ownerID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM internships WHERE id = $1 AND posted_by = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("internship delete: %w", err)
	}
	return expectAffected(res)
}

func (r *internshipRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM internships WHERE deadline <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("internship sweep: %w", err)
	}
	return res.RowsAffected()
}
