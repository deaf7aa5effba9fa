package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/ecsdeploy/internal/model"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists one row per deploy run.
type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Start(ctx context.Context, d *model.Deployment) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO deployments (id, service_name, image, revision, target_pool, status, error, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, d.ServiceName, d.Image, d.Revision, d.TargetPool, d.Status, d.Error, d.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("record deployment %s: %w", d.ID, err)
	}
	return nil
}

func (s *Store) Finish(ctx context.Context, d *model.Deployment) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deployments SET image = $1, revision = $2, target_pool = $3, status = $4, error = $5, finished_at = $6
		 WHERE id = $7`,
		d.Image, d.Revision, d.TargetPool, d.Status, d.Error, d.FinishedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("finish deployment %s: %w", d.ID, err)
	}
	return nil
}

// List returns the most recent runs, newest first. An empty service lists
// runs of every service.
func (s *Store) List(ctx context.Context, service string, limit int) ([]model.Deployment, error) {
	query := `SELECT id, service_name, image, revision, target_pool, status, error, started_at, finished_at FROM deployments`
	var args []any
	argIdx := 1

	if service != "" {
		query += fmt.Sprintf(` WHERE service_name = $%d`, argIdx)
		args = append(args, service)
		argIdx++
	}

	query += ` ORDER BY started_at DESC`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var deployments []model.Deployment
	for rows.Next() {
		var d model.Deployment
		if err := rows.Scan(&d.ID, &d.ServiceName, &d.Image, &d.Revision, &d.TargetPool,
			&d.Status, &d.Error, &d.StartedAt, &d.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return deployments, nil
}
