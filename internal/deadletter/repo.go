package deadletter

import (
	"context"
	"database/sql"
	"encoding/json"
)

// Repository persists dead letters. PostgresRepo is the production
// implementation; unit tests exercise it against sqlmock.
type Repository interface {
	Save(ctx context.Context, dl *DeadLetter) error
	List(ctx context.Context) ([]DeadLetter, error)
	Get(ctx context.Context, id string) (*DeadLetter, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, dl *DeadLetter) error {
	query := `INSERT INTO dead_letters (job_kind, page_id, payload, last_error)
	          VALUES ($1, $2, $3, $4) RETURNING id, created_at, retries`
	return r.db.QueryRowContext(ctx, query, dl.JobKind, dl.PageID, []byte(dl.Payload), dl.LastError).
		Scan(&dl.ID, &dl.CreatedAt, &dl.Retries)
}

func (r *PostgresRepo) List(ctx context.Context) ([]DeadLetter, error) {
	query := `SELECT id, job_kind, page_id, payload, last_error, retries, created_at
	          FROM dead_letters ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeadLetter
	for rows.Next() {
		var dl DeadLetter
		var payload []byte
		if err := rows.Scan(&dl.ID, &dl.JobKind, &dl.PageID, &payload, &dl.LastError, &dl.Retries, &dl.CreatedAt); err != nil {
			return nil, err
		}
		dl.Payload = json.RawMessage(payload)
		out = append(out, dl)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*DeadLetter, error) {
	dl := &DeadLetter{}
	var payload []byte
	query := `SELECT id, job_kind, page_id, payload, last_error, retries, created_at
	          FROM dead_letters WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&dl.ID, &dl.JobKind, &dl.PageID, &payload, &dl.LastError, &dl.Retries, &dl.CreatedAt)
	if err != nil {
		return nil, err
	}
	dl.Payload = json.RawMessage(payload)
	return dl, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = $1`, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&count)
	return count, err
}
