// Package postgres provides PostgreSQL database adapters.
//
// It implements the prompt history repository on top of a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/futureblink-ai/internal/domain"
)

// PgxPool is a minimal subset of pgxpool used by the repos for easy testing.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PromptRepo persists and lists saved prompts.
type PromptRepo struct {
	Pool PgxPool
	now  func() time.Time
}

// NewPromptRepo constructs a PromptRepo with the given pool.
func NewPromptRepo(p PgxPool) *PromptRepo { return &PromptRepo{Pool: p, now: time.Now} }

func startSpan(ctx context.Context, name, operation string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("repo.prompts").Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", "prompts"),
	)
	return ctx, span
}

// Create stores a new prompt and returns it with id and timestamp assigned.
func (r *PromptRepo) Create(ctx domain.Context, p domain.Prompt) (domain.Prompt, error) {
	ctx, span := startSpan(ctx, "prompts.Create", "INSERT")
	defer span.End()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = r.now().UTC()
	}
	q := `INSERT INTO prompts (id, prompt, response, created_at, updated_at) VALUES ($1,$2,$3,$4,$4)`
	if _, err := r.Pool.Exec(ctx, q, p.ID, p.Prompt, p.Response, p.CreatedAt); err != nil {
		span.RecordError(err)
		return domain.Prompt{}, fmt.Errorf("op=prompt.create: %w", err)
	}
	return p, nil
}

// List returns prompts newest first.
func (r *PromptRepo) List(ctx domain.Context, offset, limit int) ([]domain.Prompt, error) {
	ctx, span := startSpan(ctx, "prompts.List", "SELECT")
	defer span.End()
	span.SetAttributes(attribute.Int("db.offset", offset), attribute.Int("db.limit", limit))
	q := `SELECT id, prompt, response, created_at FROM prompts ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	rows, err := r.Pool.Query(ctx, q, limit, offset)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("op=prompt.list: %w", err)
	}
	defer rows.Close()
	out := make([]domain.Prompt, 0, limit)
	for rows.Next() {
		var p domain.Prompt
		if err := rows.Scan(&p.ID, &p.Prompt, &p.Response, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("op=prompt.list.scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=prompt.list.rows: %w", err)
	}
	return out, nil
}

// Count returns the total number of stored prompts.
func (r *PromptRepo) Count(ctx domain.Context) (int64, error) {
	ctx, span := startSpan(ctx, "prompts.Count", "COUNT")
	defer span.End()
	var count int64
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM prompts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("op=prompt.count: %w", err)
	}
	return count, nil
}

// Delete removes a prompt by id. Malformed and unknown ids both yield domain.ErrNotFound.
func (r *PromptRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := startSpan(ctx, "prompts.Delete", "DELETE")
	defer span.End()
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("op=prompt.delete: %w", domain.ErrNotFound)
	}
	tag, err := r.Pool.Exec(ctx, `DELETE FROM prompts WHERE id=$1`, id)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("op=prompt.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=prompt.delete: %w", domain.ErrNotFound)
	}
	return nil
}

// DeleteOlderThan removes prompts created before cutoff and reports how many were removed.
func (r *PromptRepo) DeleteOlderThan(ctx domain.Context, cutoff time.Time) (int64, error) {
	ctx, span := startSpan(ctx, "prompts.DeleteOlderThan", "DELETE")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM prompts WHERE created_at < $1`, cutoff)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("op=prompt.delete_older_than: %w", err)
	}
	return tag.RowsAffected(), nil
}
