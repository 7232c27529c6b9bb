package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/harborpoint/lendops/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_review":   `INSERT INTO reviews (id, org_id, type, subject_id, loan_id, project_id, status, output, created_by, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
	"get_review":      `SELECT id, org_id, type, subject_id, loan_id, project_id, status, output, created_by, created_at, updated_at FROM reviews WHERE id = $1`,
	"mark_review":     `UPDATE reviews SET status = $1, updated_at = $2 WHERE id = $3`,
	"insert_approval": `INSERT INTO approvals (id, review_id, action_type, action_payload, outcome, notes, actor_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"list_approvals":  `SELECT id, review_id, action_type, action_payload, outcome, notes, actor_id, created_at FROM approvals WHERE review_id = $1 ORDER BY created_at ASC`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reviews (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	org_id     TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL,
	subject_id TEXT NOT NULL,
	loan_id    TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	output     JSONB NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS approvals (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	review_id      TEXT NOT NULL REFERENCES reviews(id),
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	outcome        TEXT NOT NULL,
	notes          TEXT NOT NULL DEFAULT '',
	actor_id       TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reviews_status ON reviews(status);
CREATE INDEX IF NOT EXISTS idx_reviews_type ON reviews(type);
CREATE INDEX IF NOT EXISTS idx_reviews_loan_id ON reviews(loan_id);
CREATE INDEX IF NOT EXISTS idx_reviews_project_id ON reviews(project_id);
CREATE INDEX IF NOT EXISTS idx_reviews_updated_at ON reviews(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_approvals_review_id ON approvals(review_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateReview(ctx context.Context, in model.ReviewInput, out model.ReviewOutput, createdBy string) (*model.Review, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	outputJSON, err := json.Marshal(out)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal output")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reviews (id, org_id, type, subject_id, loan_id, project_id, status, output, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, in.OrgID, string(in.Kind), in.SubjectID, in.LoanID, in.ProjectID,
		string(out.Status), outputJSON, createdBy, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert review")
	}

	return &model.Review{
		ID:        id,
		OrgID:     in.OrgID,
		Kind:      in.Kind,
		SubjectID: in.SubjectID,
		LoanID:    in.LoanID,
		ProjectID: in.ProjectID,
		Status:    out.Status,
		Output:    out,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) GetReview(ctx context.Context, id string) (*model.Review, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, org_id, type, subject_id, loan_id, project_id, status, output, created_by, created_at, updated_at
		 FROM reviews WHERE id = $1`,
		id,
	)
	r, err := scanPgReview(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get review %s", id)
	}
	return r, nil
}

func (s *PostgresStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	query := `SELECT id, org_id, type, subject_id, loan_id, project_id, status, output, created_by, created_at, updated_at
	 FROM reviews WHERE 1=1`
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.OrgID != "" {
		query += ` AND org_id = ` + arg(filter.OrgID)
	}
	if filter.Kind != "" {
		query += ` AND type = ` + arg(string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	if filter.LoanID != "" {
		query += ` AND loan_id = ` + arg(filter.LoanID)
	}
	if filter.ProjectID != "" {
		query += ` AND project_id = ` + arg(filter.ProjectID)
	}
	query += ` ORDER BY updated_at DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reviews")
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		r, err := scanPgReview(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan review")
		}
		reviews = append(reviews, *r)
	}
	return reviews, eris.Wrap(rows.Err(), "postgres: list reviews iterate")
}

func (s *PostgresStore) MarkReview(ctx context.Context, id string, status model.ReviewStatus) (*model.Review, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reviews SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: mark review %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Errorf("review not found: %s", id)
	}
	return s.GetReview(ctx, id)
}

func (s *PostgresStore) CreateApproval(ctx context.Context, approval model.Approval) (*model.Approval, error) {
	approval.ID = uuid.New().String()
	approval.CreatedAt = time.Now().UTC()
	if approval.Outcome == "" {
		approval.Outcome = model.OutcomeApproved
	}

	var payloadJSON []byte
	if approval.ActionPayload != nil {
		var err error
		payloadJSON, err = json.Marshal(approval.ActionPayload)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal action payload")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO approvals (id, review_id, action_type, action_payload, outcome, notes, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		approval.ID, approval.ReviewID, approval.ActionType, payloadJSON,
		approval.Outcome, approval.Notes, approval.ActorID, approval.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert approval")
	}
	return &approval, nil
}

func (s *PostgresStore) ListApprovals(ctx context.Context, reviewID string) ([]model.Approval, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, review_id, action_type, action_payload, outcome, notes, actor_id, created_at
		 FROM approvals WHERE review_id = $1 ORDER BY created_at ASC`,
		reviewID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list approvals")
	}
	defer rows.Close()

	var approvals []model.Approval
	for rows.Next() {
		var a model.Approval
		var payloadJSON []byte
		if err := rows.Scan(&a.ID, &a.ReviewID, &a.ActionType, &payloadJSON, &a.Outcome, &a.Notes, &a.ActorID, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan approval")
		}
		if len(payloadJSON) > 0 {
			if err := json.Unmarshal(payloadJSON, &a.ActionPayload); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal action payload")
			}
		}
		approvals = append(approvals, a)
	}
	return approvals, eris.Wrap(rows.Err(), "postgres: list approvals iterate")
}

func scanPgReview(row pgx.Row) (*model.Review, error) {
	var r model.Review
	var outputJSON []byte

	err := row.Scan(&r.ID, &r.OrgID, &r.Kind, &r.SubjectID, &r.LoanID, &r.ProjectID,
		&r.Status, &outputJSON, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("review not found")
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(outputJSON, &r.Output); err != nil {
		return nil, eris.Wrap(err, "unmarshal output")
	}
	return &r, nil
}
