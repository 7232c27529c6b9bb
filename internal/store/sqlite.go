package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/harborpoint/lendops/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reviews (
	id         TEXT PRIMARY KEY,
	org_id     TEXT NOT NULL DEFAULT '',
	type       TEXT NOT NULL,
	subject_id TEXT NOT NULL,
	loan_id    TEXT NOT NULL DEFAULT '',
	project_id TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	output     TEXT NOT NULL,
	created_by TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS approvals (
	id             TEXT PRIMARY KEY,
	review_id      TEXT NOT NULL REFERENCES reviews(id),
	action_type    TEXT NOT NULL,
	action_payload TEXT,
	outcome        TEXT NOT NULL,
	notes          TEXT NOT NULL DEFAULT '',
	actor_id       TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reviews_status ON reviews(status);
CREATE INDEX IF NOT EXISTS idx_reviews_type ON reviews(type);
CREATE INDEX IF NOT EXISTS idx_reviews_loan_id ON reviews(loan_id);
CREATE INDEX IF NOT EXISTS idx_reviews_project_id ON reviews(project_id);
CREATE INDEX IF NOT EXISTS idx_reviews_updated_at ON reviews(updated_at);
CREATE INDEX IF NOT EXISTS idx_approvals_review_id ON approvals(review_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateReview(ctx context.Context, in model.ReviewInput, out model.ReviewOutput, createdBy string) (*model.Review, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	outputJSON, err := json.Marshal(out)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal output")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reviews (id, org_id, type, subject_id, loan_id, project_id, status, output, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.OrgID, string(in.Kind), in.SubjectID, in.LoanID, in.ProjectID,
		string(out.Status), string(outputJSON), createdBy, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert review")
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

func (s *SQLiteStore) GetReview(ctx context.Context, id string) (*model.Review, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, org_id, type, subject_id, loan_id, project_id, status, output, created_by, created_at, updated_at
		 FROM reviews WHERE id = ?`,
		id,
	)
	return scanReview(row)
}

func (s *SQLiteStore) ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error) {
	query := `SELECT id, org_id, type, subject_id, loan_id, project_id, status, output, created_by, created_at, updated_at
	 FROM reviews WHERE 1=1`
	var args []any

	if filter.OrgID != "" {
		query += ` AND org_id = ?`
		args = append(args, filter.OrgID)
	}
	if filter.Kind != "" {
		query += ` AND type = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.LoanID != "" {
		query += ` AND loan_id = ?`
		args = append(args, filter.LoanID)
	}
	if filter.ProjectID != "" {
		query += ` AND project_id = ?`
		args = append(args, filter.ProjectID)
	}
	query += ` ORDER BY updated_at DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reviews")
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *r)
	}
	return reviews, eris.Wrap(rows.Err(), "sqlite: list reviews iterate")
}

func (s *SQLiteStore) MarkReview(ctx context.Context, id string, status model.ReviewStatus) (*model.Review, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: mark review %s", id)
	}
	if err := checkRowsAffected(res, "review", id); err != nil {
		return nil, err
	}
	return s.GetReview(ctx, id)
}

func (s *SQLiteStore) CreateApproval(ctx context.Context, approval model.Approval) (*model.Approval, error) {
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
			return nil, eris.Wrap(err, "sqlite: marshal action payload")
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO approvals (id, review_id, action_type, action_payload, outcome, notes, actor_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		approval.ID, approval.ReviewID, approval.ActionType, nullableString(payloadJSON),
		approval.Outcome, approval.Notes, approval.ActorID, approval.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert approval")
	}
	return &approval, nil
}

func (s *SQLiteStore) ListApprovals(ctx context.Context, reviewID string) ([]model.Approval, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, review_id, action_type, action_payload, outcome, notes, actor_id, created_at
		 FROM approvals WHERE review_id = ? ORDER BY created_at ASC`,
		reviewID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list approvals")
	}
	defer rows.Close()

	var approvals []model.Approval
	for rows.Next() {
		var a model.Approval
		var payloadJSON sql.NullString
		if err := rows.Scan(&a.ID, &a.ReviewID, &a.ActionType, &payloadJSON, &a.Outcome, &a.Notes, &a.ActorID, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan approval")
		}
		if payloadJSON.Valid && payloadJSON.String != "" {
			if err := json.Unmarshal([]byte(payloadJSON.String), &a.ActionPayload); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal action payload")
			}
		}
		approvals = append(approvals, a)
	}
	return approvals, eris.Wrap(rows.Err(), "sqlite: list approvals iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanReview(row scannable) (*model.Review, error) {
	var r model.Review
	var outputJSON string

	err := row.Scan(&r.ID, &r.OrgID, &r.Kind, &r.SubjectID, &r.LoanID, &r.ProjectID,
		&r.Status, &outputJSON, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("review not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan review")
	}

	if err := json.Unmarshal([]byte(outputJSON), &r.Output); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal output")
	}
	return &r, nil
}
