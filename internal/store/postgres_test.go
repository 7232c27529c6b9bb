package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborpoint/lendops/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func reviewColumns() []string {
	return []string{"id", "org_id", "type", "subject_id", "loan_id", "project_id", "status", "output", "created_by", "created_at", "updated_at"}
}

func TestPostgresCreateReview(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO reviews`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	review, err := st.CreateReview(context.Background(), sampleInput("pay-1"), sampleOutput(model.StatusNeedsReview), "api")
	require.NoError(t, err)
	assert.NotEmpty(t, review.ID)
	assert.Equal(t, model.StatusNeedsReview, review.Status)
	assert.Equal(t, "org-1", review.OrgID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetReviewNotFound(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, org_id, type, subject_id, loan_id, project_id, status, output, created_by, created_at, updated_at`)).
		WithArgs("missing-id").
		WillReturnError(pgx.ErrNoRows)

	_, err := st.GetReview(context.Background(), "missing-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetReview(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	output := sampleOutput(model.StatusNeedsReview)
	outputJSON, err := json.Marshal(output)
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM reviews WHERE id = $1`)).
		WithArgs("rev-1").
		WillReturnRows(pgxmock.NewRows(reviewColumns()).
			AddRow("rev-1", "org-1", "payment", "pay-1", "loan-1", "", "needs_review", outputJSON, "api", now, now))

	review, err := st.GetReview(context.Background(), "rev-1")
	require.NoError(t, err)
	assert.Equal(t, "rev-1", review.ID)
	assert.Equal(t, model.KindPayment, review.Kind)
	require.Len(t, review.Output.Reasons, 1)
	assert.Equal(t, "short_pay", review.Output.Reasons[0].Code)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListReviewsFilters(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	output, err := json.Marshal(sampleOutput(model.StatusPass))
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`AND org_id = $1 AND type = $2 AND status = $3`)).
		WithArgs("org-1", "payment", "pass", 25).
		WillReturnRows(pgxmock.NewRows(reviewColumns()).
			AddRow("rev-1", "org-1", "payment", "pay-1", "", "", "pass", output, "api", now, now))

	reviews, err := st.ListReviews(context.Background(), ReviewFilter{
		OrgID:  "org-1",
		Kind:   model.KindPayment,
		Status: model.StatusPass,
		Limit:  25,
	})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "rev-1", reviews[0].ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkReviewNotFound(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reviews SET status = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("pass", pgxmock.AnyArg(), "missing-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	_, err := st.MarkReview(context.Background(), "missing-id", model.StatusPass)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "review not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMarkReview(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	output, err := json.Marshal(sampleOutput(model.StatusNeedsReview))
	require.NoError(t, err)
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE reviews SET status = $1`)).
		WithArgs("fail", pgxmock.AnyArg(), "rev-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM reviews WHERE id = $1`)).
		WithArgs("rev-1").
		WillReturnRows(pgxmock.NewRows(reviewColumns()).
			AddRow("rev-1", "org-1", "payment", "pay-1", "", "", "fail", output, "api", now, now))

	review, err := st.MarkReview(context.Background(), "rev-1", model.StatusFail)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFail, review.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateApproval(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO approvals`)).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	approval, err := st.CreateApproval(context.Background(), model.Approval{
		ReviewID:   "rev-1",
		ActionType: "route_to_ops",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, approval.ID)
	assert.Equal(t, model.OutcomeApproved, approval.Outcome)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListApprovals(t *testing.T) {
	st, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	payload, err := json.Marshal(map[string]any{"queue": "payment_exceptions"})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM approvals WHERE review_id = $1`)).
		WithArgs("rev-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "review_id", "action_type", "action_payload", "outcome", "notes", "actor_id", "created_at"}).
			AddRow("app-1", "rev-1", "route_to_ops", payload, "approved", "", "user-7", now).
			AddRow("app-2", "rev-1", "draft_borrower_email", []byte(nil), "approved", "", "", now))

	approvals, err := st.ListApprovals(context.Background(), "rev-1")
	require.NoError(t, err)
	require.Len(t, approvals, 2)
	assert.Equal(t, map[string]any{"queue": "payment_exceptions"}, approvals[0].ActionPayload)
	assert.Nil(t, approvals[1].ActionPayload)

	require.NoError(t, mock.ExpectationsWereMet())
}
