package store

import (
	"context"

	"github.com/harborpoint/lendops/internal/model"
)

// ReviewFilter specifies criteria for listing reviews.
type ReviewFilter struct {
	OrgID     string             `json:"org_id,omitempty"`
	Kind      model.ReviewKind   `json:"type,omitempty"`
	Status    model.ReviewStatus `json:"status,omitempty"`
	LoanID    string             `json:"loan_id,omitempty"`
	ProjectID string             `json:"project_id,omitempty"`
	Limit     int                `json:"limit,omitempty"`
	Offset    int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for review records and approvals.
// Approval creation is append-only and independent per call; idempotency of
// repeated approvals of the same action type is deliberately not enforced
// here.
type Store interface {
	// Reviews
	CreateReview(ctx context.Context, in model.ReviewInput, out model.ReviewOutput, createdBy string) (*model.Review, error)
	GetReview(ctx context.Context, id string) (*model.Review, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error)
	MarkReview(ctx context.Context, id string, status model.ReviewStatus) (*model.Review, error)

	// Approvals
	CreateApproval(ctx context.Context, approval model.Approval) (*model.Approval, error)
	ListApprovals(ctx context.Context, reviewID string) ([]model.Approval, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
