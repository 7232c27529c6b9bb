package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// ReviewKind identifies the kind of event under review.
type ReviewKind string

const (
	KindPayment    ReviewKind = "payment"
	KindInspection ReviewKind = "inspection"
)

// ParseReviewKind validates a kind string.
func ParseReviewKind(s string) (ReviewKind, error) {
	switch ReviewKind(s) {
	case KindPayment, KindInspection:
		return ReviewKind(s), nil
	}
	return "", eris.Errorf("unknown review kind: %q", s)
}

// ReviewStatus is the tri-state verdict of an evaluation. It is also the
// status a human may later mark on the persisted record, independently of
// the engine's original verdict.
type ReviewStatus string

const (
	StatusPass        ReviewStatus = "pass"
	StatusNeedsReview ReviewStatus = "needs_review"
	StatusFail        ReviewStatus = "fail"
)

// ParseReviewStatus validates a status string against the fixed verdict set.
func ParseReviewStatus(s string) (ReviewStatus, error) {
	switch ReviewStatus(s) {
	case StatusPass, StatusNeedsReview, StatusFail:
		return ReviewStatus(s), nil
	}
	return "", eris.Errorf("invalid review status: %q", s)
}

// Severity ranks a rule finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Reason is a single rule finding. Code is the stable machine contract other
// systems key off; a rule set emits at most one reason per code per evaluation.
type Reason struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Attachment is a caller-submitted supporting document reference.
type Attachment struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Excerpt string `json:"excerpt,omitempty"`
}

// EvidenceItem is the normalized form of one attachment. It is always fully
// populated; missing attachment fields get defaults.
type EvidenceItem struct {
	Label   string `json:"label"`
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Excerpt string `json:"excerpt,omitempty"`
}

// RecommendedAction is a proposed follow-up step. Every action requires
// explicit human approval; the engine has no execution privileges of its own.
type RecommendedAction struct {
	ActionType       string         `json:"action_type"`
	Label            string         `json:"label"`
	Payload          map[string]any `json:"payload,omitempty"`
	RequiresApproval bool           `json:"requires_approval"`
}

// ReviewInput is one evaluation request. It is ephemeral: it exists only for
// the duration of a single evaluation call.
type ReviewInput struct {
	Kind        ReviewKind     `json:"kind"`
	SubjectID   string         `json:"subject_id"`
	OrgID       string         `json:"org_id,omitempty"`
	LoanID      string         `json:"loan_id,omitempty"`
	ProjectID   string         `json:"project_id,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
}

// ReviewOutput is the engine's sole externally visible artifact: pure data,
// computed fresh on every call, no behavior.
type ReviewOutput struct {
	Status             ReviewStatus        `json:"status"`
	Confidence         float64             `json:"confidence"`
	Title              string              `json:"title"`
	Summary            string              `json:"summary"`
	Reasons            []Reason            `json:"reasons"`
	Evidence           []EvidenceItem      `json:"evidence"`
	RecommendedActions []RecommendedAction `json:"recommended_actions"`
	ProposedUpdates    map[string]any      `json:"proposed_updates,omitempty"`
}

// Review is the persisted record of one evaluation. Status starts as the
// engine verdict and may later be overwritten by a human mark without
// re-running the engine.
type Review struct {
	ID        string       `json:"id"`
	OrgID     string       `json:"org_id,omitempty"`
	Kind      ReviewKind   `json:"type"`
	SubjectID string       `json:"subject_id"`
	LoanID    string       `json:"loan_id,omitempty"`
	ProjectID string       `json:"project_id,omitempty"`
	Status    ReviewStatus `json:"status"`
	Output    ReviewOutput `json:"output"`
	CreatedBy string       `json:"created_by,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Approval records one human approval of a recommended action. Immutable
// after creation; the store only ever appends.
type Approval struct {
	ID            string         `json:"id"`
	ReviewID      string         `json:"review_id"`
	ActionType    string         `json:"action_type"`
	ActionPayload map[string]any `json:"action_payload,omitempty"`
	Outcome       string         `json:"outcome"`
	Notes         string         `json:"notes,omitempty"`
	ActorID       string         `json:"actor_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// OutcomeApproved is the only approval outcome this system records.
const OutcomeApproved = "approved"
