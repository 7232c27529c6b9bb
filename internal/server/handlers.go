package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/harborpoint/lendops/internal/model"
	"github.com/harborpoint/lendops/internal/store"
)

func withOrg(ctx context.Context, org string) context.Context {
	return context.WithValue(ctx, orgKey, org)
}

func orgFrom(ctx context.Context) string {
	org, _ := ctx.Value(orgKey).(string)
	return org
}

// reviewRequest is the shared body shape of both evaluation endpoints.
type reviewRequest struct {
	PaymentID    string             `json:"paymentId"`
	InspectionID string             `json:"inspectionId"`
	SourceID     string             `json:"sourceId"`
	LoanID       string             `json:"loanId"`
	ProjectID    string             `json:"projectId"`
	Attachments  []model.Attachment `json:"attachments"`
	Context      map[string]any     `json:"context"`
}

func (s *Server) handlePaymentReview(w http.ResponseWriter, r *http.Request) {
	s.handleEvaluate(w, r, model.KindPayment)
}

func (s *Server) handleInspectionReview(w http.ResponseWriter, r *http.Request) {
	s.handleEvaluate(w, r, model.KindInspection)
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request, kind model.ReviewKind) {
	// Feature disabled means the surface does not exist: distinct from
	// "evaluated and found nothing".
	if !s.opts.ReviewsEnabled {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	subjectID := req.SourceID
	if kind == model.KindPayment && req.PaymentID != "" {
		subjectID = req.PaymentID
	}
	if kind == model.KindInspection && req.InspectionID != "" {
		subjectID = req.InspectionID
	}
	if subjectID == "" {
		writeError(w, http.StatusBadRequest, "sourceId is required")
		return
	}

	input := model.ReviewInput{
		Kind:        kind,
		SubjectID:   subjectID,
		OrgID:       orgFrom(r.Context()),
		LoanID:      req.LoanID,
		ProjectID:   req.ProjectID,
		Context:     req.Context,
		Attachments: req.Attachments,
	}

	output, err := s.engine.Evaluate(input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	review, err := s.store.CreateReview(r.Context(), input, output, actorFrom(r))
	if err != nil {
		zap.L().Error("server: persist review",
			zap.String("kind", string(kind)),
			zap.String("subject_id", subjectID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to persist review")
		return
	}

	zap.L().Info("server: review created",
		zap.String("review_id", review.ID),
		zap.String("kind", string(kind)),
		zap.String("status", string(review.Status)),
		zap.Float64("confidence", review.Output.Confidence),
	)
	writeJSON(w, http.StatusCreated, map[string]any{"review": review})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ReviewFilter{
		OrgID:     orgFrom(r.Context()),
		LoanID:    q.Get("loanId"),
		ProjectID: q.Get("projectId"),
	}

	if t := q.Get("type"); t != "" {
		kind, err := model.ParseReviewKind(t)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Kind = kind
	}
	if st := q.Get("status"); st != "" {
		status, err := model.ParseReviewStatus(st)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}

	reviews, err := s.store.ListReviews(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list reviews", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

func (s *Server) handleMarkReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := model.ParseReviewStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	review, err := s.store.MarkReview(r.Context(), chi.URLParam(r, "id"), status)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "review not found")
		return
	}
	if err != nil {
		zap.L().Error("server: mark review", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to mark review")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"review": review})
}

func (s *Server) handleApproveAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActionType    string         `json:"action_type"`
		ActionPayload map[string]any `json:"action_payload"`
		Notes         string         `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ActionType) == "" {
		writeError(w, http.StatusBadRequest, "action_type is required")
		return
	}

	reviewID := chi.URLParam(r, "id")
	if _, err := s.store.GetReview(r.Context(), reviewID); err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "review not found")
			return
		}
		zap.L().Error("server: load review for approval", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load review")
		return
	}

	approval, err := s.store.CreateApproval(r.Context(), model.Approval{
		ReviewID:      reviewID,
		ActionType:    req.ActionType,
		ActionPayload: req.ActionPayload,
		Outcome:       model.OutcomeApproved,
		Notes:         req.Notes,
		ActorID:       actorFrom(r),
	})
	if err != nil {
		zap.L().Error("server: create approval", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to record approval")
		return
	}

	// The approval is always recorded; whether anything downstream runs is
	// gated separately, and the response says so explicitly so operators are
	// never misled into thinking an approval triggered automation.
	message := "approval recorded; execution is disabled, no downstream action was taken"
	if s.opts.ExecutionEnabled {
		message = "approval recorded; downstream execution signaled"
		zap.L().Info("server: execution signaled",
			zap.String("review_id", reviewID),
			zap.String("action_type", req.ActionType),
			zap.String("actor_id", approval.ActorID),
		)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"approval":         approval,
		"executionEnabled": s.opts.ExecutionEnabled,
		"message":          message,
	})
}

func actorFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Actor-ID"))
}
