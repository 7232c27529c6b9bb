package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborpoint/lendops/internal/model"
)

func TestEngine_RejectsMissingSubjectID(t *testing.T) {
	eng := New(nil)

	_, err := eng.Evaluate(model.ReviewInput{Kind: model.KindPayment})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subject id is required")
}

func TestEngine_RejectsUnknownKind(t *testing.T) {
	eng := New(nil)

	_, err := eng.Evaluate(model.ReviewInput{Kind: "appraisal", SubjectID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no evaluator for kind "appraisal"`)
}

func TestEngine_EveryActionRequiresApproval(t *testing.T) {
	eng := New(nil).WithNow(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	inputs := []model.ReviewInput{
		{Kind: model.KindPayment, SubjectID: "p1", Context: map[string]any{
			"expected_amount": 100.0, "received_amount": 100.0,
		}},
		{Kind: model.KindPayment, SubjectID: "p2", Context: map[string]any{
			"expected_amount": 100.0, "received_amount": 10.0,
		}},
		{Kind: model.KindPayment, SubjectID: "p3", Context: map[string]any{
			"suspected_fraud": true,
		}},
		{Kind: model.KindInspection, SubjectID: "i1"},
		{Kind: model.KindInspection, SubjectID: "i2", Attachments: []model.Attachment{
			{Label: "wide unit before", Kind: "photo"},
		}},
	}

	for _, in := range inputs {
		out, err := eng.Evaluate(in)
		require.NoError(t, err)
		require.NotEmpty(t, out.RecommendedActions, "subject %s", in.SubjectID)
		for _, action := range out.RecommendedActions {
			assert.True(t, action.RequiresApproval, "subject %s action %s", in.SubjectID, action.ActionType)
		}
	}
}

func TestEngine_ConfidenceOrdering(t *testing.T) {
	for _, table := range []ConfidenceTable{
		DefaultConfig().Payment.Confidence,
		DefaultConfig().Inspection.Confidence,
	} {
		assert.Less(t, table.For(model.StatusFail), table.For(model.StatusNeedsReview))
		assert.Less(t, table.For(model.StatusNeedsReview), table.For(model.StatusPass))
	}
}

func TestResolveStatus(t *testing.T) {
	high := model.Reason{Code: "short_pay", Severity: model.SeverityHigh}
	fraud := model.Reason{Code: "suspected_fraud", Severity: model.SeverityHigh}
	low := model.Reason{Code: "memo_mismatch", Severity: model.SeverityLow}

	assert.Equal(t, model.StatusPass, resolveStatus(nil, paymentFailWorthy))
	assert.Equal(t, model.StatusNeedsReview, resolveStatus([]model.Reason{low}, paymentFailWorthy))
	assert.Equal(t, model.StatusNeedsReview, resolveStatus([]model.Reason{high}, paymentFailWorthy))
	assert.Equal(t, model.StatusFail, resolveStatus([]model.Reason{fraud}, paymentFailWorthy))
	assert.Equal(t, model.StatusFail, resolveStatus([]model.Reason{high}, inspectionFailWorthy))
}
