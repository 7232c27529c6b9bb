package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReviewKind(t *testing.T) {
	kind, err := ParseReviewKind("payment")
	require.NoError(t, err)
	assert.Equal(t, KindPayment, kind)

	kind, err = ParseReviewKind("inspection")
	require.NoError(t, err)
	assert.Equal(t, KindInspection, kind)

	_, err = ParseReviewKind("appraisal")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown review kind")
}

func TestParseReviewStatus(t *testing.T) {
	for _, valid := range []string{"pass", "needs_review", "fail"} {
		status, err := ParseReviewStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, ReviewStatus(valid), status)
	}

	_, err := ParseReviewStatus("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid review status")
}

func TestReviewJSONUsesTypeKey(t *testing.T) {
	data, err := json.Marshal(Review{Kind: KindPayment, Status: StatusPass})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"payment"`)
}
