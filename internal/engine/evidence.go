package engine

import (
	"fmt"
	"math"

	"github.com/harborpoint/lendops/internal/model"
)

// collateEvidence normalizes attachments into a uniform evidence list,
// 1:1 and always fully populated even when the attachment is incomplete.
func collateEvidence(attachments []model.Attachment) []model.EvidenceItem {
	evidence := make([]model.EvidenceItem, 0, len(attachments))
	for i, a := range attachments {
		item := model.EvidenceItem{
			Label:   a.Label,
			URL:     a.URL,
			Kind:    a.Kind,
			Excerpt: a.Excerpt,
		}
		if item.Label == "" {
			item.Label = fmt.Sprintf("attachment %d", i+1)
		}
		if item.Kind == "" {
			item.Kind = "document"
		}
		evidence = append(evidence, item)
	}
	return evidence
}

// round2 rounds to 2 decimals (currency cents).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// clampPct clamps a percentage to [0, 100].
func clampPct(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}
