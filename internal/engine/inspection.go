package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harborpoint/lendops/internal/model"
)

// inspectionContext is the normalized evaluation context for a property
// inspection review.
type inspectionContext struct {
	DueDate    TimeVal
	ScopeItems []scopeItem

	required []ChecklistCategory
	now      time.Time
}

// scopeItem is one declared scope/line item with its claimed completion.
type scopeItem struct {
	ID         string
	ClaimedPct FloatVal
}

func normalizeInspectionContext(raw map[string]any, cfg InspectionRuleConfig, now time.Time) inspectionContext {
	ic := inspectionContext{
		required: cfg.RequiredPhotos,
		now:      now,
	}
	if raw == nil {
		return ic
	}

	ic.DueDate = timeField(raw, "due_date", "dueDate")

	items, ok := lookup(raw, "scope_items", "scopeItems", "line_items", "lineItems")
	if !ok {
		return ic
	}
	list, ok := items.([]any)
	if !ok {
		return ic
	}
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := scopeItem{
			ID:         scopeItemID(m, i),
			ClaimedPct: floatField(m, "claimed_pct", "claimedPct", "claimed_percent", "completion_pct"),
		}
		ic.ScopeItems = append(ic.ScopeItems, item)
	}
	return ic
}

// scopeItemID pulls a stable identifier out of a scope item, tolerating
// string or numeric ids, and falls back to the positional index.
func scopeItemID(m map[string]any, index int) string {
	v, ok := lookup(m, "id", "line_item_id", "lineItemId")
	if !ok {
		return strconv.Itoa(index + 1)
	}
	switch id := v.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	}
	return strconv.Itoa(index + 1)
}

// buildChecklist matches evidence against the required photo categories.
// A category is satisfied when any whitespace-separated word of an item's
// label or kind equals one of its match terms, case-insensitively. Whole-word
// comparison keeps "unit," from satisfying unit_id while "unit" does.
// available is always a subset of required; missing = required − available.
func buildChecklist(evidence []model.EvidenceItem, required []ChecklistCategory) (available, missing []string) {
	available = []string{}
	missing = []string{}
	for _, cat := range required {
		found := false
		for _, item := range evidence {
			if anyWordMatches(item.Label+" "+item.Kind, cat.Match) {
				found = true
				break
			}
		}
		if found {
			available = append(available, cat.Name)
		} else {
			missing = append(missing, cat.Name)
		}
	}
	return available, missing
}

func anyWordMatches(text string, terms []string) bool {
	for _, word := range strings.Fields(text) {
		for _, term := range terms {
			if strings.EqualFold(word, term) {
				return true
			}
		}
	}
	return false
}

// supportedPct gates a claimed completion percentage on evidence: clamped to
// [0,100] when any attachment exists, forced to 0 otherwise.
func supportedPct(claimed FloatVal, evidenceCount int) float64 {
	if evidenceCount == 0 {
		return 0
	}
	if !claimed.Present {
		return 0
	}
	return clampPct(claimed.Value)
}

type inspectionRule func(ic inspectionContext, evidence []model.EvidenceItem) *model.Reason

var inspectionRules = []inspectionRule{
	ruleMissingRequiredPhotos,
	ruleInsufficientScopeEvidence,
	ruleTimelineDelayRisk,
}

func ruleMissingRequiredPhotos(ic inspectionContext, evidence []model.EvidenceItem) *model.Reason {
	_, missing := buildChecklist(evidence, ic.required)
	if len(missing) == 0 {
		return nil
	}
	severity := model.SeverityMedium
	if len(evidence) == 0 {
		severity = model.SeverityHigh
	}
	return &model.Reason{
		Code:     "missing_required_photos",
		Message:  fmt.Sprintf("missing required photo categories: %s", strings.Join(missing, ", ")),
		Severity: severity,
	}
}

func ruleInsufficientScopeEvidence(ic inspectionContext, evidence []model.EvidenceItem) *model.Reason {
	if len(ic.ScopeItems) == 0 {
		return nil
	}
	unsupported := 0
	for _, item := range ic.ScopeItems {
		if supportedPct(item.ClaimedPct, len(evidence)) == 0 {
			unsupported++
		}
	}
	if unsupported == 0 {
		return nil
	}
	return &model.Reason{
		Code:     "insufficient_scope_evidence",
		Message:  fmt.Sprintf("%d of %d scope items have no supporting evidence", unsupported, len(ic.ScopeItems)),
		Severity: model.SeverityMedium,
	}
}

func ruleTimelineDelayRisk(ic inspectionContext, _ []model.EvidenceItem) *model.Reason {
	if !ic.DueDate.Present || !ic.now.After(ic.DueDate.Value) {
		return nil
	}
	return &model.Reason{
		Code:     "timeline_delay_risk",
		Message:  fmt.Sprintf("inspection due date %s has passed", ic.DueDate.Value.Format("2006-01-02")),
		Severity: model.SeverityLow,
	}
}

// inspectionEvaluator evaluates property inspection reviews. The clock is
// injected so the timeline rule stays testable without wall-clock time.
type inspectionEvaluator struct {
	cfg   InspectionRuleConfig
	nowFn func() time.Time
}

func (e *inspectionEvaluator) Kind() model.ReviewKind { return model.KindInspection }

func (e *inspectionEvaluator) Evaluate(in model.ReviewInput) (model.ReviewOutput, error) {
	evidence := collateEvidence(in.Attachments)
	ic := normalizeInspectionContext(in.Context, e.cfg, e.nowFn())

	reasons := []model.Reason{}
	for _, rule := range inspectionRules {
		if r := rule(ic, evidence); r != nil {
			reasons = append(reasons, *r)
		}
	}

	status := resolveStatus(reasons, inspectionFailWorthy)

	available, missing := buildChecklist(evidence, ic.required)
	requiredNames := make([]string, 0, len(ic.required))
	for _, cat := range ic.required {
		requiredNames = append(requiredNames, cat.Name)
	}

	scopeEvidence := make([]map[string]any, 0, len(ic.ScopeItems))
	scopeItemIDs := make([]string, 0, len(ic.ScopeItems))
	for _, item := range ic.ScopeItems {
		supported := supportedPct(item.ClaimedPct, len(evidence))
		var claimed float64
		if item.ClaimedPct.Present {
			claimed = item.ClaimedPct.Value
		}
		note := "no supporting evidence"
		if supported > 0 {
			note = fmt.Sprintf("claimed %.0f%% supported by %d attachment(s)", claimed, len(evidence))
		}
		scopeEvidence = append(scopeEvidence, map[string]any{
			"lineItemId":   item.ID,
			"claimedPct":   claimed,
			"supportedPct": supported,
			"reason":       note,
		})
		scopeItemIDs = append(scopeItemIDs, item.ID)
	}

	return model.ReviewOutput{
		Status:             status,
		Confidence:         e.cfg.Confidence.For(status),
		Title:              fmt.Sprintf("Inspection review: %s", in.SubjectID),
		Summary:            summarize("inspection", status, reasons),
		Reasons:            reasons,
		Evidence:           evidence,
		RecommendedActions: inspectionActions(status, scopeItemIDs, missing),
		ProposedUpdates: map[string]any{
			"photo_checklist": map[string]any{
				"required":  requiredNames,
				"available": available,
				"missing":   missing,
			},
			"scope_to_evidence": scopeEvidence,
		},
	}, nil
}

// inspectionActions maps the verdict to follow-up actions, all human-gated.
func inspectionActions(status model.ReviewStatus, scopeItemIDs, missing []string) []model.RecommendedAction {
	if status == model.StatusPass {
		return []model.RecommendedAction{{
			ActionType:       "approve_release_funds",
			Label:            "Approve draw release for inspected scope",
			Payload:          map[string]any{"scope_item_ids": scopeItemIDs},
			RequiresApproval: true,
		}}
	}

	return []model.RecommendedAction{
		{
			ActionType:       "request_missing_photos",
			Label:            "Request missing photo categories from inspector",
			Payload:          map[string]any{"missing": missing},
			RequiresApproval: true,
		},
		{
			ActionType:       "order_reinspection",
			Label:            "Order a follow-up inspection",
			RequiresApproval: true,
		},
	}
}
