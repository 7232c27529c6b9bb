package engine

import "github.com/harborpoint/lendops/internal/model"

// failPredicate decides which reasons are fail-worthy for a kind. The split
// is asymmetric on purpose: payments fail only on fraud, inspections fail on
// any high-severity gap. Flagged for product confirmation; do not unify
// without a policy decision.
type failPredicate func(r model.Reason) bool

// paymentFailWorthy: fraud is the only hard-fail trigger for payments.
func paymentFailWorthy(r model.Reason) bool {
	return r.Severity == model.SeverityHigh && r.Code == "suspected_fraud"
}

// inspectionFailWorthy: any high-severity gap fails an inspection.
func inspectionFailWorthy(r model.Reason) bool {
	return r.Severity == model.SeverityHigh
}

// resolveStatus classifies a reason list into the tri-state verdict. Pure
// classification; there are no transitions after computation.
func resolveStatus(reasons []model.Reason, failWorthy failPredicate) model.ReviewStatus {
	for _, r := range reasons {
		if failWorthy(r) {
			return model.StatusFail
		}
	}
	if len(reasons) > 0 {
		return model.StatusNeedsReview
	}
	return model.StatusPass
}
