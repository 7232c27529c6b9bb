package engine

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/harborpoint/lendops/internal/model"
)

// usd formats dollar amounts in reason messages and email drafts.
var usd = message.NewPrinter(language.AmericanEnglish)

// paymentContext is the normalized evaluation context for a payment review.
// Every field a rule might need is typed and defaulted here; rules never
// touch the raw context bag.
type paymentContext struct {
	SuspectedFraud   bool
	ExpectedAmount   FloatVal
	ReceivedAmount   FloatVal
	DueDate          TimeVal
	ReceivedDate     TimeVal
	GraceDays        int
	ExpectedRemitter StringVal
	Remitter         StringVal
	ExpectedMemo     StringVal
	Memo             StringVal

	// Allocation is a caller-proposed split, passed through verbatim when
	// present: the human override always wins over the default waterfall.
	Allocation map[string]any

	shortPayTolerance float64
}

func normalizePaymentContext(raw map[string]any, cfg PaymentRuleConfig) paymentContext {
	pc := paymentContext{
		GraceDays:         cfg.GraceDays,
		shortPayTolerance: cfg.ShortPayTolerance,
	}
	if raw == nil {
		return pc
	}

	pc.SuspectedFraud = boolField(raw, "suspected_fraud", "suspectedFraud")
	pc.ExpectedAmount = floatField(raw, "expected_amount", "expectedAmount")
	pc.ReceivedAmount = floatField(raw, "received_amount", "receivedAmount", "amount")
	pc.DueDate = timeField(raw, "due_date", "dueDate")
	pc.ReceivedDate = timeField(raw, "received_date", "receivedDate")
	pc.GraceDays = intFieldDefault(raw, cfg.GraceDays, "grace_days", "graceDays")
	pc.ExpectedRemitter = stringField(raw, "expected_remitter", "expectedRemitter")
	pc.Remitter = stringField(raw, "remitter", "remitter_name", "remitterName")
	pc.ExpectedMemo = stringField(raw, "expected_memo", "expectedMemo")
	pc.Memo = stringField(raw, "memo")

	if v, ok := lookup(raw, "proposed_allocation", "proposedAllocation", "allocation"); ok {
		if alloc, ok := v.(map[string]any); ok {
			pc.Allocation = alloc
		}
	}
	return pc
}

// paymentRule is one independent check. Rules run in a fixed order so the
// reason list is deterministic; each code appears at most once.
type paymentRule func(pc paymentContext, evidence []model.EvidenceItem) *model.Reason

var paymentRules = []paymentRule{
	ruleSuspectedFraud,
	ruleMissingAmounts,
	ruleShortPay,
	ruleLatePay,
	ruleRemitterMismatch,
	ruleMemoMismatch,
}

func ruleSuspectedFraud(pc paymentContext, _ []model.EvidenceItem) *model.Reason {
	if !pc.SuspectedFraud {
		return nil
	}
	return &model.Reason{
		Code:     "suspected_fraud",
		Message:  "payment context carries an explicit fraud indicator",
		Severity: model.SeverityHigh,
	}
}

func ruleMissingAmounts(pc paymentContext, _ []model.EvidenceItem) *model.Reason {
	var missing []string
	if !pc.ExpectedAmount.Present {
		missing = append(missing, "expected_amount")
	}
	if !pc.ReceivedAmount.Present {
		missing = append(missing, "received_amount")
	}
	if len(missing) == 0 {
		return nil
	}
	return &model.Reason{
		Code:     "missing_amounts",
		Message:  fmt.Sprintf("amount fields absent: %s", strings.Join(missing, ", ")),
		Severity: model.SeverityMedium,
	}
}

func ruleShortPay(pc paymentContext, _ []model.EvidenceItem) *model.Reason {
	if !pc.ExpectedAmount.Present || !pc.ReceivedAmount.Present {
		return nil
	}
	shortfall := round2(pc.ExpectedAmount.Value - pc.ReceivedAmount.Value)
	if shortfall <= pc.shortPayTolerance {
		return nil
	}
	return &model.Reason{
		Code: "short_pay",
		Message: usd.Sprintf("short by $%.2f (expected $%.2f, received $%.2f)",
			shortfall, pc.ExpectedAmount.Value, pc.ReceivedAmount.Value),
		Severity: model.SeverityHigh,
	}
}

func ruleLatePay(pc paymentContext, _ []model.EvidenceItem) *model.Reason {
	if !pc.DueDate.Present || !pc.ReceivedDate.Present {
		return nil
	}
	// Whole-day floor of the millisecond difference.
	days := int(pc.ReceivedDate.Value.Sub(pc.DueDate.Value).Milliseconds() / 86_400_000)
	if days <= pc.GraceDays {
		return nil
	}
	return &model.Reason{
		Code:     "late_pay",
		Message:  fmt.Sprintf("received %d days after due date (grace period %d days)", days, pc.GraceDays),
		Severity: model.SeverityMedium,
	}
}

func ruleRemitterMismatch(pc paymentContext, _ []model.EvidenceItem) *model.Reason {
	if !pc.ExpectedRemitter.Present || !pc.Remitter.Present {
		return nil
	}
	if containsFold(pc.Remitter.Value, pc.ExpectedRemitter.Value) {
		return nil
	}
	return &model.Reason{
		Code:     "remitter_mismatch",
		Message:  fmt.Sprintf("remitter %q does not match expected %q", pc.Remitter.Value, pc.ExpectedRemitter.Value),
		Severity: model.SeverityMedium,
	}
}

func ruleMemoMismatch(pc paymentContext, _ []model.EvidenceItem) *model.Reason {
	if !pc.ExpectedMemo.Present || !pc.Memo.Present {
		return nil
	}
	if containsFold(pc.Memo.Value, pc.ExpectedMemo.Value) {
		return nil
	}
	return &model.Reason{
		Code:     "memo_mismatch",
		Message:  fmt.Sprintf("memo %q does not reference expected %q", pc.Memo.Value, pc.ExpectedMemo.Value),
		Severity: model.SeverityLow,
	}
}

// defaultAllocation computes the proposed waterfall split of the received
// amount: interest 30%, escrow 10%, fees 5%, default interest 5%, principal
// takes the remainder (floor-clamped at 0), suspense 0. The six buckets sum
// to the received amount within one cent.
func defaultAllocation(received float64, rates AllocationRates) map[string]any {
	interest := round2(received * rates.Interest)
	escrow := round2(received * rates.Escrow)
	fees := round2(received * rates.Fees)
	defaultInterest := round2(received * rates.DefaultInterest)

	principal := round2(received - interest - escrow - fees - defaultInterest)
	if principal < 0 {
		principal = 0
	}

	return map[string]any{
		"principal":        principal,
		"interest":         interest,
		"escrow":           escrow,
		"fees":             fees,
		"default_interest": defaultInterest,
		"suspense":         0.0,
	}
}

// paymentEvaluator evaluates payment reviews.
type paymentEvaluator struct {
	cfg PaymentRuleConfig
}

func (e *paymentEvaluator) Kind() model.ReviewKind { return model.KindPayment }

func (e *paymentEvaluator) Evaluate(in model.ReviewInput) (model.ReviewOutput, error) {
	pc := normalizePaymentContext(in.Context, e.cfg)
	evidence := collateEvidence(in.Attachments)

	reasons := []model.Reason{}
	for _, rule := range paymentRules {
		if r := rule(pc, evidence); r != nil {
			reasons = append(reasons, *r)
		}
	}

	status := resolveStatus(reasons, paymentFailWorthy)

	allocation := pc.Allocation
	if allocation == nil {
		var received float64
		if pc.ReceivedAmount.Present {
			received = pc.ReceivedAmount.Value
		}
		allocation = defaultAllocation(received, e.cfg.Allocation)
	}

	return model.ReviewOutput{
		Status:             status,
		Confidence:         e.cfg.Confidence.For(status),
		Title:              fmt.Sprintf("Payment review: %s", in.SubjectID),
		Summary:            summarize("payment", status, reasons),
		Reasons:            reasons,
		Evidence:           evidence,
		RecommendedActions: paymentActions(status, allocation, reasons),
		ProposedUpdates: map[string]any{
			"proposed_allocation": allocation,
		},
	}, nil
}

// paymentActions maps the verdict to follow-up actions. Every action
// requires approval: the engine never executes anything itself.
func paymentActions(status model.ReviewStatus, allocation map[string]any, reasons []model.Reason) []model.RecommendedAction {
	if status == model.StatusPass {
		return []model.RecommendedAction{{
			ActionType:       "approve_posting",
			Label:            "Approve posting with proposed allocation",
			Payload:          map[string]any{"allocation": allocation},
			RequiresApproval: true,
		}}
	}

	return []model.RecommendedAction{
		{
			ActionType: "draft_borrower_email",
			Label:      "Draft borrower outreach email",
			Payload: map[string]any{
				"to_role": "borrower",
				"subject": "Question about your recent payment",
				"body":    borrowerEmailBody(reasons),
			},
			RequiresApproval: true,
		},
		{
			ActionType: "route_to_ops",
			Label:      "Route to payment operations queue",
			Payload: map[string]any{
				"queue":        "payment_exceptions",
				"reason_codes": reasonCodes(reasons),
			},
			RequiresApproval: true,
		},
	}
}

func borrowerEmailBody(reasons []model.Reason) string {
	var b strings.Builder
	b.WriteString("We reviewed your recent payment and found the following items that need attention:\n")
	for _, r := range reasons {
		b.WriteString("- ")
		b.WriteString(r.Message)
		b.WriteString("\n")
	}
	b.WriteString("Please reply with any supporting detail so we can resolve this quickly.")
	return b.String()
}

func reasonCodes(reasons []model.Reason) []string {
	codes := make([]string, 0, len(reasons))
	for _, r := range reasons {
		codes = append(codes, r.Code)
	}
	return codes
}

func summarize(kind string, status model.ReviewStatus, reasons []model.Reason) string {
	if status == model.StatusPass {
		return fmt.Sprintf("All %s checks passed.", kind)
	}
	return fmt.Sprintf("%d finding(s): %s", len(reasons), strings.Join(reasonCodes(reasons), ", "))
}
