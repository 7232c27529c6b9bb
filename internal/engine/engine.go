// Package engine implements the exception review decision engine: a pair of
// deterministic rule-based evaluators that turn a payment or inspection event
// into an explainable verdict with reasons, evidence, and human-gated
// follow-up actions.
//
// Evaluation is a pure, synchronous, single-pass function with no I/O and no
// state between calls; arbitrary concurrent evaluations are safe without
// locking.
package engine

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/harborpoint/lendops/internal/model"
)

// Evaluator evaluates one kind of review event into a ReviewOutput.
type Evaluator interface {
	Kind() model.ReviewKind
	Evaluate(in model.ReviewInput) (model.ReviewOutput, error)
}

// Engine dispatches evaluation to the registered evaluator for the input's
// kind. Adding a new kind means registering a new evaluator; the status
// resolver, confidence scorer, and lifecycle stay untouched.
type Engine struct {
	evaluators map[model.ReviewKind]Evaluator
	inspection *inspectionEvaluator
}

// New creates an engine with the payment and inspection evaluators.
func New(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	insp := &inspectionEvaluator{cfg: cfg.Inspection, nowFn: time.Now}
	e := &Engine{
		evaluators: map[model.ReviewKind]Evaluator{},
		inspection: insp,
	}
	e.register(&paymentEvaluator{cfg: cfg.Payment})
	e.register(insp)
	return e
}

func (e *Engine) register(ev Evaluator) {
	e.evaluators[ev.Kind()] = ev
}

// WithNow fixes the evaluation clock for testing.
func (e *Engine) WithNow(t time.Time) *Engine {
	e.inspection.nowFn = func() time.Time { return t }
	return e
}

// Evaluate validates the input and runs the evaluator for its kind.
// Missing identifiers are rejected before any rule runs.
func (e *Engine) Evaluate(in model.ReviewInput) (model.ReviewOutput, error) {
	if in.SubjectID == "" {
		return model.ReviewOutput{}, eris.New("engine: subject id is required")
	}
	ev, ok := e.evaluators[in.Kind]
	if !ok {
		return model.ReviewOutput{}, eris.Errorf("engine: no evaluator for kind %q", in.Kind)
	}
	return ev.Evaluate(in)
}
