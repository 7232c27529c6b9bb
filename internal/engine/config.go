package engine

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/harborpoint/lendops/internal/model"
)

// Config holds the rule tunables for every review kind. Values are business
// policy, not derived statistics; product tunes them via YAML without code
// changes.
type Config struct {
	Payment    PaymentRuleConfig    `yaml:"payment"`
	Inspection InspectionRuleConfig `yaml:"inspection"`
}

// PaymentRuleConfig tunes the payment rule set.
type PaymentRuleConfig struct {
	GraceDays         int             `yaml:"grace_days"`
	ShortPayTolerance float64         `yaml:"short_pay_tolerance"`
	Allocation        AllocationRates `yaml:"allocation"`
	Confidence        ConfidenceTable `yaml:"confidence"`
}

// AllocationRates are the default waterfall split fractions of a received
// payment. Principal takes the remainder and is never negative; suspense is
// always zero in the default proposal.
type AllocationRates struct {
	Interest        float64 `yaml:"interest"`
	Escrow          float64 `yaml:"escrow"`
	Fees            float64 `yaml:"fees"`
	DefaultInterest float64 `yaml:"default_interest"`
}

// InspectionRuleConfig tunes the inspection rule set.
type InspectionRuleConfig struct {
	RequiredPhotos []ChecklistCategory `yaml:"required_photos"`
	Confidence     ConfidenceTable     `yaml:"confidence"`
}

// ChecklistCategory is one required photo category and the label/kind
// substrings that satisfy it.
type ChecklistCategory struct {
	Name  string   `yaml:"name"`
	Match []string `yaml:"match"`
}

// ConfidenceTable maps a verdict to its configured confidence constant.
// This is a placeholder scoring heuristic, not a calibrated probability;
// only the ordering fail < needs_review < pass is contractual.
type ConfidenceTable struct {
	Pass        float64 `yaml:"pass"`
	NeedsReview float64 `yaml:"needs_review"`
	Fail        float64 `yaml:"fail"`
}

// DefaultConfig returns the built-in rule tunables.
func DefaultConfig() *Config {
	return &Config{
		Payment: PaymentRuleConfig{
			GraceDays:         5,
			ShortPayTolerance: 1.00,
			Allocation: AllocationRates{
				Interest:        0.30,
				Escrow:          0.10,
				Fees:            0.05,
				DefaultInterest: 0.05,
			},
			Confidence: ConfidenceTable{Pass: 0.86, NeedsReview: 0.56, Fail: 0.34},
		},
		Inspection: InspectionRuleConfig{
			RequiredPhotos: []ChecklistCategory{
				{Name: "wide_shot", Match: []string{"wide"}},
				{Name: "unit_id", Match: []string{"unit"}},
				{Name: "before_after", Match: []string{"before", "after"}},
			},
			Confidence: ConfidenceTable{Pass: 0.84, NeedsReview: 0.54, Fail: 0.32},
		},
	}
}

// LoadConfig reads engine tunables from a YAML file, filling any unset
// values from the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: read config %s", path)
	}

	// The YAML has a top-level "engine" key.
	var wrapper struct {
		Engine Config `yaml:"engine"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "engine: parse config")
	}

	cfg := &wrapper.Engine
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Payment.GraceDays == 0 {
		cfg.Payment.GraceDays = def.Payment.GraceDays
	}
	if cfg.Payment.ShortPayTolerance == 0 {
		cfg.Payment.ShortPayTolerance = def.Payment.ShortPayTolerance
	}
	if cfg.Payment.Allocation == (AllocationRates{}) {
		cfg.Payment.Allocation = def.Payment.Allocation
	}
	if cfg.Payment.Confidence == (ConfidenceTable{}) {
		cfg.Payment.Confidence = def.Payment.Confidence
	}
	if len(cfg.Inspection.RequiredPhotos) == 0 {
		cfg.Inspection.RequiredPhotos = def.Inspection.RequiredPhotos
	}
	if cfg.Inspection.Confidence == (ConfidenceTable{}) {
		cfg.Inspection.Confidence = def.Inspection.Confidence
	}
}

// For returns the configured confidence for a verdict.
func (t ConfidenceTable) For(status model.ReviewStatus) float64 {
	switch status {
	case model.StatusPass:
		return t.Pass
	case model.StatusFail:
		return t.Fail
	default:
		return t.NeedsReview
	}
}
