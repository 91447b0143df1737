package quality

import "fmt"

// RiskLevel is the coarse defect-risk tier.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// RiskThresholds maps defect probability to a tier. Probabilities strictly
// above High are HIGH, strictly above Medium are MEDIUM, the rest LOW.
type RiskThresholds struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
}

// DefaultRiskThresholds returns 0.30 / 0.10.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{High: 0.30, Medium: 0.10}
}

// Validate requires 0 <= Medium < High <= 1.
func (t RiskThresholds) Validate() error {
	if t.Medium < 0 || t.High > 1 || t.Medium >= t.High {
		return fmt.Errorf("risk thresholds must satisfy 0 <= medium < high <= 1, got medium=%v high=%v", t.Medium, t.High)
	}
	return nil
}

// Classify returns the tier for a defect probability.
func (t RiskThresholds) Classify(p float64) RiskLevel {
	switch {
	case p > t.High:
		return RiskHigh
	case p > t.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}
