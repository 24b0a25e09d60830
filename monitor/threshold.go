package monitor

import (
	"fmt"

	"github.com/kocayinsec/network-automation-sender/model"
)

// Comparator names how a sampled value is compared against a Threshold's
// bound.
type Comparator string

const (
	GreaterThan Comparator = ">"
	LessThan    Comparator = "<"
)

// Threshold is a user-registered alerting rule sampled every
// collect_interval against the named metric's current gauge/histogram
// summary value.
type Threshold struct {
	Metric     string
	Comparator Comparator
	Value      float64
	Severity   model.Severity
}

func (t Threshold) id() string {
	return fmt.Sprintf("%s%s%.6f", t.Metric, t.Comparator, t.Value)
}

func (t Threshold) crossed(observed float64) bool {
	switch t.Comparator {
	case GreaterThan:
		return observed > t.Value
	case LessThan:
		return observed < t.Value
	default:
		return false
	}
}
