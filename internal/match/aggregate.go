package match

import "fmt"

// Aggregate rolls field results up into a pass/fail summary for one
// validation channel (citations, database, AI relevance).
type Aggregate struct {
	Name          string
	TotalChecked  int
	Passed        int
	Failed        int
	FallbackCount int
}

// Add folds one result into the aggregate. Fallback verdicts are counted
// separately so a judge outage is distinguishable from a confident negative.
func (a *Aggregate) Add(valid, fallback bool) {
	a.TotalChecked++
	if valid {
		a.Passed++
	} else {
		a.Failed++
	}
	if fallback {
		a.FallbackCount++
	}
}

// PassRate returns the percentage of passed checks, 0 when nothing was
// checked (never NaN).
func (a Aggregate) PassRate() float64 {
	if a.TotalChecked == 0 {
		return 0
	}
	return float64(a.Passed) / float64(a.TotalChecked) * 100
}

// Passing reports whether the aggregate clears the fixed 80% threshold.
func (a Aggregate) Passing() bool {
	return a.PassRate() >= PassThreshold
}

// Status renders PASS or FAIL for report output.
func (a Aggregate) Status() string {
	if a.Passing() {
		return "PASS"
	}
	return "FAIL"
}

func (a Aggregate) String() string {
	return fmt.Sprintf("%s: %d/%d passed (%.1f%%) - %s",
		a.Name, a.Passed, a.TotalChecked, a.PassRate(), a.Status())
}
