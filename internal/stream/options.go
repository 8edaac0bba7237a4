package stream

import "fmt"

// FFMCPolicy selects the hourly FFMC recurrence.
type FFMCPolicy int

const (
	// PolicyVanWagner is the standard one-hour-step recurrence from the
	// previous hour's FFMC.
	PolicyVanWagner FFMCPolicy = iota
	// PolicyHybrid blends the bracketing daily FFMC values with the
	// previous hour's value and a 48 h trailing rainfall window.
	PolicyHybrid
	// PolicyLawson interpolates between the bracketing daily FFMC values
	// by time of day, ignoring the previous hour.
	PolicyLawson
)

// ParsePolicy maps a policy name to its value.
func ParsePolicy(s string) (FFMCPolicy, error) {
	switch s {
	case "van_wagner":
		return PolicyVanWagner, nil
	case "hybrid":
		return PolicyHybrid, nil
	case "lawson":
		return PolicyLawson, nil
	}
	return PolicyVanWagner, fmt.Errorf("unknown hourly FFMC policy %q", s)
}

func (p FFMCPolicy) String() string {
	switch p {
	case PolicyHybrid:
		return "hybrid"
	case PolicyLawson:
		return "lawson"
	default:
		return "van_wagner"
	}
}

// Options configures FWI calculation for a stream.
type Options struct {
	Policy FFMCPolicy
	// UseSpecified makes user-supplied FWI values override calculated
	// ones wherever present. Imports that carry FWI columns turn this on;
	// editing raw weather turns it back off.
	UseSpecified bool
}
