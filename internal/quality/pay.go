package quality

import (
	"regexp"
	"strconv"
)

// Dollars is a parsed dollar amount from a free-text pay description.
type Dollars float64

var leadingDollars = regexp.MustCompile(`\$\s*(\d+(?:\.\d+)?)`)

// ParseLeadingDollars extracts the first dollar figure from a free-text
// pay description like "$45/hour" or "up to $1200 per week". The second
// return value reports whether a figure was found, so callers can
// distinguish "no pay listed" from "pay listed but unparseable".
func ParseLeadingDollars(s string) (Dollars, bool) {
	m := leadingDollars.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return Dollars(v), true
}
