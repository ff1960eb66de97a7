// Package interval parses compact "N-unit" duration strings such as "20minutes"
// or "2weeks" used to describe rate limit windows.
package interval

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInterval is returned for strings that are not of the form
// "<positive integer><unit>".
var ErrInvalidInterval = errors.New("invalid interval")

// Recognized units. Values are always the lower-cased plural form.
const (
	Seconds = "seconds"
	Minutes = "minutes"
	Hours   = "hours"
	Days    = "days"
	Weeks   = "weeks"
)

var unitLengths = map[string]time.Duration{
	Seconds: time.Second,
	Minutes: time.Minute,
	Hours:   time.Hour,
	Days:    24 * time.Hour,
	Weeks:   7 * 24 * time.Hour,
}

// Duration is a parsed interval: a positive magnitude of a recognized unit.
type Duration struct {
	Magnitude int
	Unit      string
}

// Std converts the interval to a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d.Magnitude) * unitLengths[d.Unit]
}

// String returns the compact form, e.g. "10seconds".
func (d Duration) String() string {
	return strconv.Itoa(d.Magnitude) + d.Unit
}

// Parse splits s into its leading digit run and trailing letter run.
// Units are case-insensitive and may be singular ("1minute") or plural.
// Whitespace and any other characters are rejected.
func Parse(s string) (Duration, error) {
	split := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if split == -1 && s != "" {
		return Duration{}, fmt.Errorf("%w %q: missing unit", ErrInvalidInterval, s)
	}
	if split <= 0 {
		return Duration{}, fmt.Errorf("%w %q: expected leading digits", ErrInvalidInterval, s)
	}

	digits, letters := s[:split], s[split:]
	for _, r := range letters {
		if !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z') {
			return Duration{}, fmt.Errorf("%w %q: unexpected character %q", ErrInvalidInterval, s, r)
		}
	}

	magnitude, err := strconv.Atoi(digits)
	if err != nil {
		return Duration{}, fmt.Errorf("%w %q: %v", ErrInvalidInterval, s, err)
	}
	if magnitude <= 0 {
		return Duration{}, fmt.Errorf("%w %q: magnitude must be positive", ErrInvalidInterval, s)
	}

	unit, err := normalizeUnit(letters)
	if err != nil {
		return Duration{}, fmt.Errorf("%w %q: %v", ErrInvalidInterval, s, err)
	}
	if int64(magnitude) > math.MaxInt64/int64(unitLengths[unit]) {
		return Duration{}, fmt.Errorf("%w %q: exceeds the longest representable duration", ErrInvalidInterval, s)
	}

	return Duration{Magnitude: magnitude, Unit: unit}, nil
}

// MustParse is like Parse but panics on error. Intended for static tables.
func MustParse(s string) Duration {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func normalizeUnit(letters string) (string, error) {
	if letters == "" {
		return "", errors.New("missing unit")
	}
	unit := strings.ToLower(letters)
	if !strings.HasSuffix(unit, "s") {
		unit += "s"
	}
	if _, ok := unitLengths[unit]; !ok {
		return "", fmt.Errorf("unknown unit %q", letters)
	}
	return unit, nil
}
