// Package monitor identifies physical displays across detection passes and
// persists what it has learned about them.
package monitor

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidDimensions is returned when a display reports a zero width or height.
var ErrInvalidDimensions = errors.New("invalid monitor dimensions")

var connectorPattern = regexp.MustCompile(`DISPLAY(\d+)`)

// Fingerprints identify a physical monitor. Primary combines the connector
// label with the resolution; Secondary is the resolution alone.
type Fingerprints struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// MatchReason explains the outcome of comparing two fingerprints.
type MatchReason string

const (
	ReasonConnectorAndResolution MatchReason = "connector_and_resolution_match"
	ReasonResolution             MatchReason = "resolution_match"
	ReasonPrimaryMismatchStrict  MatchReason = "primary_mismatch_strict"
	ReasonNoMatch                MatchReason = "no_match"
)

// Data is what one detection pass reports about a display.
type Data struct {
	Name      string
	Width     int
	Height    int
	X         int
	Y         int
	IsPrimary bool
}

// Generate derives the fingerprints for a detected display.
func Generate(d Data) (Fingerprints, error) {
	if d.Width == 0 || d.Height == 0 {
		return Fingerprints{}, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, d.Width, d.Height)
	}
	secondary := fmt.Sprintf("%dx%d", d.Width, d.Height)
	primary := secondary
	if m := connectorPattern.FindStringSubmatch(d.Name); m != nil {
		primary = fmt.Sprintf("DISPLAY%s_%s", m[1], secondary)
	}
	return Fingerprints{Primary: primary, Secondary: secondary}, nil
}

// Match compares two fingerprints. In strict mode only the primary
// fingerprint may match.
func Match(a, b Fingerprints, strict bool) (bool, MatchReason) {
	if a.Primary == b.Primary {
		return true, ReasonConnectorAndResolution
	}
	if strict {
		return false, ReasonPrimaryMismatchStrict
	}
	if a.Secondary == b.Secondary {
		return true, ReasonResolution
	}
	return false, ReasonNoMatch
}
