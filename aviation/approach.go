// aviation/approach.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"tracon/math"
)

// NauticalMilesToFeet converts horizontal distances to feet for glideslope
// and separation arithmetic.
const NauticalMilesToFeet = 6076.12

// Approach describes an instrument approach to a runway: the localizer is
// the extended runway centerline through the threshold and the glideslope
// is an angular descent path to it.
type Approach struct {
	Id                 string        `yaml:"id"`
	Runway             string        `yaml:"runway"`
	Threshold          math.Point2NM `yaml:"threshold,flow"`
	LocalizerCourse    float32       `yaml:"course"`     // inbound course to the threshold
	GlideslopeAngle    float32       `yaml:"glideslope"` // degrees, typically 3
	ThresholdElevation float32       `yaml:"elevation"`  // feet
}

// Line returns two points along the localizer, ordered so that flying from
// the first to the second crosses the threshold inbound.
func (ap *Approach) Line() [2]math.Point2NM {
	out := math.HeadingVector(math.OppositeHeading(ap.LocalizerCourse))
	return [2]math.Point2NM{math.Add2f(ap.Threshold, math.Scale2f(out, 20)), ap.Threshold}
}

// ExtendedCenterlinePoint returns the point on the localizer the given
// distance before the threshold.
func (ap *Approach) ExtendedCenterlinePoint(distNM float32) math.Point2NM {
	out := math.HeadingVector(math.OppositeHeading(ap.LocalizerCourse))
	return math.Add2f(ap.Threshold, math.Scale2f(out, distNM))
}

// GlideslopeAltitude returns the glidepath altitude in feet at the given
// distance in nm from the threshold.
func (ap *Approach) GlideslopeAltitude(distNM float32) float32 {
	if distNM < 0 {
		return ap.ThresholdElevation
	}
	return ap.ThresholdElevation + distNM*NauticalMilesToFeet*math.Tan(math.Radians(ap.GlideslopeAngle))
}

func (ap *Approach) Validate() error {
	if ap.GlideslopeAngle == 0 {
		ap.GlideslopeAngle = 3
	}
	return nil
}
