// aviation/performance.go
// Copyright(c) 2024-2026 tracon contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"

	"tracon/math"
)

// AircraftPerformance describes an aircraft type's operating envelope. The
// navigation code clamps all of its targets against these limits; a target
// outside the envelope is a bug in whoever supplied it.
type AircraftPerformance struct {
	Name    string  `yaml:"name"`
	ICAO    string  `yaml:"icao"`
	Ceiling float32 `yaml:"ceiling"`
	Rate    struct {
		Climb      float32 `yaml:"climb"` // ft / minute; reduce by 500 after alt 5000 if this is >=2500
		Descent    float32 `yaml:"descent"`
		Accelerate float32 `yaml:"accelerate"` // kts / 2 seconds
		Decelerate float32 `yaml:"decelerate"`
	} `yaml:"rate"`
	Speed struct {
		Min       float32 `yaml:"min"`
		Landing   float32 `yaml:"landing"`
		CruiseTAS float32 `yaml:"cruise"`
		MaxTAS    float32 `yaml:"max"`
	} `yaml:"speed"`
	Turn struct {
		MaxBankAngle float32 `yaml:"maxBankAngle"`
		MaxBankRate  float32 `yaml:"maxBankRate"`
	} `yaml:"turn"`
}

func (p *AircraftPerformance) Validate() error {
	if p.ICAO == "" {
		return fmt.Errorf("missing icao identifier")
	}
	if p.Speed.Min <= 0 || p.Speed.MaxTAS <= p.Speed.Min {
		return fmt.Errorf("%s: bad speed envelope [%f, %f]", p.ICAO, p.Speed.Min, p.Speed.MaxTAS)
	}
	if p.Rate.Climb <= 0 || p.Rate.Descent <= 0 {
		return fmt.Errorf("%s: bad climb/descent rates", p.ICAO)
	}
	if p.Rate.Accelerate <= 0 || p.Rate.Decelerate <= 0 {
		return fmt.Errorf("%s: bad acceleration rates", p.ICAO)
	}
	if p.Turn.MaxBankAngle == 0 {
		p.Turn.MaxBankAngle = 25
	}
	if p.Turn.MaxBankRate == 0 {
		p.Turn.MaxBankRate = 3
	}
	if p.Ceiling == 0 {
		p.Ceiling = 40000
	}
	if p.Speed.Landing == 0 {
		p.Speed.Landing = p.Speed.Min + 10
	}
	return nil
}

// ApproachSpeed returns a reasonable final approach speed for the type.
func (p *AircraftPerformance) ApproachSpeed() float32 {
	return p.Speed.Landing + 10
}

func DensityRatioAtAltitude(alt float32) float32 {
	altm := alt * 0.3048 // altitude in meters

	// https://en.wikipedia.org/wiki/Barometric_formula#Density_equations
	const g0 = 9.80665    // gravitational constant, m/s^2
	const M_air = 0.02897 // molar mass of earth's air, kg/mol
	const R = 8.314463    // universal gas constant J/(mol K)
	const T_b = 288.15    // reference temperature at sea level, degrees K

	return math.Exp(-g0 * M_air * altm / (R * T_b))
}

func IASToTAS(ias, altitude float32) float32 {
	return ias / math.Sqrt(DensityRatioAtAltitude(altitude))
}

func TASToIAS(tas, altitude float32) float32 {
	return tas * math.Sqrt(DensityRatioAtAltitude(altitude))
}
