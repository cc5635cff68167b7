package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// MagneticVariation returns the magnetic declination in degrees
// (+East, -West) for a position and time, per the World Magnetic Model.
func MagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	altM := altFt * 0.3048

	loc := egm96.NewLocationGeodetic(lat, lon, altM)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// A failed model lookup degrades to "no correction"
		return 0.0
	}

	return mag.D()
}

// TrueToMagnetic converts a true heading to a magnetic heading at the
// given position, normalized to [0, 360).
func TrueToMagnetic(trueHeading, lat, lon, altFt float64, date time.Time) float64 {
	h := trueHeading - MagneticVariation(lat, lon, altFt, date)
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}
