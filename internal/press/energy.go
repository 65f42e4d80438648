package press

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/efurnell/Piston-Die-Press-Test-Analysis/internal/errors"
)

// EnergyOptions controls ConvertEnergy.
type EnergyOptions struct {
	// ConversionFactor divides J/g into kWh/t. Zero means 3.6.
	ConversionFactor float64

	// LegacyRounding rounds work/mass to 4 decimals before the final
	// division when computing the total, matching historical reports.
	LegacyRounding bool
}

// DefaultEnergyOptions returns the options historical reports were
// produced with.
func DefaultEnergyOptions() EnergyOptions {
	return EnergyOptions{ConversionFactor: EnergyConversionFactor, LegacyRounding: true}
}

// ParseMass converts a sample mass read from a sheet into grams. Numeric
// types and numeric strings are accepted; the result must be positive and
// finite.
func ParseMass(v any) (float64, error) {
	var m float64
	switch t := v.(type) {
	case float64:
		m = t
	case float32:
		m = float64(t)
	case int:
		m = float64(t)
	case int32:
		m = float64(t)
	case int64:
		m = float64(t)
	case uint:
		m = float64(t)
	case uint32:
		m = float64(t)
	case uint64:
		m = float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, apperrors.NewInvalidMassError(v, err)
		}
		m = f
	case nil:
		return 0, apperrors.NewInvalidMassError(v, fmt.Errorf("mass is missing"))
	default:
		return 0, apperrors.NewInvalidMassError(v, fmt.Errorf("unsupported type %T", v))
	}

	if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
		return 0, apperrors.NewInvalidMassError(v, nil)
	}
	return m, nil
}

// ConvertEnergy turns cumulative work (J) into specific energy (kWh/t) for
// a sample of the given mass (g).
func ConvertEnergy(work WorkSeries, mass any, opts EnergyOptions) (EnergyResult, error) {
	m, err := ParseMass(mass)
	if err != nil {
		return EnergyResult{}, err
	}
	if len(work) == 0 {
		return EnergyResult{}, apperrors.NewAppValidationError("empty work series")
	}

	k := opts.ConversionFactor
	if k == 0 {
		k = EnergyConversionFactor
	}

	specific := make([]float64, len(work))
	for i, w := range work {
		specific[i] = w / m / k
	}

	perMass := work.Total() / m
	if opts.LegacyRounding {
		perMass = roundTo(perMass, 4)
	}
	return EnergyResult{Specific: specific, Total: perMass / k}, nil
}

// roundTo rounds half to even on the exact binary value, the same result
// Python's round(x, n) gives.
func roundTo(x float64, places int) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return r
}
